package confirmation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"AccessAI/pkg/command"
)

var ErrPending = errors.New("an action is already awaiting confirmation")

type Signal int

const (
	SignalNone Signal = iota
	SignalYes
	SignalNo
)

func (s Signal) String() string {
	switch s {
	case SignalYes:
		return "YES"
	case SignalNo:
		return "NO"
	default:
		return "NONE"
	}
}

func ParseSignal(s string) Signal {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "NOD":
		return SignalYes
	case "NO", "SHAKE":
		return SignalNo
	default:
		return SignalNone
	}
}

// SignalFromSymbol maps a recognized YES/NO command to a signal.
func SignalFromSymbol(sym command.Symbol) Signal {
	switch sym {
	case command.Yes:
		return SignalYes
	case command.No:
		return SignalNo
	default:
		return SignalNone
	}
}

// ParseUtterance reads a spoken yes or no from normalized text.
func ParseUtterance(normalized string, v command.Vocabulary) Signal {
	return SignalFromSymbol(command.Recognize(normalized, v))
}

type PendingAction struct {
	Action    command.Symbol `json:"action"`
	Prompt    string         `json:"prompt"`
	CreatedAt time.Time      `json:"created_at"`
}

type Resolution struct {
	Action    PendingAction
	Confirmed bool
}

// Gate holds at most one action waiting for a yes or no. While an action is
// pending every other command is blocked.
type Gate struct {
	mu      sync.Mutex
	clock   func() time.Time
	pending *PendingAction
}

func NewGate(clock func() time.Time) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{clock: clock}
}

func (g *Gate) Require(action command.Symbol, prompt string) (PendingAction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		return *g.pending, ErrPending
	}
	p := PendingAction{Action: action, Prompt: prompt, CreatedAt: g.clock()}
	g.pending = &p
	return p, nil
}

func (g *Gate) Blocks() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

func (g *Gate) Pending() (PendingAction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PendingAction{}, false
	}
	return *g.pending, true
}

// Resolve settles the pending action with a yes or no. It reports false when
// nothing is pending or the signal is none, leaving the gate untouched.
func (g *Gate) Resolve(sig Signal) (Resolution, bool) {
	if sig == SignalNone {
		return Resolution{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return Resolution{}, false
	}
	res := Resolution{Action: *g.pending, Confirmed: sig == SignalYes}
	g.pending = nil
	return res, true
}

// Cancel drops the pending action without resolving it.
func (g *Gate) Cancel() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}
