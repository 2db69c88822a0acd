package confirmation

import (
	"sync"
	"time"
)

const DefaultSignalWindow = 1500 * time.Millisecond

// Latch holds the most recent gesture signal until it is taken or the window
// elapses, whichever comes first. A stored signal is handed out at most once.
type Latch struct {
	mu     sync.Mutex
	clock  func() time.Time
	window time.Duration
	signal Signal
	at     time.Time
}

func NewLatch(window time.Duration, clock func() time.Time) *Latch {
	if window <= 0 {
		window = DefaultSignalWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Latch{clock: clock, window: window}
}

func (l *Latch) Set(sig Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signal = sig
	l.at = l.clock()
}

// Take returns the live signal and clears it.
func (l *Latch) Take() Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	sig := l.liveLocked()
	l.signal = SignalNone
	return sig
}

// Peek returns the live signal without consuming it.
func (l *Latch) Peek() Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liveLocked()
}

func (l *Latch) Clear() {
	l.mu.Lock()
	l.signal = SignalNone
	l.mu.Unlock()
}

func (l *Latch) liveLocked() Signal {
	if l.signal == SignalNone {
		return SignalNone
	}
	if l.clock().Sub(l.at) >= l.window {
		l.signal = SignalNone
	}
	return l.signal
}
