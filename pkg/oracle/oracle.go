package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrLowConfidence is the only failure Reconstruct reports to callers.
	ErrLowConfidence    = errors.New("low confidence: no usable sign tokens")
	ErrRemoteCallFailed = errors.New("remote sentence generation failed")
)

type Quality string

const (
	QualityRemote    Quality = "remote"
	QualityExact     Quality = "exact"
	QualityHeuristic Quality = "heuristic"
	QualityLiteral   Quality = "literal"
)

type Result struct {
	Sentence string  `json:"sentence"`
	Quality  Quality `json:"quality"`
	Offline  bool    `json:"offline"`
}

// Generator produces a sentence from cleaned tokens, usually over the network.
type Generator interface {
	Generate(ctx context.Context, tokens []string) (string, error)
}

type Mode string

const (
	ModeSkip      Mode = "skip"
	ModeAlways    Mode = "always"
	ModeTimeBoxed Mode = "timeboxed"
)

const DefaultTimeout = 4 * time.Second

type Strategy struct {
	Mode    Mode
	Timeout time.Duration
}

func ParseStrategy(mode string, timeout time.Duration) (Strategy, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case ModeSkip, ModeAlways:
	case ModeTimeBoxed:
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
	default:
		return Strategy{}, fmt.Errorf("unknown translate strategy %q", mode)
	}
	return Strategy{Mode: m, Timeout: timeout}, nil
}

type Oracle struct {
	log      *logrus.Logger
	tables   Tables
	remote   Generator
	strategy Strategy
}

type Option func(*Oracle)

func WithTables(t Tables) Option {
	return func(o *Oracle) {
		o.tables = t
	}
}

func WithRemote(g Generator, s Strategy) Option {
	return func(o *Oracle) {
		o.remote = g
		o.strategy = s
	}
}

func New(log *logrus.Logger, opts ...Option) *Oracle {
	o := &Oracle{
		log:      log,
		tables:   DefaultTables(),
		strategy: Strategy{Mode: ModeSkip},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.remote == nil {
		o.strategy = Strategy{Mode: ModeSkip}
	}
	return o
}

func (o *Oracle) Strategy() Strategy {
	return o.strategy
}

// Reconstruct turns an ordered token sequence into a sentence. The remote
// generator gets at most one attempt; any failure falls back to the local
// tables.
func (o *Oracle) Reconstruct(ctx context.Context, tokens []string) (Result, error) {
	cleaned := CleanTokens(tokens)
	if len(cleaned) == 0 {
		return Result{}, ErrLowConfidence
	}

	if o.strategy.Mode != ModeSkip {
		sentence, err := o.generate(ctx, cleaned)
		if err == nil {
			return Result{Sentence: sentence, Quality: QualityRemote}, nil
		}
		o.log.WithFields(logrus.Fields{
			"tokens":   strings.Join(cleaned, " "),
			"strategy": o.strategy.Mode,
			"error":    err.Error(),
		}).Warn("Remote sentence generation failed, using local tables")
	}

	return o.tables.Local(cleaned)
}

func (o *Oracle) generate(ctx context.Context, tokens []string) (string, error) {
	if o.strategy.Mode == ModeTimeBoxed {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.strategy.Timeout)
		defer cancel()
	}

	type reply struct {
		sentence string
		err      error
	}
	done := make(chan reply, 1)
	go func() {
		s, err := o.remote.Generate(ctx, tokens)
		done <- reply{s, err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrRemoteCallFailed, ctx.Err())
	}
	if r.err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteCallFailed, r.err)
	}
	sentence := strings.TrimSpace(r.sentence)
	if sentence == "" {
		return "", fmt.Errorf("%w: empty response", ErrRemoteCallFailed)
	}
	return sentence, nil
}
