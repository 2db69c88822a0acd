package oracle

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	sentence string
	err      error
	delay    time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, tokens []string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.sentence, f.err
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestReconstructLocal(t *testing.T) {
	o := New(quietLogger())
	ctx := context.Background()

	t.Run("empty sequence is low confidence", func(t *testing.T) {
		_, err := o.Reconstruct(ctx, nil)
		assert.ErrorIs(t, err, ErrLowConfidence)

		_, err = o.Reconstruct(ctx, []string{"  ", ""})
		assert.ErrorIs(t, err, ErrLowConfidence)
	})

	t.Run("exact pattern", func(t *testing.T) {
		res, err := o.Reconstruct(ctx, []string{"THANK YOU"})
		require.NoError(t, err)
		assert.Equal(t, "Thank you very much.", res.Sentence)
		assert.Equal(t, QualityExact, res.Quality)
		assert.True(t, res.Offline)

		res, err = o.Reconstruct(ctx, []string{"ME", "WATER", "WANT"})
		require.NoError(t, err)
		assert.Equal(t, "Excuse me, could I please have some water?", res.Sentence)
	})

	t.Run("tokens are cleaned before matching", func(t *testing.T) {
		res, err := o.Reconstruct(ctx, []string{" me", "water ", "want"})
		require.NoError(t, err)
		assert.Equal(t, "Excuse me, could I please have some water?", res.Sentence)
	})

	t.Run("heuristic rules", func(t *testing.T) {
		res, err := o.Reconstruct(ctx, []string{"WANT", "WATER"})
		require.NoError(t, err)
		assert.Equal(t, "Excuse me, I would like some water.", res.Sentence)
		assert.Equal(t, QualityHeuristic, res.Quality)

		res, err = o.Reconstruct(ctx, []string{"PLEASE", "HELP"})
		require.NoError(t, err)
		assert.Equal(t, "I need some help please.", res.Sentence)

		res, err = o.Reconstruct(ctx, []string{"HELLO", "FRIEND"})
		require.NoError(t, err)
		assert.Equal(t, "Hello there!", res.Sentence)

		// WATER alone does not satisfy the water rule.
		res, err = o.Reconstruct(ctx, []string{"WATER"})
		require.NoError(t, err)
		assert.Equal(t, QualityLiteral, res.Quality)
	})

	t.Run("literal fallback", func(t *testing.T) {
		res, err := o.Reconstruct(ctx, []string{"UNKNOWN_TOKEN"})
		require.NoError(t, err)
		assert.Equal(t, "UNKNOWN_TOKEN", res.Sentence)
		assert.Equal(t, QualityLiteral, res.Quality)

		res, err = o.Reconstruct(ctx, []string{"GOOD", "MORNING"})
		require.NoError(t, err)
		assert.Equal(t, "GOOD MORNING", res.Sentence)
	})
}

func TestReconstructRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("remote answer wins", func(t *testing.T) {
		gen := &fakeGenerator{sentence: "  Could I have some water, please?  "}
		o := New(quietLogger(), WithRemote(gen, Strategy{Mode: ModeAlways}))

		res, err := o.Reconstruct(ctx, []string{"ME", "WATER", "WANT"})
		require.NoError(t, err)
		assert.Equal(t, "Could I have some water, please?", res.Sentence)
		assert.Equal(t, QualityRemote, res.Quality)
		assert.False(t, res.Offline)
		assert.Equal(t, 1, gen.Calls())
	})

	t.Run("remote failure falls back once", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("boom")}
		o := New(quietLogger(), WithRemote(gen, Strategy{Mode: ModeAlways}))

		res, err := o.Reconstruct(ctx, []string{"THANK YOU"})
		require.NoError(t, err)
		assert.Equal(t, "Thank you very much.", res.Sentence)
		assert.Equal(t, 1, gen.Calls())
	})

	t.Run("empty remote answer is a failure", func(t *testing.T) {
		gen := &fakeGenerator{sentence: "   "}
		o := New(quietLogger(), WithRemote(gen, Strategy{Mode: ModeAlways}))

		res, err := o.Reconstruct(ctx, []string{"UNKNOWN_TOKEN"})
		require.NoError(t, err)
		assert.Equal(t, "UNKNOWN_TOKEN", res.Sentence)
	})

	t.Run("time box expires", func(t *testing.T) {
		gen := &fakeGenerator{sentence: "too late", delay: time.Second}
		o := New(quietLogger(), WithRemote(gen, Strategy{Mode: ModeTimeBoxed, Timeout: 20 * time.Millisecond}))

		start := time.Now()
		res, err := o.Reconstruct(ctx, []string{"HELP", "ME"})
		require.NoError(t, err)
		assert.Equal(t, "I need assistance, could you help me?", res.Sentence)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("skip never calls remote", func(t *testing.T) {
		gen := &fakeGenerator{sentence: "remote"}
		o := New(quietLogger(), WithRemote(gen, Strategy{Mode: ModeSkip}))

		res, err := o.Reconstruct(ctx, []string{"HELLO"})
		require.NoError(t, err)
		assert.Equal(t, "Hello there!", res.Sentence)
		assert.Zero(t, gen.Calls())
	})

	t.Run("empty tokens never reach remote", func(t *testing.T) {
		gen := &fakeGenerator{sentence: "remote"}
		o := New(quietLogger(), WithRemote(gen, Strategy{Mode: ModeAlways}))

		_, err := o.Reconstruct(ctx, []string{})
		assert.ErrorIs(t, err, ErrLowConfidence)
		assert.Zero(t, gen.Calls())
	})
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("TimeBoxed", 0)
	require.NoError(t, err)
	assert.Equal(t, ModeTimeBoxed, s.Mode)
	assert.Equal(t, DefaultTimeout, s.Timeout)

	s, err = ParseStrategy("always", 0)
	require.NoError(t, err)
	assert.Equal(t, ModeAlways, s.Mode)

	_, err = ParseStrategy("sometimes", 0)
	assert.Error(t, err)
}

func TestParseTables(t *testing.T) {
	tables, err := ParseTables([]byte(`
patterns:
  - tokens: [good, night]
    response: Good night.
rules:
  - name: bye
    any: [BYE, GOODBYE]
    response: Goodbye!
`))
	require.NoError(t, err)

	res, err := tables.Local([]string{"GOOD", "NIGHT"})
	require.NoError(t, err)
	assert.Equal(t, "Good night.", res.Sentence)

	res, err = tables.Local([]string{"OK", "GOODBYE"})
	require.NoError(t, err)
	assert.Equal(t, "Goodbye!", res.Sentence)

	_, err = ParseTables([]byte(`
rules:
  - name: empty
    response: nothing
`))
	assert.Error(t, err)
}
