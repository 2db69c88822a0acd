package mode

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"AccessAI/internal/entity"
	"AccessAI/pkg/command"
	"AccessAI/pkg/oracle"
	"AccessAI/pkg/turntaking"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recorder struct {
	mu         sync.Mutex
	directives []Directive
}

func (r *recorder) Emit(d Directive) {
	r.mu.Lock()
	r.directives = append(r.directives, d)
	r.mu.Unlock()
}

func (r *recorder) all() []Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Directive, len(r.directives))
	copy(out, r.directives)
	return out
}

func (r *recorder) ofType(t DirectiveType) []Directive {
	var out []Directive
	for _, d := range r.all() {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out
}

func (r *recorder) lastSpoken() *turntaking.Utterance {
	spoken := r.ofType(DirectiveSpeak)
	if len(spoken) == 0 {
		return nil
	}
	return spoken[len(spoken)-1].Utterance
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.directives = nil
	r.mu.Unlock()
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []entity.History
	err     error
}

func (m *memoryHistory) Record(_ context.Context, e entity.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryHistory) all() []entity.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.History(nil), m.entries...)
}

type harness struct {
	t       *testing.T
	session *Session
	sink    *recorder
	history *memoryHistory
}

func newHarness(t *testing.T, kind Kind, caps Capabilities, mutate ...func(*Config)) *harness {
	t.Helper()

	h := &harness{t: t, sink: &recorder{}, history: &memoryHistory{}}
	cfg := Config{
		ID:           "01TEST",
		Kind:         kind,
		Token:        42,
		Capabilities: caps,
		Sink:         h.sink,
		Translator:   oracle.New(quietLogger()),
		History:      h.history,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	s, err := New(quietLogger(), cfg)
	require.NoError(t, err)
	h.session = s
	s.Start()
	t.Cleanup(s.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Sync(ctx))
	return h
}

func (h *harness) do(ev Event) error {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.session.Do(ctx, ev)
}

// finishSpeech reports completion of the utterance currently being spoken.
func (h *harness) finishSpeech() {
	h.t.Helper()
	u := h.sink.lastSpoken()
	require.NotNil(h.t, u)
	require.NoError(h.t, h.do(Event{Kind: EventSpeechDone, UtteranceID: u.ID}))
}

var fullCaps = Capabilities{SpeechInput: true, SpeechOutput: true}

func TestBlindSessionEnter(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	u := h.sink.lastSpoken()
	require.NotNil(t, u)
	assert.Equal(t, "Blind mode activated. Say Read to begin. "+DefaultLesson[0].Text, u.Text)
	assert.Equal(t, 0.9, u.Rate)
	assert.Equal(t, uint64(42), u.Token)
	assert.Equal(t, turntaking.StateSpeaking, h.session.Snapshot().Listening.State)

	h.finishSpeech()
	snap := h.session.Snapshot()
	assert.Equal(t, turntaking.StateListening, snap.Listening.State)
	assert.Equal(t, 0, snap.Section.Index)
	assert.NotEmpty(t, h.sink.ofType(DirectiveListenStart))
	h.session.Close()
}

func TestBlindNextConfirmedByGesture(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	h.finishSpeech()

	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "please say next now"}))

	prompts := h.sink.ofType(DirectiveConfirmPrompt)
	require.Len(t, prompts, 1)
	assert.Equal(t, command.Next, prompts[0].Pending.Action)
	assert.Equal(t, "Do you want to move to the next section?", h.sink.lastSpoken().Text)
	assert.NotNil(t, h.session.Snapshot().Pending)

	// Other commands are blocked while the gate is open.
	require.NoError(t, h.do(Event{Kind: EventGesture, Gesture: "YES"}))

	snap := h.session.Snapshot()
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 1, snap.Section.Index)
	assert.Equal(t, "Moving to next section. "+DefaultLesson[1].Text, h.sink.lastSpoken().Text)

	// A second YES has nothing to confirm.
	require.NoError(t, h.do(Event{Kind: EventGesture, Gesture: "YES"}))
	assert.Equal(t, 1, h.session.Snapshot().Section.Index)
	assert.Len(t, h.sink.ofType(DirectiveConfirmResolved), 1)

	entries := h.history.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "BLIND", entries[0].Mode)
	assert.Equal(t, "gesture YES", entries[0].Input)
	assert.Equal(t, "Moving to next section. "+DefaultLesson[1].Text, entries[0].Output)
	h.session.Close()
}

func TestBlindNextCancelledBySpeech(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	h.finishSpeech()

	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "next"}))
	h.finishSpeech()

	// Not a yes or no: still pending.
	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "read"}))
	assert.NotNil(t, h.session.Snapshot().Pending)

	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "read no"}))
	snap := h.session.Snapshot()
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 0, snap.Section.Index)
	assert.Equal(t, "Action cancelled.", h.sink.lastSpoken().Text)
	h.session.Close()
}

func TestBlindCommandsBlockedWhilePending(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	h.finishSpeech()
	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "next"}))

	err := h.do(Event{Kind: EventManual, Command: "BACK"})
	assert.Error(t, err)
	assert.NotEmpty(t, h.sink.ofType(DirectiveError))
	assert.NotNil(t, h.session.Snapshot().Pending)

	require.NoError(t, h.do(Event{Kind: EventManual, Command: "YES"}))
	assert.Equal(t, 1, h.session.Snapshot().Section.Index)
	h.session.Close()
}

func TestBlindNavigationBoundaries(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	h.finishSpeech()

	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "go back"}))
	assert.Equal(t, "Boundary reached. You are at the start of the lesson.", h.sink.lastSpoken().Text)
	h.finishSpeech()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.do(Event{Kind: EventManual, Command: "NEXT"}))
		require.NoError(t, h.do(Event{Kind: EventGesture, Gesture: "NOD"}))
		h.finishSpeech()
	}
	assert.Equal(t, 3, h.session.Snapshot().Section.Index)

	require.NoError(t, h.do(Event{Kind: EventManual, Command: "NEXT"}))
	require.NoError(t, h.do(Event{Kind: EventGesture, Gesture: "YES"}))
	assert.Equal(t, "No more sections. You are at the end of the lesson.", h.sink.lastSpoken().Text)
	h.finishSpeech()

	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "please repeat"}))
	assert.Equal(t, "Reading current section. "+DefaultLesson[3].Text, h.sink.lastSpoken().Text)

	require.NoError(t, h.do(Event{Kind: EventManual, Command: "STOP"}))
	assert.NotEmpty(t, h.sink.ofType(DirectiveSpeechCancel))
	assert.Equal(t, turntaking.StateListening, h.session.Snapshot().Listening.State)
	h.session.Close()
}

func TestTranscriptIgnoredWhileSpeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "next"}))
	assert.Empty(t, h.sink.ofType(DirectiveConfirmPrompt))
	h.session.Close()
}

func TestTeardownWhileSpeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	u := h.sink.lastSpoken()
	require.NotNil(t, u)

	h.session.Close()
	h.session.Close()

	snap := h.session.Snapshot()
	assert.True(t, snap.Closed)
	assert.Equal(t, turntaking.StateIdle, snap.Listening.State)
	assert.NotEmpty(t, h.sink.ofType(DirectiveSpeechCancel))

	h.sink.reset()
	err := h.do(Event{Kind: EventSpeechDone, UtteranceID: u.ID})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, h.session.Post(Event{Kind: EventTranscript, Text: "next"}), ErrSessionClosed)
	assert.Empty(t, h.sink.all())
}

func TestStopEvent(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	require.NoError(t, h.do(Event{Kind: EventStop}))
	<-h.session.Done()
	assert.True(t, h.session.Snapshot().Closed)
}

func TestStaleToken(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	h.finishSpeech()

	err := h.do(Event{Kind: EventTranscript, Token: 7, Text: "next"})
	assert.ErrorIs(t, err, ErrStaleToken)
	assert.Nil(t, h.session.Snapshot().Pending)

	require.NoError(t, h.do(Event{Kind: EventTranscript, Token: 42, Text: "next"}))
	assert.NotNil(t, h.session.Snapshot().Pending)
	h.session.Close()
}

func TestDegradedSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, Capabilities{})
	snap := h.session.Snapshot()
	assert.Equal(t, turntaking.StateListening, snap.Listening.State)
	assert.True(t, snap.Listening.Degraded)
	assert.Empty(t, h.sink.ofType(DirectiveSpeak))
	require.NotEmpty(t, h.sink.ofType(DirectiveNotice))

	// Manual controls still work.
	require.NoError(t, h.do(Event{Kind: EventManual, Command: "read"}))
	notices := h.sink.ofType(DirectiveNotice)
	assert.Equal(t, "Reading current section. "+DefaultLesson[0].Text, notices[len(notices)-1].Text)
	h.session.Close()
}

func TestMotorSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Motor, fullCaps)
	assert.Equal(t, 1.1, h.sink.lastSpoken().Rate)
	h.finishSpeech()

	t.Run("scroll", func(t *testing.T) {
		require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "okay scroll down"}))
		effects := h.sink.ofType(DirectiveEffect)
		require.NotEmpty(t, effects)
		assert.Equal(t, &Effect{Action: "scroll", DY: 300}, effects[len(effects)-1].Effect)
		assert.Equal(t, "Scrolling down", h.sink.lastSpoken().Text)
		h.finishSpeech()
	})

	t.Run("click at head cursor", func(t *testing.T) {
		require.NoError(t, h.do(Event{Kind: EventHead, X: 25, Y: 75}))
		require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "select"}))
		effects := h.sink.ofType(DirectiveEffect)
		assert.Equal(t, &Effect{Action: "click", X: 25, Y: 75}, effects[len(effects)-1].Effect)
		assert.Equal(t, "Clicking.", h.sink.lastSpoken().Text)
		h.finishSpeech()
	})

	t.Run("next confirmed by nod", func(t *testing.T) {
		require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "go next"}))
		assert.Equal(t, "Do you want to move to the next section?", h.sink.lastSpoken().Text)

		c := h.session.Snapshot().Cursor
		require.NotNil(t, c)
		for i := 0; i < 10; i++ {
			y := c.Y + 10
			if i%2 == 1 {
				y = c.Y - 10
			}
			require.NoError(t, h.do(Event{Kind: EventHead, X: c.X, Y: y}))
		}
		assert.Nil(t, h.session.Snapshot().Pending)
		assert.Equal(t, "Moving to next section.", h.sink.lastSpoken().Text)
		h.finishSpeech()
	})

	t.Run("next cancelled by shake", func(t *testing.T) {
		require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "next"}))
		c := h.session.Snapshot().Cursor
		for i := 0; i < 10; i++ {
			x := c.X + 10
			if i%2 == 1 {
				x = c.X - 10
			}
			require.NoError(t, h.do(Event{Kind: EventHead, X: x, Y: c.Y}))
		}
		assert.Nil(t, h.session.Snapshot().Pending)
		assert.Equal(t, "Action cancelled.", h.sink.lastSpoken().Text)
	})

	t.Run("head events are motor only", func(t *testing.T) {
		b := newHarness(t, Blind, fullCaps)
		assert.ErrorIs(t, b.do(Event{Kind: EventHead, X: 1, Y: 1}), ErrUnsupported)
		b.session.Close()
	})

	h.session.Close()
}

func TestGestureBeforePromptIsIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Motor, fullCaps)
	h.finishSpeech()

	require.NoError(t, h.do(Event{Kind: EventGesture, Gesture: "YES"}))
	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "next"}))
	assert.NotNil(t, h.session.Snapshot().Pending)
	h.session.Close()
}

func TestDeafSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Deaf, fullCaps)
	assert.Equal(t, turntaking.StateListening, h.session.Snapshot().Listening.State)

	t.Run("empty buffer is low confidence", func(t *testing.T) {
		require.NoError(t, h.do(Event{Kind: EventTranslate}))
		errs := h.sink.ofType(DirectiveError)
		require.NotEmpty(t, errs)
		assert.Equal(t, "LOW_CONFIDENCE", errs[len(errs)-1].Error.Code)
		assert.Equal(t, "Not sure. Please repeat signs clearly.", errs[len(errs)-1].Error.Message)
	})

	t.Run("tokens build a sentence", func(t *testing.T) {
		for _, sym := range []string{" me", "water", "want", "oops"} {
			require.NoError(t, h.do(Event{Kind: EventToken, Symbol: sym, Confidence: 0.9}))
		}
		require.NoError(t, h.do(Event{Kind: EventTokenUndo}))
		assert.Len(t, h.session.Snapshot().Tokens, 3)

		require.NoError(t, h.do(Event{Kind: EventTranslate}))
		tr := h.sink.ofType(DirectiveTranslation)
		require.Len(t, tr, 1)
		assert.Equal(t, "Excuse me, could I please have some water?", tr[0].Translation.Sentence)
		assert.Equal(t, "Excuse me, could I please have some water?", h.sink.lastSpoken().Text)

		entries := h.history.all()
		require.NotEmpty(t, entries)
		last := entries[len(entries)-1]
		assert.Equal(t, "DEAF", last.Mode)
		assert.Equal(t, "ME WATER WANT", last.Input)
	})

	t.Run("low confidence signs are skipped", func(t *testing.T) {
		require.NoError(t, h.do(Event{Kind: EventTokensClear}))
		require.NoError(t, h.do(Event{Kind: EventToken, Symbol: "HELLO", Confidence: 0.2}))
		require.NoError(t, h.do(Event{Kind: EventTranslate}))
		errs := h.sink.ofType(DirectiveError)
		assert.Equal(t, "LOW_CONFIDENCE", errs[len(errs)-1].Error.Code)
	})

	t.Run("blank sign is rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.do(Event{Kind: EventToken, Symbol: "  "}), ErrInvalidEvent)
	})

	t.Run("voice commands do nothing", func(t *testing.T) {
		assert.ErrorIs(t, h.do(Event{Kind: EventManual, Command: "NEXT"}), ErrUnsupported)
	})

	h.session.Close()
}

func TestDeafSessionKeepsMicrophoneClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Deaf, fullCaps)
	for _, sym := range []string{"ME", "GO", "SCHOOL"} {
		require.NoError(t, h.do(Event{Kind: EventToken, Symbol: sym, Confidence: 0.9}))
	}
	require.NoError(t, h.do(Event{Kind: EventTranslate}))
	h.finishSpeech()

	for _, typ := range []DirectiveType{DirectiveListenStart, DirectiveListenStop, DirectiveTranscriptReset} {
		assert.Empty(t, h.sink.ofType(typ), typ)
	}
	snap := h.session.Snapshot()
	assert.Equal(t, turntaking.StateListening, snap.Listening.State)
	assert.False(t, snap.Listening.Degraded)
	h.session.Close()
}

func TestDeafAutoTranslate(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Deaf, fullCaps, func(c *Config) {
		c.AutoTranslateDelay = 20 * time.Millisecond
	})

	require.NoError(t, h.do(Event{Kind: EventToken, Symbol: "THANK YOU"}))
	assert.Eventually(t, func() bool {
		return len(h.sink.ofType(DirectiveTranslation)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Thank you very much.", h.sink.ofType(DirectiveTranslation)[0].Translation.Sentence)

	// A pending timer must not outlive the session.
	require.NoError(t, h.do(Event{Kind: EventToken, Symbol: "HELP"}))
	h.session.Close()
}

func TestHistoryFailureIsNotFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, Blind, fullCaps)
	h.history.err = errors.New("disk full")
	h.finishSpeech()

	require.NoError(t, h.do(Event{Kind: EventTranscript, Text: "read"}))
	errs := h.sink.ofType(DirectiveError)
	require.NotEmpty(t, errs)
	assert.Equal(t, "PERSISTENCE_FAILED", errs[len(errs)-1].Error.Code)
	assert.Equal(t, turntaking.StateSpeaking, h.session.Snapshot().Listening.State)
	h.session.Close()
}

func TestErrorDirectiveEncoding(t *testing.T) {
	raw, err := jsoniter.Marshal(Directive{
		Type:  DirectiveError,
		Token: 7,
		Error: &ErrorInfo{Code: "LOW_CONFIDENCE", Message: lowConfidenceMessage},
	})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(raw, &out))
	assert.Equal(t, "error", out["type"])
	assert.Equal(t, map[string]interface{}{
		"code":    "LOW_CONFIDENCE",
		"message": lowConfidenceMessage,
	}, out["error"])
}

func TestNewValidation(t *testing.T) {
	_, err := New(quietLogger(), Config{Kind: Blind})
	assert.Error(t, err)

	_, err = New(quietLogger(), Config{Kind: "HOME", Sink: &recorder{}})
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = New(quietLogger(), Config{Kind: Deaf, Sink: &recorder{}})
	assert.Error(t, err)

	k, err := ParseKind(" motor ")
	require.NoError(t, err)
	assert.Equal(t, Motor, k)
}
