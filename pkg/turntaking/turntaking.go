package turntaking

import (
	"errors"
	"fmt"
	"sync"

	"AccessAI/pkg/command"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnsupportedCapability = errors.New("speech capability not supported")
	ErrStopped               = errors.New("controller stopped")
	ErrInvalidTransition     = errors.New("invalid state transition")
)

type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateProcessing:
		return "PROCESSING"
	case StateSpeaking:
		return "SPEAKING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StateListening, StateProcessing, StateSpeaking} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown listening state %q", text)
}

type Voice struct {
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

var DefaultVoice = Voice{Rate: 1.0, Pitch: 1.0}

type Utterance struct {
	ID    uint64  `json:"utterance_id"`
	Token uint64  `json:"token"`
	Text  string  `json:"text"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// SpeechInput is a live speech recognizer. Transcripts flow back through
// Controller.OnTranscriptUpdate.
type SpeechInput interface {
	Supported() bool
	Start(continuous bool) error
	Stop()
	ResetTranscript()
}

// SpeechOutput is a speech synthesizer. Completion flows back through
// Controller.OnSynthesisDone with the utterance id.
type SpeechOutput interface {
	Supported() bool
	Speak(u Utterance) error
	Cancel()
}

type Snapshot struct {
	State       State  `json:"state"`
	Degraded    bool   `json:"degraded"`
	Stopped     bool   `json:"stopped"`
	UtteranceID uint64 `json:"utterance_id,omitempty"`
	Transcript  string `json:"last_transcript,omitempty"`
}

// Controller owns the listening state of one mode session. Listening and
// speaking never overlap: the recognizer is stopped before every utterance
// and only restarted once the synthesizer reports completion.
type Controller struct {
	mu     sync.Mutex
	log    *logrus.Logger
	token  uint64
	input  SpeechInput
	output SpeechOutput
	voice  Voice

	state          State
	stopped        bool
	degraded       bool
	utteranceSeq   uint64
	current        uint64
	lastTranscript string
}

func NewController(log *logrus.Logger, token uint64, input SpeechInput, output SpeechOutput, voice Voice) *Controller {
	if voice.Rate == 0 {
		voice.Rate = DefaultVoice.Rate
	}
	if voice.Pitch == 0 {
		voice.Pitch = DefaultVoice.Pitch
	}
	return &Controller{
		log:    log,
		token:  token,
		input:  input,
		output: output,
		voice:  voice,
		state:  StateIdle,
	}
}

func (c *Controller) Token() uint64 {
	return c.token
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Degraded reports whether speech recognition is unavailable and only manual
// controls work.
func (c *Controller) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:       c.state,
		Degraded:    c.degraded,
		Stopped:     c.stopped,
		UtteranceID: c.current,
		Transcript:  c.lastTranscript,
	}
}

// EnterMode speaks the intro and starts listening once it has been heard.
// Without a synthesizer the controller goes straight to listening.
func (c *Controller) EnterMode(intro string) (Utterance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return Utterance{}, ErrStopped
	}
	if c.state != StateIdle {
		return Utterance{}, fmt.Errorf("%w: enter mode from %s", ErrInvalidTransition, c.state)
	}
	if intro == "" {
		c.listenLocked()
		return Utterance{}, nil
	}

	return c.speakLocked(intro)
}

// OnTranscriptUpdate accepts a possibly partial transcript. It returns the
// normalized text and true when the text should be interpreted, which moves
// the controller to PROCESSING. The caller must follow up with Speak, Resume
// or Silence.
func (c *Controller) OnTranscriptUpdate(raw string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.state != StateListening {
		return "", false
	}

	normalized := command.Normalize(raw)
	if normalized == "" || normalized == c.lastTranscript {
		return "", false
	}

	c.lastTranscript = normalized
	c.setStateLocked(StateProcessing)
	return normalized, true
}

// Resume leaves PROCESSING without speaking. A consumed transcript is wiped
// so the next utterance starts from an empty buffer.
func (c *Controller) Resume(consumed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.state != StateProcessing {
		return
	}
	c.setStateLocked(StateListening)
	if consumed {
		c.resetTranscriptLocked()
	}
}

// Speak cancels anything in flight, silences the recognizer and starts a new
// utterance.
func (c *Controller) Speak(text string) (Utterance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return Utterance{}, ErrStopped
	}
	return c.speakLocked(text)
}

// OnSynthesisDone reports the end of an utterance. Completions for anything
// other than the current utterance are stale and ignored.
func (c *Controller) OnSynthesisDone(utteranceID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.state != StateSpeaking || utteranceID == 0 || utteranceID != c.current {
		return false
	}

	c.current = 0
	c.listenLocked()
	return true
}

// Silence cuts the current utterance short and goes back to listening.
func (c *Controller) Silence() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.current != 0 {
		c.output.Cancel()
		c.current = 0
	}
	if c.state == StateListening {
		c.resetTranscriptLocked()
		return
	}
	c.listenLocked()
}

// Stop tears the controller down. It is terminal and safe to call more than
// once.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.current != 0 {
		c.output.Cancel()
		c.current = 0
	}
	if c.input.Supported() {
		c.input.Stop()
	}
	c.lastTranscript = ""
	c.stopped = true
	c.setStateLocked(StateIdle)
}

func (c *Controller) speakLocked(text string) (Utterance, error) {
	if !c.output.Supported() {
		c.log.WithFields(logrus.Fields{
			"token": c.token,
			"text":  text,
		}).Warn("Speech synthesis unsupported, staying on manual feedback")
		if c.state != StateListening {
			c.listenLocked()
		}
		return Utterance{Token: c.token, Text: text}, ErrUnsupportedCapability
	}

	if c.current != 0 {
		c.output.Cancel()
		c.current = 0
	}
	if c.state == StateListening || c.state == StateProcessing {
		if c.input.Supported() {
			c.input.Stop()
		}
	}

	c.utteranceSeq++
	u := Utterance{
		ID:    c.utteranceSeq,
		Token: c.token,
		Text:  text,
		Rate:  c.voice.Rate,
		Pitch: c.voice.Pitch,
	}
	c.current = u.ID
	c.setStateLocked(StateSpeaking)

	if err := c.output.Speak(u); err != nil {
		c.log.WithFields(logrus.Fields{
			"token":        c.token,
			"utterance_id": u.ID,
			"error":        err.Error(),
		}).Warn("Speech synthesis failed")
		c.current = 0
		c.listenLocked()
		return u, fmt.Errorf("%w: %v", ErrUnsupportedCapability, err)
	}

	return u, nil
}

func (c *Controller) listenLocked() {
	c.setStateLocked(StateListening)
	c.resetTranscriptLocked()

	if !c.input.Supported() {
		c.degraded = true
		return
	}
	if err := c.input.Start(true); err != nil {
		c.log.WithFields(logrus.Fields{
			"token": c.token,
			"error": err.Error(),
		}).Warn("Speech recognition failed to start, manual controls only")
		c.degraded = true
		return
	}
	c.degraded = false
}

func (c *Controller) resetTranscriptLocked() {
	c.lastTranscript = ""
	if c.input.Supported() {
		c.input.ResetTranscript()
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.log.WithFields(logrus.Fields{
		"token": c.token,
		"from":  c.state.String(),
		"to":    s.String(),
	}).Debug("Listening state changed")
	c.state = s
}
