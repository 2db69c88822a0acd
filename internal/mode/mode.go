package mode

import (
	"errors"
	"fmt"
	"strings"

	"AccessAI/pkg/command"
	"AccessAI/pkg/confirmation"
	"AccessAI/pkg/gesture"
	"AccessAI/pkg/oracle"
	"AccessAI/pkg/turntaking"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrStaleToken    = errors.New("event belongs to another session")
	ErrUnknownEvent  = errors.New("unknown event kind")
	ErrUnsupported   = errors.New("event not supported in this mode")
	ErrUnknownMode   = errors.New("unknown mode")
)

type Kind string

const (
	Deaf  Kind = "DEAF"
	Blind Kind = "BLIND"
	Motor Kind = "MOTOR"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case Deaf, Blind, Motor:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Capabilities describe what the client device can do.
type Capabilities struct {
	SpeechInput  bool `json:"speech_input"`
	SpeechOutput bool `json:"speech_output"`
}

type EventKind string

const (
	EventTranscript  EventKind = "transcript"
	EventSpeechDone  EventKind = "speech_done"
	EventGesture     EventKind = "gesture"
	EventHead        EventKind = "head"
	EventManual      EventKind = "manual"
	EventToken       EventKind = "token"
	EventTokenUndo   EventKind = "token_undo"
	EventTokensClear EventKind = "tokens_clear"
	EventTranslate   EventKind = "translate"
	EventStop        EventKind = "stop"

	eventEnter         EventKind = "enter"
	eventAutoTranslate EventKind = "auto_translate"
	eventSync          EventKind = "sync"
)

// ParseEventKind accepts the event kinds a client may send.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EventTranscript, EventSpeechDone, EventGesture, EventHead, EventManual,
		EventToken, EventTokenUndo, EventTokensClear, EventTranslate, EventStop:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

type Event struct {
	Kind        EventKind
	Token       uint64
	Text        string
	UtteranceID uint64
	Gesture     string
	Command     string
	X           float64
	Y           float64
	Symbol      string
	Confidence  float64

	revision uint64
}

type DirectiveType string

const (
	DirectiveSpeak           DirectiveType = "speak"
	DirectiveSpeechCancel    DirectiveType = "speech_cancel"
	DirectiveListenStart     DirectiveType = "listen_start"
	DirectiveListenStop      DirectiveType = "listen_stop"
	DirectiveTranscriptReset DirectiveType = "transcript_reset"
	DirectiveCommand         DirectiveType = "command"
	DirectiveConfirmPrompt   DirectiveType = "confirm_prompt"
	DirectiveConfirmResolved DirectiveType = "confirm_resolved"
	DirectiveEffect          DirectiveType = "effect"
	DirectiveTranslation     DirectiveType = "translation"
	DirectiveNotice          DirectiveType = "notice"
	DirectiveError           DirectiveType = "error"
	DirectiveState           DirectiveType = "state"
)

type Effect struct {
	Action  string  `json:"action"`
	DY      int     `json:"dy,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Section int     `json:"section,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Directive is an instruction for the client: speak, listen, show, act.
type Directive struct {
	Type        DirectiveType               `json:"type"`
	Token       uint64                      `json:"token"`
	Utterance   *turntaking.Utterance       `json:"utterance,omitempty"`
	Continuous  bool                        `json:"continuous,omitempty"`
	Command     command.Symbol              `json:"command,omitempty"`
	Pending     *confirmation.PendingAction `json:"pending,omitempty"`
	Confirmed   *bool                       `json:"confirmed,omitempty"`
	Effect      *Effect                     `json:"effect,omitempty"`
	Translation *oracle.Result              `json:"translation,omitempty"`
	Error       *ErrorInfo                  `json:"error,omitempty"`
	State       *Snapshot                   `json:"state,omitempty"`
	Text        string                      `json:"text,omitempty"`
}

// Sink receives directives from the session loop. Emit must not block for
// long and must not call back into the session.
type Sink interface {
	Emit(d Directive)
}

type SinkFunc func(d Directive)

func (f SinkFunc) Emit(d Directive) { f(d) }

type SectionView struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func cursorOf(p gesture.Point) *Cursor {
	return &Cursor{X: p.X, Y: p.Y}
}

type Snapshot struct {
	ID          string                      `json:"id"`
	Mode        Kind                        `json:"mode"`
	Token       uint64                      `json:"token"`
	Listening   turntaking.Snapshot         `json:"listening"`
	Pending     *confirmation.PendingAction `json:"pending,omitempty"`
	LastCommand command.Symbol              `json:"last_command,omitempty"`
	Section     *SectionView                `json:"section,omitempty"`
	Cursor      *Cursor                     `json:"cursor,omitempty"`
	Tokens      []SignToken                 `json:"tokens,omitempty"`
	Translation *oracle.Result              `json:"translation,omitempty"`
	Closed      bool                        `json:"closed"`
}
