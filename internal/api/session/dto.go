package session

import (
	"AccessAI/internal/mode"
)

type CreateSessionRequest struct {
	Mode         string            `json:"mode" query:"mode" validate:"required"`
	Capabilities mode.Capabilities `json:"capabilities"`
}

// EventRequest is one client event, over REST or as a websocket frame.
type EventRequest struct {
	Type        string  `json:"type" validate:"required"`
	Token       uint64  `json:"token,omitempty"`
	Text        string  `json:"text,omitempty" validate:"max=2000"`
	UtteranceID uint64  `json:"utterance_id,omitempty"`
	Value       string  `json:"value,omitempty"`
	Command     string  `json:"command,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Symbol      string  `json:"symbol,omitempty" validate:"max=64"`
	Confidence  float64 `json:"confidence,omitempty" validate:"gte=0,lte=1"`
}

func (r EventRequest) Event() (mode.Event, error) {
	kind, err := mode.ParseEventKind(r.Type)
	if err != nil {
		return mode.Event{}, err
	}
	return mode.Event{
		Kind:        kind,
		Token:       r.Token,
		Text:        r.Text,
		UtteranceID: r.UtteranceID,
		Gesture:     r.Value,
		Command:     r.Command,
		X:           r.X,
		Y:           r.Y,
		Symbol:      r.Symbol,
		Confidence:  r.Confidence,
	}, nil
}

type SessionResponse struct {
	ID         string           `json:"id"`
	Token      uint64           `json:"token"`
	State      mode.Snapshot    `json:"state"`
	Directives []mode.Directive `json:"directives"`
}
