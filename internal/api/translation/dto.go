package translation

import (
	"bytes"
	"time"

	"AccessAI/internal/entity"
	"AccessAI/pkg/oracle"

	jsoniter "github.com/json-iterator/go"
)

const (
	MaxTokens    = 64
	HistoryLimit = 50

	SourceRemote = "gemini"
	SourceLocal  = "local"
)

// SignInput is one recognized sign. Clients may send either a bare string or
// an object with confidence and a unix-millis timestamp.
type SignInput struct {
	Token      string  `json:"token" validate:"required"`
	Confidence float64 `json:"confidence,omitempty" validate:"gte=0,lte=1"`
	Timestamp  int64   `json:"timestamp,omitempty"`
}

func (s *SignInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var token string
		if err := jsoniter.Unmarshal(data, &token); err != nil {
			return err
		}
		*s = SignInput{Token: token}
		return nil
	}

	type plain SignInput
	var p plain
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SignInput(p)
	return nil
}

func (s SignInput) At() time.Time {
	if s.Timestamp <= 0 {
		return time.Now()
	}
	return time.UnixMilli(s.Timestamp)
}

type TranslateRequest struct {
	Tokens []SignInput `json:"tokens" validate:"required,min=1,max=64,dive"`
}

type TranslateResponse struct {
	Response string         `json:"response"`
	Quality  oracle.Quality `json:"quality"`
	Source   string         `json:"source"`
	Warning  string         `json:"warning,omitempty"`
}

type HistoryRequest struct {
	Mode string `query:"mode" validate:"omitempty,oneof=DEAF BLIND MOTOR"`
}

type HistoryResponse struct {
	History []entity.History `json:"history"`
}
