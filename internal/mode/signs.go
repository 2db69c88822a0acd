package mode

import (
	"strings"
	"time"
)

const DefaultMinConfidence = 0.5

type SignToken struct {
	Token      string    `json:"token"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// SignBuffer is the ordered list of recognized hand signs for one Deaf
// session. Every change bumps the revision.
type SignBuffer struct {
	tokens        []SignToken
	revision      uint64
	minConfidence float64
}

func NewSignBuffer(minConfidence float64) *SignBuffer {
	return &SignBuffer{minConfidence: minConfidence}
}

// Add appends a sign. Blank signs are rejected.
func (b *SignBuffer) Add(symbol string, confidence float64, at time.Time) (SignToken, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return SignToken{}, false
	}
	confidence = min(1, max(0, confidence))

	t := SignToken{Token: symbol, Timestamp: at, Confidence: confidence}
	b.tokens = append(b.tokens, t)
	b.revision++
	return t, true
}

func (b *SignBuffer) Undo() bool {
	if len(b.tokens) == 0 {
		return false
	}
	b.tokens = b.tokens[:len(b.tokens)-1]
	b.revision++
	return true
}

func (b *SignBuffer) Clear() {
	if len(b.tokens) == 0 {
		return
	}
	b.tokens = nil
	b.revision++
}

func (b *SignBuffer) Revision() uint64 {
	return b.revision
}

func (b *SignBuffer) Len() int {
	return len(b.tokens)
}

func (b *SignBuffer) Tokens() []SignToken {
	out := make([]SignToken, len(b.tokens))
	copy(out, b.tokens)
	return out
}

// Confident returns the symbols whose confidence clears the threshold.
func (b *SignBuffer) Confident() []string {
	out := make([]string, 0, len(b.tokens))
	for _, t := range b.tokens {
		if t.Confidence < b.minConfidence {
			continue
		}
		out = append(out, t.Token)
	}
	return out
}
