package mode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignBuffer(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	b := NewSignBuffer(DefaultMinConfidence)

	_, ok := b.Add("   ", 1, at)
	assert.False(t, ok)
	assert.Zero(t, b.Revision())

	tok, ok := b.Add(" hello ", 1.7, at)
	require.True(t, ok)
	assert.Equal(t, SignToken{Token: "HELLO", Timestamp: at, Confidence: 1}, tok)

	b.Add("me", 0.3, at)
	b.Add("deaf", 0.5, at)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(3), b.Revision())
	assert.Equal(t, []string{"HELLO", "DEAF"}, b.Confident())

	tokens := b.Tokens()
	tokens[0].Token = "CHANGED"
	assert.Equal(t, "HELLO", b.Tokens()[0].Token)

	assert.True(t, b.Undo())
	assert.Equal(t, []string{"HELLO"}, b.Confident())
	assert.Equal(t, uint64(4), b.Revision())

	b.Clear()
	assert.Zero(t, b.Len())
	assert.False(t, b.Undo())
	assert.Equal(t, uint64(5), b.Revision())

	b.Clear()
	assert.Equal(t, uint64(5), b.Revision())
}

func TestParseEventKind(t *testing.T) {
	k, err := ParseEventKind(" Speech_Done ")
	require.NoError(t, err)
	assert.Equal(t, EventSpeechDone, k)

	for _, internal := range []string{"enter", "auto_translate", "sync", ""} {
		_, err := ParseEventKind(internal)
		assert.ErrorIs(t, err, ErrUnknownEvent, internal)
	}
}
