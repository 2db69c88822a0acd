package utils

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewSessionToken() (uint64, error)
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	// The shared entropy keeps ids minted in the same millisecond ordered.
	id, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewSessionToken returns a random non-zero token. Zero is reserved for
// events that do not carry a token.
func (u *utils) NewSessionToken() (uint64, error) {
	for {
		id, err := uuid.NewRandom()
		if err != nil {
			return 0, err
		}
		if token := binary.BigEndian.Uint64(id[:8]); token != 0 {
			return token, nil
		}
	}
}
