package utils

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewRequestID(t time.Time) string
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewRequestID sorts by arrival time; it falls back to a random UUID if the
// entropy source fails.
func (u *utils) NewRequestID(t time.Time) string {
	id, err := u.NewULIDFromTimestamp(t)
	if err != nil {
		return uuid.NewString()
	}
	return id
}
