package otp

import (
	"context"
	"time"
)

// Entry is a pending code or a recorded ownership proof.
type Entry struct {
	Code     string    `json:"code,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
	Attempts int       `json:"attempts,omitempty"`
}

// Store keeps entries by key. Get of a missing key returns
// common.ErrorNotFound. Implementations may drop entries once they are
// older than their retention; the service still checks age itself.
type Store interface {
	Put(ctx context.Context, key string, e Entry) error
	Get(ctx context.Context, key string) (*Entry, error)
	Delete(ctx context.Context, key string) error
}
