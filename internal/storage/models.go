package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested cache key does not exist.
var ErrNotFound = errors.New("not found")

// Entry is one family blob in the durable cache.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
