// Package entity holds one store per entity family. Each store owns a single
// key in the durable cache and rewrites the whole family on every mutation.
package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/ident"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/storage"
)

// Cache is the durable key/value store backing the families.
// Implemented by storage.Store. Get returns storage.ErrNotFound for a missing key.
type Cache interface {
	Get(key string) (string, error)
	Put(key, value string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Env carries the collaborators every store needs. Zero fields get defaults:
// the system clock, UUID identifiers and slog.Default.
type Env struct {
	Cache  Cache
	Clock  Clock
	IDs    ident.Generator
	Logger *slog.Logger
}

func (e Env) withDefaults() Env {
	if e.Clock == nil {
		e.Clock = realClock{}
	}
	if e.IDs == nil {
		e.IDs = ident.UUID{}
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	return e
}

// stamp returns the current time, forced strictly after prev so that every
// mutation moves updatedAt forward even when the clock stalls.
func (e Env) stamp(prev time.Time) time.Time {
	now := codec.Normalize(e.Clock.Now())
	if floor := prev.Add(time.Millisecond); !prev.IsZero() && now.Before(floor) {
		return floor
	}
	return now
}

// collection serializes access to one family. Every call decodes a fresh
// copy of the family, so nothing handed to callers aliases the cache.
type collection[T any] struct {
	mu     sync.Mutex
	cache  Cache
	codec  codec.List[T]
	logger *slog.Logger
}

func newCollection[T any](env Env, c codec.List[T]) *collection[T] {
	return &collection[T]{cache: env.Cache, codec: c, logger: env.Logger}
}

// load reads and decodes the family. A missing entry is an empty family; so
// is an undecodable one, which is logged and then overwritten by the next write.
// Caller must hold mu.
func (c *collection[T]) load() ([]T, error) {
	blob, err := c.cache.Get(c.codec.Name())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.codec.Name(), err)
	}
	items, err := c.codec.Decode(blob)
	if errors.Is(err, model.ErrCacheDecodeFailed) {
		c.logger.Warn("discarding undecodable cache entry", "family", c.codec.Name(), "error", err)
		return nil, nil
	}
	return items, err
}

// list returns a fresh snapshot of the family.
func (c *collection[T]) list() ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// mutate runs fn over a fresh copy of the family and persists the result in a
// single Put. If fn, encoding or the write fails, the cache is left unchanged.
func (c *collection[T]) mutate(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	blob, err := c.codec.Encode(items)
	if err != nil {
		return err
	}
	if err := c.cache.Put(c.codec.Name(), blob); err != nil {
		return fmt.Errorf("writing %s: %w", c.codec.Name(), err)
	}
	return nil
}

// find returns the first item whose key matches, or false.
func find[T any](items []T, key func(T) string, want string) (T, bool) {
	for _, it := range items {
		if key(it) == want {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func indexOf[T any](items []T, key func(T) string, want string) int {
	for i, it := range items {
		if key(it) == want {
			return i
		}
	}
	return -1
}

// remove deletes the item with the given key from the family and reports
// whether anything was removed. Nothing is written when the key is absent.
func remove[T any](c *collection[T], key func(T) string, want string) (bool, error) {
	err := c.mutate(func(items []T) ([]T, error) {
		i := indexOf(items, key, want)
		if i < 0 {
			return nil, errAbsent
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if errors.Is(err, errAbsent) {
		return false, nil
	}
	return err == nil, err
}

// errAbsent aborts a mutate without writing when the target is already gone.
var errAbsent = errors.New("absent")

func notFound(family, id string) error {
	return fmt.Errorf("%s %q: %w", family, id, model.ErrNotFound)
}

// result drops v when err is set so a failed write never returns a record.
func result[T any](v T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
