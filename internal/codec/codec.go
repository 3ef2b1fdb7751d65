// Package codec converts entity records to and from the text-safe JSON shape
// kept in the durable cache. Timestamps become ISO-8601 strings; every other
// field passes through unchanged.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/studyhub/internal/model"
)

// timeLayout matches what a browser's Date.toISOString produces.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Normalize returns t in UTC truncated to the precision the cache keeps.
// Records stamped with normalized times survive a round trip unchanged.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTime renders t as an ISO-8601 string in UTC with milliseconds.
func FormatTime(t time.Time) string {
	return Normalize(t).Format(timeLayout)
}

// ParseTime parses any RFC 3339 timestamp and normalizes it.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

// DecodeError reports a cache entry that could not be decoded. It matches
// model.ErrCacheDecodeFailed with errors.Is.
type DecodeError struct {
	Family string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s cache: %v", e.Family, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool {
	return target == model.ErrCacheDecodeFailed
}

// List encodes a whole family as a JSON array.
type List[T any] interface {
	Name() string
	Encode(items []T) (string, error)
	// Decode returns an empty collection for a missing or null blob. For a
	// malformed blob it returns an empty collection and a *DecodeError.
	Decode(blob string) ([]T, error)
}

// Object encodes a family that holds a single record as a JSON object.
type Object[T any] interface {
	Name() string
	Encode(item T) (string, error)
	// Decode reports ok=false for a missing or null blob.
	Decode(blob string) (item T, ok bool, err error)
}

type listCodec[T, W any] struct {
	name     string
	toWire   func(T) W
	fromWire func(W) (T, error)
}

func (c listCodec[T, W]) Name() string { return c.name }

func (c listCodec[T, W]) Encode(items []T) (string, error) {
	wire := make([]W, len(items))
	for i, it := range items {
		wire[i] = c.toWire(it)
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", c.name, err)
	}
	return string(b), nil
}

func (c listCodec[T, W]) Decode(blob string) ([]T, error) {
	if isEmptyBlob(blob) {
		return nil, nil
	}
	var wire []W
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, &DecodeError{Family: c.name, Err: err}
	}
	if len(wire) == 0 {
		return nil, nil
	}
	items := make([]T, 0, len(wire))
	for i, w := range wire {
		it, err := c.fromWire(w)
		if err != nil {
			return nil, &DecodeError{Family: c.name, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		items = append(items, it)
	}
	return items, nil
}

type objectCodec[T, W any] struct {
	name     string
	toWire   func(T) W
	fromWire func(W) (T, error)
}

func (c objectCodec[T, W]) Name() string { return c.name }

func (c objectCodec[T, W]) Encode(item T) (string, error) {
	b, err := json.Marshal(c.toWire(item))
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", c.name, err)
	}
	return string(b), nil
}

func (c objectCodec[T, W]) Decode(blob string) (T, bool, error) {
	var zero T
	if isEmptyBlob(blob) {
		return zero, false, nil
	}
	var w W
	if err := json.Unmarshal([]byte(blob), &w); err != nil {
		return zero, false, &DecodeError{Family: c.name, Err: err}
	}
	it, err := c.fromWire(w)
	if err != nil {
		return zero, false, &DecodeError{Family: c.name, Err: err}
	}
	return it, true, nil
}

func isEmptyBlob(blob string) bool {
	s := strings.TrimSpace(blob)
	return s == "" || s == "null"
}

// stampParser parses timestamp fields and keeps the first failure.
type stampParser struct {
	err error
}

func (p *stampParser) parse(field, raw string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := ParseTime(raw)
	if err != nil {
		p.err = fmt.Errorf("field %s: %w", field, err)
	}
	return t
}
