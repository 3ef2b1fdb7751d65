// Package ident produces identifiers for newly created records.
package ident

import "github.com/google/uuid"

// Generator produces a new, collision-resistant, URL-safe identifier.
// It never fails and never looks at the record being created.
type Generator interface {
	NewID() string
}

// UUID generates random (version 4) UUID strings.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }
