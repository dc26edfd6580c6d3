// Package uuid generates identifiers for harvest runs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered run identifiers.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string so run ids sort by start time.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// MustNewID is NewID falling back to a random UUIDv4 when the v7 clock source
// fails.
func (g Generator) MustNewID() string {
	if id, err := g.NewID(); err == nil {
		return id
	}
	return uuid.NewString()
}
