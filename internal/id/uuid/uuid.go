// Package uuid provides job id generation helpers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates prefixed job ids backed by random UUIDs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewJobID returns a "job_" prefixed UUIDv4 string.
func (Generator) NewJobID() string {
	return fmt.Sprintf("job_%s", uuid.NewString())
}
