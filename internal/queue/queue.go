// Package queue carries dispatch messages from submission to the worker.
// The durable implementation is a named Redis list; an in-memory variant
// exists for development and tests. Delivery is at-least-once: a message
// popped by a worker that crashes before the job reaches a terminal state is
// not redelivered.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// EncodeMessage serializes a dispatch message for transport.
func EncodeMessage(msg scrape.DispatchMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode dispatch message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses a dispatch message off the wire. Callers drop the
// payload on error rather than redelivering it.
func DecodeMessage(data []byte) (scrape.DispatchMessage, error) {
	var msg scrape.DispatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return scrape.DispatchMessage{}, fmt.Errorf("decode dispatch message: %w", err)
	}
	if msg.JobID == "" {
		return scrape.DispatchMessage{}, fmt.Errorf("decode dispatch message: missing job_id")
	}
	return msg, nil
}
