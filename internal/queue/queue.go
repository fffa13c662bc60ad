package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Envelope is the JSON wrapper every job travels in.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler processes one job. A nil return acknowledges the job. A plain
// error requeues it until the attempt budget runs out; wrap with Permanent
// to drop the job without retrying.
type Handler func(ctx context.Context, job Envelope) error

type permanentError struct {
	err error
}

func (p *permanentError) Error() string {
	return "permanent: " + p.err.Error()
}

func (p *permanentError) Unwrap() error {
	return p.err
}

// Permanent marks err as non-retryable: the job is acknowledged and logged,
// never redelivered.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the no-retry marker.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
