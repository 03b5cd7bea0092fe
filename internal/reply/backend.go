package reply

import (
	"context"
	"fmt"
)

// Backend sends a rendered prompt to a text-generation service and returns
// the raw JSON response body.
type Backend interface {
	Complete(ctx context.Context, prompt string) ([]byte, error)
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation endpoint status %d: %s", e.StatusCode, e.Body)
}
