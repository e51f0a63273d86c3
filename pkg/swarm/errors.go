package swarm

import (
	"errors"
	"fmt"
)

var (
	ErrBatchNotFound     = errors.New("swarm: postage batch not found")
	ErrBatchNotUsable    = errors.New("swarm: postage batch did not become usable in time")
	ErrInvalidResponse   = errors.New("swarm: invalid response from bee node")
	ErrRequestFailed     = errors.New("swarm: request to bee node failed")
	ErrInvalidBatchID    = errors.New("swarm: invalid batch id")
	ErrInvalidParameters = errors.New("swarm: invalid batch parameters")
)

// APIError is a non-2xx answer from the Bee API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bee api: %d %s", e.StatusCode, e.Message)
}
