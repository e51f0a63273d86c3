// Package alerttest provides an alert.Sender that records alerts.
package alerttest

import (
	"context"
	"strings"
	"sync"
)

type Alert struct {
	Message string
	Err     error
}

// Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) SendAlert(_ context.Context, msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, Alert{Message: msg, Err: err})
}

func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// Contains reports whether some alert message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, a := range r.Alerts() {
		if strings.Contains(a.Message, substr) {
			return true
		}
	}
	return false
}
