// Package capability wraps each third-party API behind a client that makes
// one bounded outbound call and reports the outcome as a Result. No client
// returns a Go error or panics past its public methods.
package capability

import (
	"errors"
	"time"
)

// ErrNotConfigured is logged when a capability is called without credentials.
var ErrNotConfigured = errors.New("capability not configured")

// Result is the uniform outcome of a capability call.
type Result[T any] struct {
	Success  bool   `json:"success"`
	Payload  T      `json:"data"`
	Error    string `json:"error,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

func succeed[T any](payload T) Result[T] {
	return Result[T]{Success: true, Payload: payload}
}

func fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

func disabled[T any](capability string) Result[T] {
	return Result[T]{Error: capability + " is not configured", Disabled: true}
}

// Recorder receives one observation per call. metrics.Collector satisfies it.
type Recorder interface {
	RecordCapabilityCall(capability, outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordCapabilityCall(string, string, time.Duration) {}

// Status is a point-in-time view of one capability for health and admin output.
type Status struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Provider   string `json:"provider,omitempty"`
	Breaker    string `json:"breaker"`
}
