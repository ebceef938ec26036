// Package outcome carries the result of a call to a remote collaborator.
//
// A gateway never hands raw provider payloads to its caller. It returns a
// Result that is either OK, Degraded (the call failed but a safe substitute
// value is present) or Failed (no substitute exists).
package outcome

import "errors"

var errUnspecified = errors.New("unspecified failure")

// Status 标记一次远程调用的结果类别。
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Result is a tagged variant over a gateway's value.
type Result[T any] struct {
	Value  T
	Status Status
	Reason error
}

// Success wraps a value produced by the remote call itself.
func Success[T any](value T) Result[T] {
	return Result[T]{Value: value, Status: StatusOK}
}

// Degraded wraps a fallback value used because the remote call failed.
func Degraded[T any](fallback T, reason error) Result[T] {
	return Result[T]{Value: fallback, Status: StatusDegraded, Reason: reason}
}

// Failed reports a failure with no usable value.
func Failed[T any](reason error) Result[T] {
	if reason == nil {
		reason = errUnspecified
	}
	return Result[T]{Status: StatusFailed, Reason: reason}
}

func (r Result[T]) OK() bool { return r.Status == StatusOK }

func (r Result[T]) IsDegraded() bool { return r.Status == StatusDegraded }

func (r Result[T]) IsFailed() bool { return r.Status == StatusFailed }

// Usable reports whether Value can be handed to the next pipeline stage.
func (r Result[T]) Usable() bool {
	return r.Status == StatusOK || r.Status == StatusDegraded
}

// Unwrap converts the result into the usual Go pair. Degraded results count as
// success: the fallback value is returned with a nil error.
func (r Result[T]) Unwrap() (T, error) {
	if r.Status == StatusFailed {
		var zero T
		return zero, r.Reason
	}
	return r.Value, nil
}
