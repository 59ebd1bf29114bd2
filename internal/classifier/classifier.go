// Package classifier is the contract with the external model that suggests
// column mappings, categories and subscription classifications.
//
// Every request carries an explicit item index; results are merged back by
// that index only. A response that fails validation is a classifier failure
// and callers take their own fallback path.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type Task string

const (
	TaskMapping       Task = "mapping"
	TaskCategorize    Task = "categorize"
	TaskSubscriptions Task = "subscriptions"
)

// Item is one unit of work. Fields hold the text or values the model sees.
type Item struct {
	Index  int            `json:"index"`
	Fields map[string]any `json:"fields"`
}

type Request struct {
	Task  Task   `json:"task"`
	Items []Item `json:"items"`
	// Options are task-level hints, e.g. the allowed field names for mapping.
	Options map[string]any `json:"options,omitempty"`
}

// Response carries one raw result object per answered item. Each object must
// include "index" and is decoded by the caller into its task-specific type.
type Response struct {
	Results []json.RawMessage `json:"results"`
}

type Classifier interface {
	Classify(ctx context.Context, req Request) (*Response, error)
}

type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable"
	KindTimeout     ErrorKind = "timeout"
	KindAuth        ErrorKind = "auth"
	KindMalformed   ErrorKind = "malformed"
)

// ServiceError is an expected classifier failure. It never aborts an import.
type ServiceError struct {
	Kind ErrorKind
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("classifier %s: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

var ErrNotConfigured = errors.New("no classifier configured")

// None is used when no provider is configured; every call is unavailable.
type None struct{}

func (None) Classify(context.Context, Request) (*Response, error) {
	return nil, &ServiceError{Kind: KindUnavailable, Err: ErrNotConfigured}
}

// AsServiceError normalises any classifier error into a *ServiceError.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ServiceError{Kind: KindTimeout, Err: err}
	}

	return &ServiceError{Kind: KindUnavailable, Err: err}
}
