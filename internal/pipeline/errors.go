// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "errors"

// Sentinel causes of a FatalError.
var (
	ErrEmptyQuery     = errors.New("query is empty")
	ErrNoProviders    = errors.New("no providers are registered")
	ErrInvalidOptions = errors.New("invalid options")
)

// FatalError aborts a request before any provider is dispatched. It is the
// only error Run returns; provider, classification, and synthesis problems
// are reported inside the response instead.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "pipeline: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(err error) error { return &FatalError{Err: err} }
