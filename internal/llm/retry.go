// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// retrying wraps a Generator with exponential backoff.
type retrying struct {
	next       Generator
	maxRetries int
	logger     *zap.Logger
}

// WithRetry returns a Generator that retries failed calls up to maxRetries
// times, doubling the delay each attempt. maxRetries <= 0 disables retries.
// Context cancellation and permanent errors stop retrying immediately.
func WithRetry(g Generator, maxRetries int, logger *zap.Logger) Generator {
	if maxRetries <= 0 {
		return g
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrying{next: g, maxRetries: maxRetries, logger: logger}
}

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			r.logger.Debug("retrying generation",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := r.next.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if permanent(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}

// permanent reports whether err would fail the same way on a retry: a
// rejected request (400, 401, 403, 404, 422) or an empty answer, which for
// an identical prompt is almost always a content filter.
func permanent(err error) bool {
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	code := 0
	var se *StatusError
	var ge genai.APIError
	switch {
	case errors.As(err, &se):
		code = se.Code
	case errors.As(err, &ge):
		code = ge.Code
	}
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
