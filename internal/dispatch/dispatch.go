// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch runs the selected provider adapters concurrently, each
// under its own deadline, and collects exactly one ProviderResult per
// provider.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/provider"
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Dispatcher fans a query out to provider adapters. It holds no per-request
// state and may be shared.
type Dispatcher struct {
	reg    *provider.Registry
	logger *zap.Logger
	tracer oteltrace.Tracer
}

// New returns a Dispatcher over the adapters in reg.
func New(reg *provider.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		reg:    reg,
		logger: logger,
		tracer: otel.Tracer("github.com/pdiddy/answer-engine/internal/dispatch"),
	}
}

type outcome struct {
	items []types.ResultItem
	err   error
}

// Dispatch calls every provider in providers once, concurrently, and waits
// until each has succeeded, failed, or run past timeout. A failing or slow
// provider never affects its siblings. Cancelling ctx marks every unfinished
// provider as timed out. An empty providers list returns an empty map
// without touching tr.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, providers []types.ProviderName, timeout time.Duration, tr *trace.Trace) map[types.ProviderName]types.ProviderResult {
	results := make(map[types.ProviderName]types.ProviderResult, len(providers))
	if len(providers) == 0 {
		return results
	}
	if timeout <= 0 {
		timeout = types.DefaultPerProviderTimeout
	}

	tr.Add(trace.StageParallelSearchStart, map[string]any{
		"query":     query,
		"providers": providers,
		"timeout":   timeout.String(),
	})

	type keyed struct {
		name   types.ProviderName
		result types.ProviderResult
	}
	ch := make(chan keyed, len(providers))
	launched := 0
	for _, name := range providers {
		if _, dup := results[name]; dup {
			continue
		}
		results[name] = types.ProviderResult{}
		launched++
		go func(name types.ProviderName) {
			ch <- keyed{name: name, result: d.run(ctx, name, query, timeout, tr)}
		}(name)
	}

	success := 0
	for i := 0; i < launched; i++ {
		k := <-ch
		results[k.name] = k.result
		if k.result.OK() {
			success++
		}
	}

	tr.Add(trace.StageParallelSearchComplete, map[string]any{
		"success_count": success,
		"total":         launched,
	})
	d.logger.Info("parallel search complete",
		zap.String("request_id", tr.ID()),
		zap.Int("success_count", success),
		zap.Int("total", launched))
	return results
}

// run executes one provider unit. The adapter call happens in its own
// goroutine writing to a buffered channel, so an adapter that ignores ctx is
// abandoned at the deadline instead of blocking the dispatch.
func (d *Dispatcher) run(ctx context.Context, name types.ProviderName, query string, timeout time.Duration, tr *trace.Trace) types.ProviderResult {
	tr.Add(trace.ProviderStage(name, "start"), map[string]any{"query": query})
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "provider.search",
		oteltrace.WithAttributes(attribute.String("provider", string(name))))
	defer span.End()

	adapter, ok := d.reg.Get(name)
	if !ok {
		return d.failed(name, start, fmt.Errorf("provider %q is not registered", name), span, tr)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		items, err := adapter.Search(callCtx, query)
		done <- outcome{items: items, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		return d.timedOut(name, start, timeout, span, tr)
	}

	if out.err != nil {
		if callCtx.Err() != nil || errors.Is(out.err, context.DeadlineExceeded) {
			return d.timedOut(name, start, timeout, span, tr)
		}
		return d.failed(name, start, out.err, span, tr)
	}

	items := out.items
	if items == nil {
		items = []types.ResultItem{}
	}
	elapsed := time.Since(start)
	tr.Add(trace.ProviderStage(name, "complete"), map[string]any{
		"item_count":  len(items),
		"duration_ms": elapsed.Milliseconds(),
	})
	span.SetAttributes(attribute.Int("item_count", len(items)))
	d.logger.Debug("provider search complete",
		zap.String("request_id", tr.ID()),
		zap.String("provider", string(name)),
		zap.Int("items", len(items)),
		zap.Duration("duration", elapsed))
	return types.ProviderResult{
		Provider: name,
		Status:   types.StatusSuccess,
		Items:    items,
		Duration: elapsed,
	}
}

func (d *Dispatcher) failed(name types.ProviderName, start time.Time, err error, span oteltrace.Span, tr *trace.Trace) types.ProviderResult {
	elapsed := time.Since(start)
	tr.Add(trace.ProviderStage(name, "error"), map[string]any{
		"error":       err.Error(),
		"duration_ms": elapsed.Milliseconds(),
	})
	span.RecordError(err)
	span.SetStatus(codes.Error, "provider error")
	d.logger.Warn("provider search failed",
		zap.String("request_id", tr.ID()),
		zap.String("provider", string(name)),
		zap.Duration("duration", elapsed),
		zap.Error(err))
	return types.ProviderResult{
		Provider:    name,
		Status:      types.StatusError,
		Items:       []types.ResultItem{},
		ErrorDetail: err.Error(),
		Duration:    elapsed,
	}
}

func (d *Dispatcher) timedOut(name types.ProviderName, start time.Time, timeout time.Duration, span oteltrace.Span, tr *trace.Trace) types.ProviderResult {
	elapsed := time.Since(start)
	detail := fmt.Sprintf("no response within %v", timeout)
	tr.Add(trace.ProviderStage(name, "timeout"), map[string]any{
		"timeout":     timeout.String(),
		"duration_ms": elapsed.Milliseconds(),
	})
	span.SetStatus(codes.Error, "provider timeout")
	d.logger.Warn("provider search timed out",
		zap.String("request_id", tr.ID()),
		zap.String("provider", string(name)),
		zap.Duration("timeout", timeout))
	return types.ProviderResult{
		Provider:    name,
		Status:      types.StatusTimeout,
		Items:       []types.ResultItem{},
		ErrorDetail: detail,
		Duration:    elapsed,
	}
}
