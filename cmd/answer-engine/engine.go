// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/pipeline"
	"github.com/pdiddy/answer-engine/internal/provider"
	"github.com/pdiddy/answer-engine/internal/telemetry"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// engine bundles what ask and serve need: the pipeline, the optional
// archive, and the telemetry shutdown hook.
type engine struct {
	cfg      types.Config
	pipeline *pipeline.Pipeline
	archive  *archive.Archive
	shutdown telemetry.Shutdown
}

// newEngine builds an engine from the loaded configuration. A missing
// language-model key is not fatal: the pipeline then runs with the default
// provider strategy and a digest in place of a synthesized answer.
func newEngine(ctx context.Context, cfg types.Config) (*engine, error) {
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	}

	reg, err := provider.Build(ctx, cfg.Providers, logger)
	if err != nil {
		return nil, err
	}

	gen, err := llm.New(ctx, cfg.LLM, &http.Client{Timeout: cfg.Providers.Timeout * 4}, logger)
	if err != nil {
		if !errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, err
		}
		logger.Warn("no language-model key configured; running without classification and synthesis",
			zap.String("backend", string(cfg.LLM.Backend)))
		gen = nil
	}

	p, err := pipeline.New(pipeline.Deps{Generator: gen, Registry: reg, Logger: logger}, cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	e := &engine{cfg: cfg, pipeline: p, shutdown: shutdown}
	if cfg.Archive.Enabled {
		a, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		e.archive = a
	}
	return e, nil
}

// record saves resp to the archive when one is open. Failures are logged;
// the answer was already produced.
func (e *engine) record(ctx context.Context, resp *types.PipelineResponse) {
	if e.archive == nil || resp == nil {
		return
	}
	if err := e.archive.Save(ctx, resp); err != nil {
		logger.Warn("archiving run failed", zap.String("request_id", resp.RequestID), zap.Error(err))
	}
}

func (e *engine) Close(ctx context.Context) {
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			logger.Warn("closing archive", zap.Error(err))
		}
	}
	if e.shutdown != nil {
		if err := e.shutdown(ctx); err != nil {
			logger.Warn("flushing telemetry", zap.Error(err))
		}
	}
}
