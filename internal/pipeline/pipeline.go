// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one query end to end: classification, concurrent
// provider dispatch, aggregation, synthesis, and response assembly. A
// Pipeline holds only fixed configuration and may serve concurrent requests.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/aggregate"
	"github.com/pdiddy/answer-engine/internal/classify"
	"github.com/pdiddy/answer-engine/internal/dispatch"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/provider"
	"github.com/pdiddy/answer-engine/internal/synthesize"
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Deps are the collaborators a Pipeline is built from.
type Deps struct {
	// Generator serves both classification and synthesis. A nil Generator
	// is allowed; both stages then run in degraded mode.
	Generator llm.Generator
	Registry  *provider.Registry
	Logger    *zap.Logger
}

// Pipeline is the query entry point.
type Pipeline struct {
	cfg         types.PipelineConfig
	registry    *provider.Registry
	fallback    []types.ProviderName
	classifier  *classify.Classifier
	dispatcher  *dispatch.Dispatcher
	synthesizer *synthesize.Synthesizer
	logger      *zap.Logger
	newID       func() string
}

// New wires a Pipeline. It fails when no provider is registered or a
// fallback provider name is invalid.
func New(deps Deps, cfg types.PipelineConfig) (*Pipeline, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Registry == nil || deps.Registry.Len() == 0 {
		return nil, fatal(ErrNoProviders)
	}

	fallback, err := resolveFallback(deps.Registry, cfg.FallbackProviders)
	if err != nil {
		return nil, fatal(fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}

	return &Pipeline{
		cfg:         cfg,
		registry:    deps.Registry,
		fallback:    fallback,
		classifier:  classify.New(deps.Generator, deps.Registry, fallback, logger),
		dispatcher:  dispatch.New(deps.Registry, logger),
		synthesizer: synthesize.New(deps.Generator, cfg.ExtendedThreshold, logger),
		logger:      logger,
		newID:       uuid.NewString,
	}, nil
}

// resolveFallback keeps the configured fallback providers that are
// registered. With none configured, or none registered, the first two
// registered providers are used so the fallback set is never empty.
func resolveFallback(reg *provider.Registry, names []string) ([]types.ProviderName, error) {
	if len(names) == 0 {
		names = make([]string, len(types.DefaultFallbackProviders))
		for i, p := range types.DefaultFallbackProviders {
			names[i] = string(p)
		}
	}
	var parsed []types.ProviderName
	for _, s := range names {
		p, ok := types.ParseProviderName(s)
		if !ok {
			return nil, fmt.Errorf("unknown fallback provider %q", s)
		}
		parsed = append(parsed, p)
	}
	known, _ := reg.Filter(parsed)
	if len(known) == 0 {
		all := reg.Names()
		if len(all) > 2 {
			all = all[:2]
		}
		known = all
	}
	return known, nil
}

// Fallback returns the provider set used when nothing else resolves.
func (p *Pipeline) Fallback() []types.ProviderName {
	return append([]types.ProviderName(nil), p.fallback...)
}

// Registry returns the registered adapters.
func (p *Pipeline) Registry() *provider.Registry { return p.registry }

// Run answers query. The only error it returns is a *FatalError raised
// before dispatch; every later failure degrades into the response.
func (p *Pipeline) Run(ctx context.Context, query string, opts types.Options) (*types.PipelineResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fatal(ErrEmptyQuery)
	}
	if err := opts.Validate(); err != nil {
		return nil, fatal(fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}
	opts = opts.WithDefaults(p.cfg)

	tr := trace.New(p.newID())
	start := time.Now()

	ctx, span := otel.Tracer("github.com/pdiddy/answer-engine/internal/pipeline").Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", tr.RequestID))
	tr.Add(trace.StageSearchStart, map[string]any{
		"query":   query,
		"options": opts,
	})
	log := p.logger.With(zap.String("request_id", tr.RequestID))
	log.Info("search started", zap.String("query", query))

	cls := p.classifier.Classify(ctx, query, tr)

	providers := p.resolveProviders(cls, opts, tr)

	results := p.dispatcher.Dispatch(ctx, query, providers, opts.PerProviderTimeout, tr)

	in := aggregate.Aggregate(providers, results)

	synthesis := p.synthesizer.Synthesize(ctx, query, in, opts.MaxSynthesisTokens, tr)

	succeeded := 0
	for _, r := range results {
		if r.OK() {
			succeeded++
		}
	}
	elapsed := time.Since(start)
	tr.Add(trace.StageSearchComplete, map[string]any{
		"duration_ms":   elapsed.Milliseconds(),
		"success_count": succeeded,
		"total":         len(results),
	})
	tr.Freeze()
	span.SetAttributes(
		attribute.Int("providers.succeeded", succeeded),
		attribute.Int("providers.total", len(results)),
		attribute.Bool("classification.degraded", cls.Degraded),
	)

	log.Info("search complete",
		zap.Duration("duration", elapsed),
		zap.Int("succeeded", succeeded),
		zap.Int("providers", len(results)),
		zap.Bool("classification_degraded", cls.Degraded))

	return Assemble(query, cls, results, synthesis, tr), nil
}

// resolveProviders chooses the dispatch list: an explicit override wins over
// the classification, unregistered names are dropped, the list is capped at
// MaxProviders, and an empty result becomes the fallback set.
func (p *Pipeline) resolveProviders(cls types.Classification, opts types.Options, tr *trace.Trace) []types.ProviderName {
	source := "classification"
	requested := cls.RecommendedProviders
	if len(opts.Providers) > 0 {
		source = "override"
		requested = opts.Providers
	}

	known, unknown := p.registry.Filter(requested)
	if opts.MaxProviders > 0 && len(known) > opts.MaxProviders {
		known = known[:opts.MaxProviders]
	}
	if len(known) == 0 {
		source = "fallback"
		known = p.Fallback()
		if opts.MaxProviders > 0 && len(known) > opts.MaxProviders {
			known = known[:opts.MaxProviders]
		}
	}

	payload := map[string]any{
		"providers": known,
		"source":    source,
	}
	if len(unknown) > 0 {
		payload["dropped"] = unknown
	}
	tr.Add(trace.StageProvidersResolved, payload)
	return known
}
