// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize asks the language model for one answer built from the
// aggregated evidence. It always returns text: model failures produce a
// labelled degraded answer instead of an error.
package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/aggregate"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// NoEvidenceFallback is returned when no provider succeeded and the model
// could not be reached either.
const NoEvidenceFallback = "No external evidence could be retrieved for this question, " +
	"and the language model was unavailable to answer it directly. Please try again later."

const digestSnippetLen = 280

var evidencePromptTmpl = template.Must(template.New("evidence").Parse(`Using the search results below, give a complete and accurate answer to the user's question.

Question: {{.Query}}

Search results:
{{.Evidence}}

In your answer:
1. Answer the question directly first.
2. Integrate the information from the different sources, citing them accurately.
3. If there are academic papers, mention their titles and authors.
4. If there is encyclopedia content, use it to explain the underlying concepts.
5. Label the source of every important statement.
`))

var noEvidencePromptTmpl = template.Must(template.New("no-evidence").Parse(`No external search results could be retrieved for the user's question below.

Question: {{.Query}}

Answer from general knowledge as well as you can. Start by stating clearly that no external evidence was retrieved, and flag any statement that may be out of date.
`))

// Synthesizer builds the synthesis prompt and calls the model once.
type Synthesizer struct {
	gen       llm.Generator
	threshold int
	logger    *zap.Logger
}

// New returns a Synthesizer. Serialized inputs longer than threshold
// characters go to the extended model; threshold <= 0 uses the default.
func New(gen llm.Generator, threshold int, logger *zap.Logger) *Synthesizer {
	if threshold <= 0 {
		threshold = types.DefaultExtendedThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gen: gen, threshold: threshold, logger: logger}
}

// Variant picks the model variant for an input of n serialized characters.
func (s *Synthesizer) Variant(n int) llm.Variant {
	if n > s.threshold {
		return llm.VariantExtended
	}
	return llm.VariantCompact
}

// Synthesize returns a non-empty answer for query. It appends
// summarization_start and then summarization_complete or
// summarization_error to tr.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, in aggregate.SynthesisInput, maxTokens int, tr *trace.Trace) string {
	evidence := in.Serialize()
	variant := s.Variant(len(evidence))

	tr.Add(trace.StageSummarizationStart, map[string]any{
		"query":         query,
		"sources_count": len(in.Sections),
		"item_count":    in.ItemCount(),
		"input_length":  len(evidence),
		"model_variant": variant,
	})

	prompt, err := renderPrompt(query, in, evidence)
	if err == nil {
		var text string
		text, err = s.generate(ctx, prompt, variant, maxTokens)
		if err == nil {
			tr.Add(trace.StageSummarizationComplete, map[string]any{
				"summary_length": len(text),
				"model_variant":  variant,
			})
			return text
		}
	}

	s.logger.Warn("synthesis degraded",
		zap.String("request_id", tr.ID()),
		zap.String("model_variant", string(variant)),
		zap.Error(err))
	tr.Add(trace.StageSummarizationError, map[string]any{
		"error":         err.Error(),
		"model_variant": variant,
	})
	if in.IsEmpty() {
		return NoEvidenceFallback
	}
	return Degraded(err, in)
}

func (s *Synthesizer) generate(ctx context.Context, prompt string, variant llm.Variant, maxTokens int) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("no language model configured")
	}
	text, err := s.gen.Generate(ctx, llm.Request{
		Prompt:          prompt,
		Variant:         variant,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func renderPrompt(query string, in aggregate.SynthesisInput, evidence string) (string, error) {
	tmpl := evidencePromptTmpl
	if in.IsEmpty() {
		tmpl = noEvidencePromptTmpl
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Query, Evidence string }{Query: query, Evidence: evidence}); err != nil {
		return "", fmt.Errorf("rendering synthesis prompt: %w", err)
	}
	return buf.String(), nil
}

// Degraded is the answer substituted when the model call fails: a labelled
// header followed by a plain-text digest of the evidence.
func Degraded(cause error, in aggregate.SynthesisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[synthesis unavailable: %v]\n", cause)
	if in.IsEmpty() {
		b.WriteString("\nNo external evidence was retrieved.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "\nRaw evidence from %d source(s):\n", len(in.Sections))
	for _, sec := range in.Sections {
		fmt.Fprintf(&b, "\n## %s\n", sec.Provider)
		for _, it := range sec.Items {
			fmt.Fprintf(&b, "- %s", it.Title)
			if it.SourceURL != "" {
				fmt.Fprintf(&b, " <%s>", it.SourceURL)
			}
			b.WriteString("\n")
			if snip := clip(it.Snippet, digestSnippetLen); snip != "" {
				fmt.Fprintf(&b, "  %s\n", snip)
			}
		}
	}
	return b.String()
}

func clip(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
