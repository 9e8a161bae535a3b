package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/aiparse"
	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// Classification asks the model to tag each extracted section with a type
// and complexity tier. This phase never fails: a model or parse failure
// falls back to a deterministic default classification.
type Classification struct {
	deps *Deps
}

func (h *Classification) Name() string { return pipeline.PhaseClassification }

func (h *Classification) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	analysis, err := requireArtifact[AnalysisResult](hc.Artifacts, pipeline.PhaseAnalysis)
	if err != nil {
		return nil, err
	}

	result := &ClassificationResult{}

	call := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Completion, error) {
		return h.deps.AI.Complete(ctx, &collab.CompletionRequest{
			System:    "You classify website sections. Reply with only a JSON array; each element has id, type (hero, content, gallery, contact, footer), and complexity (simple, standard, complex).",
			User:      classifyPrompt(analysis.Sections),
			MaxTokens: h.deps.AITokens,
		})
	})

	if call.OK() {
		if parsed, ok := parseClasses(call.Value.Text); ok {
			result.Sections = alignClasses(parsed, analysis.Sections)
			result.FromModel = true
		}
	}

	if !result.FromModel {
		h.deps.Logger.Warn("classification fell back to defaults",
			zap.String("build_id", hc.Run.ID),
			zap.Error(call.Err),
		)
		result.Sections = defaultClasses(analysis.Sections)
	}

	return &pipeline.Result{Value: result}, nil
}

func classifyPrompt(sections []collab.Section) string {
	var b strings.Builder
	b.WriteString("Sections:\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "- id=%s name=%s text=%.80s\n", s.ID, s.Name, s.Text)
	}
	return b.String()
}

// parseClasses extracts the JSON array from model output.
func parseClasses(text string) ([]SectionClass, bool) {
	arr, ok := aiparse.ExtractArray(text)
	if !ok {
		return nil, false
	}
	var out []SectionClass
	for _, item := range arr.Array() {
		sc := SectionClass{
			ID:         item.Get("id").String(),
			Type:       item.Get("type").String(),
			Complexity: item.Get("complexity").String(),
		}
		if sc.ID != "" {
			out = append(out, sc)
		}
	}
	return out, len(out) > 0
}

// alignClasses keeps model tags for known sections and fills defaults for
// any the model skipped.
func alignClasses(parsed []SectionClass, sections []collab.Section) []SectionClass {
	byID := make(map[string]SectionClass, len(parsed))
	for _, sc := range parsed {
		byID[sc.ID] = sc
	}
	defaults := defaultClasses(sections)
	out := make([]SectionClass, 0, len(sections))
	for i, s := range sections {
		if sc, ok := byID[s.ID]; ok {
			if sc.Type == "" {
				sc.Type = defaults[i].Type
			}
			if sc.Complexity == "" {
				sc.Complexity = defaults[i].Complexity
			}
			out = append(out, sc)
			continue
		}
		out = append(out, defaults[i])
	}
	return out
}

// defaultClasses is the deterministic fallback: first section is the hero,
// everything else is standard content, with complexity keyed off text size.
func defaultClasses(sections []collab.Section) []SectionClass {
	out := make([]SectionClass, 0, len(sections))
	for i, s := range sections {
		sc := SectionClass{ID: s.ID, Type: "content", Complexity: "standard"}
		if i == 0 {
			sc.Type = "hero"
		}
		if len(s.Text) > 600 || len(s.ImageIDs) > 3 {
			sc.Complexity = "complex"
		} else if len(s.Text) < 80 && len(s.ImageIDs) == 0 {
			sc.Complexity = "simple"
		}
		out = append(out, sc)
	}
	return out
}
