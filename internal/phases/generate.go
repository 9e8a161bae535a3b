package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/aiparse"
	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// generationEnvelope is the JSON shape the model is asked to produce.
type generationEnvelope struct {
	Markup   string   `json:"markup"`
	Sections []string `json:"sections"`
}

// Generation asks the model to produce page markup in the profile's target
// dialect. The model call is fatal on failure; an unparseable envelope falls
// back to using the raw text as markup.
type Generation struct {
	deps *Deps
}

func (h *Generation) Name() string { return pipeline.PhaseGeneration }

func (h *Generation) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	analysis, err := requireArtifact[AnalysisResult](hc.Artifacts, pipeline.PhaseAnalysis)
	if err != nil {
		return nil, err
	}
	classes, err := requireArtifact[ClassificationResult](hc.Artifacts, pipeline.PhaseClassification)
	if err != nil {
		return nil, err
	}

	dialect, ok := h.deps.Dialects[hc.Profile.Dialect]
	if !ok {
		return nil, pipeline.NewConfigurationError("dialect", fmt.Errorf("unknown dialect %q", hc.Profile.Dialect))
	}

	completion, err := h.deps.AI.Complete(ctx, &collab.CompletionRequest{
		System:    dialect.Instructions + ` Reply with a JSON object {"markup": "...", "sections": ["..."]}.`,
		User:      generatePrompt(hc.Profile, analysis, classes),
		MaxTokens: h.deps.AITokens,
	})
	if err != nil {
		return nil, pipeline.NewExternalServiceError("ai", "generate markup", err)
	}

	envelope, parsed := aiparse.ParseWithFallback(completion.Text, generationEnvelope{
		Markup: strings.TrimSpace(completion.Text),
	})
	if !parsed || envelope.Markup == "" {
		// Raw text as markup is the documented fallback for this phase.
		envelope.Markup = strings.TrimSpace(completion.Text)
		h.deps.Logger.Warn("generation envelope unparseable, using raw text",
			zap.String("build_id", hc.Run.ID),
		)
	}

	return &pipeline.Result{Value: &GenerationResult{
		Markup:   envelope.Markup,
		Sections: envelope.Sections,
		Dialect:  dialect.Name,
	}}, nil
}

func generatePrompt(profile *pipeline.Profile, analysis AnalysisResult, classes ClassificationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build the %s page.\n", profile.SiteName)
	if profile.BusinessBrief != "" {
		fmt.Fprintf(&b, "Brief: %s\n", profile.BusinessBrief)
	}
	if analysis.Summary != "" {
		fmt.Fprintf(&b, "Design summary: %s\n", analysis.Summary)
	}
	if len(analysis.Colors) > 0 {
		fmt.Fprintf(&b, "Palette: %s\n", strings.Join(analysis.Colors, ", "))
	}
	b.WriteString("Sections:\n")
	for i, s := range analysis.Sections {
		class := SectionClass{Type: "content", Complexity: "standard"}
		if i < len(classes.Sections) {
			class = classes.Sections[i]
		}
		fmt.Fprintf(&b, "- %s (%s, %s): %s\n", s.Name, class.Type, class.Complexity, s.Text)
	}
	return b.String()
}
