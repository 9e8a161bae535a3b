package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
)

// Analysis extracts structured sections, colors, typography, and image
// references from the design source and asks the model for a short summary.
// Purely additive; it performs no validation.
type Analysis struct {
	deps *Deps
}

func (h *Analysis) Name() string { return pipeline.PhaseAnalysis }

func (h *Analysis) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	file, err := h.deps.Design.GetFile(ctx, hc.Profile.DesignFileKey)
	if err != nil {
		return nil, pipeline.NewExternalServiceError("design", "fetch design file", err)
	}

	result := &AnalysisResult{
		Sections:   h.deps.Design.ExtractSections(file),
		Colors:     h.deps.Design.ExtractColors(file),
		Typography: h.deps.Design.ExtractTypography(file),
	}
	for _, s := range result.Sections {
		result.ImageIDs = append(result.ImageIDs, s.ImageIDs...)
	}

	names := make([]string, 0, len(result.Sections))
	for _, s := range result.Sections {
		names = append(names, s.Name)
	}

	completion, err := h.deps.AI.Complete(ctx, &collab.CompletionRequest{
		System:    "You summarize website design structure for a build log. Two sentences, plain language.",
		User:      fmt.Sprintf("The %s design has these sections: %s.", hc.Profile.SiteName, strings.Join(names, ", ")),
		MaxTokens: h.deps.AITokens,
	})
	if err != nil {
		return nil, pipeline.NewExternalServiceError("ai", "summarize design", err)
	}
	result.Summary = strings.TrimSpace(completion.Text)

	return &pipeline.Result{Value: result}, nil
}
