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

// SEO generates search metadata for the deployed page and applies it on the
// CMS. Model failure falls back to deterministic metadata derived from the
// profile; applying the metadata is the phase's real contract and failing
// that is fatal.
type SEO struct {
	deps *Deps
}

func (h *SEO) Name() string { return pipeline.PhaseSEO }

func (h *SEO) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	deploy, err := requireArtifact[DeployResult](hc.Artifacts, pipeline.PhaseDeploy)
	if err != nil {
		return nil, err
	}

	summary := ""
	if analysis, ok := artifactAs[AnalysisResult](hc.Artifacts, pipeline.PhaseAnalysis); ok {
		summary = analysis.Summary
	}

	meta, fromModel := h.generateMetadata(ctx, hc.Profile, summary)
	if !fromModel {
		h.deps.Logger.Warn("seo metadata from model unavailable, using derived fallback",
			zap.String("build_id", hc.Run.ID),
		)
	}

	if err := h.deps.CMS.UpdateSEOMetadata(ctx, deploy.PageID, meta); err != nil {
		return nil, pipeline.NewExternalServiceError("cms", "update seo metadata", err)
	}

	return &pipeline.Result{Value: &SEOResult{
		Meta:      *meta,
		Applied:   true,
		FromModel: fromModel,
	}}, nil
}

func (h *SEO) generateMetadata(ctx context.Context, profile *pipeline.Profile, summary string) (*collab.SEOMetadata, bool) {
	prompt := fmt.Sprintf(
		"Write SEO metadata for the website %q.\nPage summary: %s\nBusiness brief: %s\n"+
			`Reply with a JSON object {"title": "...", "description": "...", "keywords": "..."}. `+
			"Keep the title under 60 characters and the description under 160.",
		profile.SiteName, summary, profile.BusinessBrief,
	)

	completion := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Completion, error) {
		return h.deps.AI.Complete(ctx, &collab.CompletionRequest{
			System:    "You are an SEO specialist. Reply with JSON only.",
			User:      prompt,
			MaxTokens: h.deps.AITokens,
		})
	})
	if !completion.OK() {
		return derivedMetadata(profile, summary), false
	}

	meta, parsed := aiparse.ParseWithFallback(completion.Value.Text, collab.SEOMetadata{})
	if !parsed || meta.Title == "" {
		return derivedMetadata(profile, summary), false
	}
	return &meta, true
}

// derivedMetadata builds metadata from the profile alone so the phase can
// always complete its CMS write.
func derivedMetadata(profile *pipeline.Profile, summary string) *collab.SEOMetadata {
	desc := summary
	if desc == "" {
		desc = profile.BusinessBrief
	}
	if len(desc) > 160 {
		desc = strings.TrimSpace(desc[:157]) + "..."
	}
	return &collab.SEOMetadata{
		Title:       profile.SiteName,
		Description: desc,
		Keywords:    strings.ToLower(profile.SiteName),
	}
}
