package phases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/pipelined/internal/aiparse"
	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// Outline drafts a section outline for a content piece from the business
// brief. Model failure falls back to a fixed article skeleton so the gate
// that follows always has something to review.
type Outline struct {
	deps *Deps
}

func (h *Outline) Name() string { return pipeline.PhaseOutline }

func (h *Outline) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	completion := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Completion, error) {
		return h.deps.AI.Complete(ctx, &collab.CompletionRequest{
			System: "You are a content strategist. Reply with JSON only.",
			User: fmt.Sprintf(
				"Outline an article for %q.\nBrief: %s\n"+
					`Reply with a JSON object {"sections": ["..."]} listing 4-8 section titles.`,
				hc.Profile.SiteName, hc.Profile.BusinessBrief),
			MaxTokens: h.deps.AITokens,
		})
	})

	result := &OutlineResult{FromModel: true}
	if completion.OK() {
		envelope, parsed := aiparse.ParseWithFallback(completion.Value.Text, outlineEnvelope{})
		if parsed && len(envelope.Sections) > 0 {
			result.Sections = envelope.Sections
			return &pipeline.Result{Value: result}, nil
		}
	}

	h.deps.Logger.Warn("outline from model unavailable, using skeleton",
		zap.String("build_id", hc.Run.ID),
	)
	result.FromModel = false
	result.Sections = []string{"Introduction", "Background", "Main Points", "Conclusion"}
	return &pipeline.Result{Value: result}, nil
}

type outlineEnvelope struct {
	Sections []string `json:"sections"`
}

// Draft writes the article body section by section from the approved
// outline. The model is the whole point here, so its failure is fatal.
type Draft struct {
	deps *Deps
}

func (h *Draft) Name() string { return pipeline.PhaseDraft }

func (h *Draft) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	outline, err := requireArtifact[OutlineResult](hc.Artifacts, pipeline.PhaseOutline)
	if err != nil {
		return nil, err
	}

	dialect, ok := h.deps.Dialects[hc.Profile.Dialect]
	if !ok {
		return nil, pipeline.NewConfigurationError("dialect",
			fmt.Errorf("unknown dialect %q", hc.Profile.Dialect))
	}

	completion, err := h.deps.AI.Complete(ctx, &collab.CompletionRequest{
		System: "You are a senior copywriter. Reply with JSON only.",
		User: fmt.Sprintf(
			"Write an article for %q covering these sections, in order:\n%s\nBrief: %s\n%s\n"+
				`Reply with a JSON object {"title": "...", "markup": "..."}.`,
			hc.Profile.SiteName, strings.Join(outline.Sections, "\n"),
			hc.Profile.BusinessBrief, dialect.Instructions),
		MaxTokens: h.deps.AITokens,
	})
	if err != nil {
		return nil, pipeline.NewExternalServiceError("ai", "draft article", err)
	}

	envelope, parsed := aiparse.ParseWithFallback(completion.Text, draftEnvelope{})
	if !parsed || envelope.Markup == "" {
		h.deps.Logger.Warn("draft envelope unparseable, using raw text",
			zap.String("build_id", hc.Run.ID),
		)
		envelope = draftEnvelope{Title: hc.Profile.SiteName, Markup: completion.Text}
	}
	if envelope.Title == "" {
		envelope.Title = hc.Profile.SiteName
	}

	return &pipeline.Result{Value: &DraftResult{
		Markup: envelope.Markup,
		Title:  envelope.Title,
	}}, nil
}

type draftEnvelope struct {
	Title  string `json:"title"`
	Markup string `json:"markup"`
}

// ContentSEO generates metadata for the approved draft. Unlike the page
// pipeline there is no deployed page yet; the metadata rides with the
// artifact and is applied at publish.
type ContentSEO struct {
	deps *Deps
}

func (h *ContentSEO) Name() string { return pipeline.PhaseContentSEO }

func (h *ContentSEO) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	draft, err := requireArtifact[DraftResult](hc.Artifacts, pipeline.PhaseDraft)
	if err != nil {
		return nil, err
	}

	seo := &SEO{deps: h.deps}
	meta, fromModel := seo.generateMetadata(ctx, hc.Profile, draft.Title)
	if !fromModel {
		h.deps.Logger.Warn("content seo metadata from model unavailable, using derived fallback",
			zap.String("build_id", hc.Run.ID),
		)
	}

	return &pipeline.Result{Value: &SEOResult{
		Meta:      *meta,
		Applied:   false,
		FromModel: fromModel,
	}}, nil
}

// ContentPublish creates or updates the article page on the CMS, live, and
// applies the metadata staged by the seo phase.
type ContentPublish struct {
	deps *Deps
}

func (h *ContentPublish) Name() string { return pipeline.PhaseContentPublish }

func (h *ContentPublish) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	draft, err := requireArtifact[DraftResult](hc.Artifacts, pipeline.PhaseDraft)
	if err != nil {
		return nil, err
	}

	page := &collab.Page{
		Title:   draft.Title,
		Slug:    slugify(draft.Title),
		Markup:  draft.Markup,
		Dialect: hc.Profile.Dialect,
		Live:    true,
	}

	pageID := hc.Profile.PageID
	exists := false
	if pageID != "" {
		exists, err = h.deps.CMS.PageExists(ctx, pageID)
		if err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "check page", err)
		}
	}
	if exists {
		if err := h.deps.CMS.UpdatePage(ctx, pageID, page); err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "update page", err)
		}
	} else {
		pageID, err = h.deps.CMS.CreatePage(ctx, page)
		if err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "create page", err)
		}
	}

	if seoResult, ok := artifactAs[SEOResult](hc.Artifacts, pipeline.PhaseContentSEO); ok && seoResult.Meta.Title != "" {
		if err := h.deps.CMS.UpdateSEOMetadata(ctx, pageID, &seoResult.Meta); err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "update seo metadata", err)
		}
	}

	return &pipeline.Result{Value: &PublishResult{
		PageID:      pageID,
		Live:        true,
		PublishedAt: time.Now().UTC(),
	}}, nil
}

// ContentReport summarizes the content run.
type ContentReport struct {
	deps *Deps
}

func (h *ContentReport) Name() string { return pipeline.PhaseContentReport }

func (h *ContentReport) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	metrics := map[string]string{}
	if outline, ok := artifactAs[OutlineResult](hc.Artifacts, pipeline.PhaseOutline); ok {
		metrics["outline_sections"] = fmt.Sprintf("%d", len(outline.Sections))
	}
	if draft, ok := artifactAs[DraftResult](hc.Artifacts, pipeline.PhaseDraft); ok {
		metrics["draft_characters"] = fmt.Sprintf("%d", len(draft.Markup))
	}
	if pub, ok := artifactAs[PublishResult](hc.Artifacts, pipeline.PhaseContentPublish); ok {
		metrics["page_id"] = pub.PageID
	}

	summary := fmt.Sprintf("Content piece for %s published.", hc.Profile.SiteName)
	completion := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Completion, error) {
		var lines []string
		for key, value := range metrics {
			lines = append(lines, fmt.Sprintf("%s: %s", key, value))
		}
		return h.deps.AI.Complete(ctx, &collab.CompletionRequest{
			System:    "You summarize publishing results for a non-technical client. Reply with one short paragraph, no preamble.",
			User:      fmt.Sprintf("Site: %s\nMetrics:\n%s", hc.Profile.SiteName, strings.Join(lines, "\n")),
			MaxTokens: h.deps.AITokens,
		})
	})
	if completion.OK() && strings.TrimSpace(completion.Value.Text) != "" {
		summary = strings.TrimSpace(completion.Value.Text)
	}

	return &pipeline.Result{Value: &ReportResult{
		Summary: summary,
		Metrics: metrics,
	}}, nil
}
