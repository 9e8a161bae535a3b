package phases

import (
	"context"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// Deploy publishes the generated markup to the CMS. Idempotent by page ID:
// update when the target page exists, create otherwise.
type Deploy struct {
	deps *Deps
}

func (h *Deploy) Name() string { return pipeline.PhaseDeploy }

func (h *Deploy) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	gen, err := requireArtifact[GenerationResult](hc.Artifacts, pipeline.PhaseGeneration)
	if err != nil {
		return nil, err
	}

	page := &collab.Page{
		Title:   hc.Profile.SiteName,
		Slug:    slugify(hc.Profile.SiteName),
		Markup:  gen.Markup,
		Dialect: gen.Dialect,
	}

	pageID := hc.Profile.PageID
	exists := false
	if pageID != "" {
		exists, err = h.deps.CMS.PageExists(ctx, pageID)
		if err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "check target page", err)
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

	url := strings.TrimRight(hc.Profile.SiteURL, "/") + "/" + page.Slug
	h.deps.Logger.Info("deployed page",
		zap.String("build_id", hc.Run.ID),
		zap.String("page_id", pageID),
		zap.Bool("created", !exists),
	)

	return &pipeline.Result{Value: &DeployResult{
		PageID:  pageID,
		Created: !exists,
		URL:     url,
	}}, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
