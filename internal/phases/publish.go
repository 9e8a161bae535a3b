package phases

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
)

// Publish flips the deployed page live on the CMS.
type Publish struct {
	deps *Deps
}

func (h *Publish) Name() string { return pipeline.PhasePublish }

func (h *Publish) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	deploy, err := requireArtifact[DeployResult](hc.Artifacts, pipeline.PhaseDeploy)
	if err != nil {
		return nil, err
	}
	gen, err := requireArtifact[GenerationResult](hc.Artifacts, pipeline.PhaseGeneration)
	if err != nil {
		return nil, err
	}

	page := &collab.Page{
		Title:   hc.Profile.SiteName,
		Slug:    slugify(hc.Profile.SiteName),
		Markup:  gen.Markup,
		Dialect: gen.Dialect,
		Live:    true,
	}
	if err := h.deps.CMS.UpdatePage(ctx, deploy.PageID, page); err != nil {
		return nil, pipeline.NewExternalServiceError("cms", "publish page", err)
	}

	return &pipeline.Result{Value: &PublishResult{
		PageID:      deploy.PageID,
		Live:        true,
		PublishedAt: time.Now().UTC(),
	}}, nil
}
