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

// fixEnvelope is the corrected-markup shape the model returns.
type fixEnvelope struct {
	Markup string `json:"markup"`
	Notes  string `json:"notes"`
}

// FixLoop performs at most one correction attempt per orchestrator pass.
// Convergence to passed or to exhausted iterations happens across
// invocations, never within one call; that bound on per-invocation work is
// deliberate.
//
// This is the one handler permitted to overwrite another phase's artifact:
// a successful correction rewrites the generation artifact through an
// explicit Correction.
type FixLoop struct {
	deps *Deps
}

func (h *FixLoop) Name() string { return pipeline.PhaseFixLoop }

func (h *FixLoop) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	visual, ok := artifactAs[VisualResult](hc.Artifacts, pipeline.PhaseVisualCompare)
	if !ok || visual.Passed {
		return &pipeline.Result{Value: &FixResult{
			Action:    FixActionPassed,
			Iteration: hc.Run.FixIteration,
		}}, nil
	}

	if hc.Run.FixIteration >= h.deps.Cfg.MaxFixIterations {
		h.deps.Logger.Info("fix loop exhausted",
			zap.String("build_id", hc.Run.ID),
			zap.Int("iterations", hc.Run.FixIteration),
		)
		return &pipeline.Result{Value: &FixResult{
			Action:    FixActionExhausted,
			Iteration: hc.Run.FixIteration,
		}}, nil
	}

	remaining := nonMinor(visual.Differences)
	if len(remaining) == 0 {
		return &pipeline.Result{Value: &FixResult{
			Action:    FixActionClean,
			Iteration: hc.Run.FixIteration,
		}}, nil
	}

	gen, err := requireArtifact[GenerationResult](hc.Artifacts, pipeline.PhaseGeneration)
	if err != nil {
		return nil, err
	}
	dialect, ok := h.deps.Dialects[gen.Dialect]
	if !ok {
		return nil, pipeline.NewConfigurationError("dialect", fmt.Errorf("unknown dialect %q", gen.Dialect))
	}

	// The iteration is consumed by the attempt, parseable result or not.
	hc.Run.FixIteration++

	completion, err := h.deps.AI.Complete(ctx, &collab.CompletionRequest{
		System:    dialect.Instructions + ` Correct the markup to address the listed differences. Reply with JSON {"markup": "...", "notes": "..."}.`,
		User:      fixPrompt(gen.Markup, remaining),
		MaxTokens: h.deps.AITokens,
	})
	if err != nil {
		return nil, pipeline.NewExternalServiceError("ai", "generate correction", err)
	}

	envelope, parsed := aiparse.ParseWithFallback(completion.Text, fixEnvelope{})
	if !parsed || strings.TrimSpace(envelope.Markup) == "" {
		// No change is the documented fallback for an unparseable
		// correction; the existing markup stays deployed.
		h.deps.Logger.Warn("correction unparseable, keeping current markup",
			zap.String("build_id", hc.Run.ID),
			zap.Int("iteration", hc.Run.FixIteration),
		)
		return &pipeline.Result{Value: &FixResult{
			Action:    FixActionUnparsed,
			Iteration: hc.Run.FixIteration,
			Addressed: len(remaining),
		}}, nil
	}

	corrected := GenerationResult{
		Markup:    envelope.Markup,
		Sections:  gen.Sections,
		Dialect:   gen.Dialect,
		Corrected: true,
		Iteration: hc.Run.FixIteration,
	}

	redeployed := false
	deploy, hasDeploy := artifactAs[DeployResult](hc.Artifacts, pipeline.PhaseDeploy)
	if hasDeploy && deploy.PageID != "" {
		exists, err := h.deps.CMS.PageExists(ctx, deploy.PageID)
		if err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "check target page", err)
		}
		if exists {
			page := &collab.Page{
				Title:   hc.Profile.SiteName,
				Slug:    slugify(hc.Profile.SiteName),
				Markup:  corrected.Markup,
				Dialect: corrected.Dialect,
			}
			if err := h.deps.CMS.UpdatePage(ctx, deploy.PageID, page); err != nil {
				return nil, pipeline.NewExternalServiceError("cms", "redeploy corrected markup", err)
			}
			redeployed = true
		}
	}

	h.deps.Logger.Info("applied fix iteration",
		zap.String("build_id", hc.Run.ID),
		zap.Int("iteration", hc.Run.FixIteration),
		zap.Int("addressed", len(remaining)),
		zap.Bool("redeployed", redeployed),
	)

	return &pipeline.Result{
		Value: &FixResult{
			Action:     FixActionCorrected,
			Iteration:  hc.Run.FixIteration,
			Addressed:  len(remaining),
			Redeployed: redeployed,
		},
		Corrections: []pipeline.Correction{
			{Phase: pipeline.PhaseGeneration, Value: &corrected},
		},
	}, nil
}

func nonMinor(diffs []Difference) []Difference {
	var out []Difference
	for _, d := range diffs {
		if d.Severity != "minor" {
			out = append(out, d)
		}
	}
	return out
}

func fixPrompt(markup string, diffs []Difference) string {
	var b strings.Builder
	b.WriteString("Differences to address:\n")
	for _, d := range diffs {
		fmt.Fprintf(&b, "- [%s/%s] %s\n", d.Breakpoint, d.Severity, d.Description)
	}
	b.WriteString("\nCurrent markup:\n")
	b.WriteString(markup)
	return b.String()
}
