package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
)

// Report aggregates the run's artifacts into human-readable metrics and a
// short model-written narrative. Aggregation is pure; the narrative is
// best-effort.
type Report struct {
	deps *Deps
}

func (h *Report) Name() string { return pipeline.PhaseReport }

func (h *Report) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	metrics := collectMetrics(hc)

	summary := h.narrative(ctx, hc, metrics)

	return &pipeline.Result{Value: &ReportResult{
		Summary: summary,
		Metrics: metrics,
	}}, nil
}

func collectMetrics(hc *pipeline.HandlerContext) map[string]string {
	metrics := map[string]string{
		"fix_iterations": fmt.Sprintf("%d", hc.Run.FixIteration),
	}

	if analysis, ok := artifactAs[AnalysisResult](hc.Artifacts, pipeline.PhaseAnalysis); ok {
		metrics["sections"] = fmt.Sprintf("%d", len(analysis.Sections))
	}
	if assets, ok := artifactAs[AssetsResult](hc.Artifacts, pipeline.PhaseAssets); ok {
		metrics["assets_uploaded"] = fmt.Sprintf("%d", assets.Uploaded)
		metrics["assets_failed"] = fmt.Sprintf("%d", assets.Failed)
	}
	if visual, ok := artifactAs[VisualResult](hc.Artifacts, pipeline.PhaseVisualCompare); ok {
		metrics["visual_score"] = fmt.Sprintf("%d", visual.Overall)
		metrics["visual_passed"] = fmt.Sprintf("%t", visual.Passed)
	}
	if fix, ok := artifactAs[FixResult](hc.Artifacts, pipeline.PhaseFixLoop); ok {
		metrics["fix_outcome"] = fix.Action
	}
	if qa, ok := artifactAs[QAResult](hc.Artifacts, pipeline.PhaseFunctionalQA); ok {
		metrics["links_checked"] = fmt.Sprintf("%d", qa.LinksChecked)
		metrics["broken_links"] = fmt.Sprintf("%d", qa.BrokenLinks)
		metrics["audit"] = auditSummary(qa.AuditScores)
	}
	return metrics
}

func (h *Report) narrative(ctx context.Context, hc *pipeline.HandlerContext, metrics map[string]string) string {
	var lines []string
	for key, value := range metrics {
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
	}

	completion := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Completion, error) {
		return h.deps.AI.Complete(ctx, &collab.CompletionRequest{
			System: "You summarize build results for a non-technical client. Reply with one short paragraph, no preamble.",
			User: fmt.Sprintf("Site: %s\nMetrics:\n%s",
				hc.Profile.SiteName, strings.Join(lines, "\n")),
			MaxTokens: h.deps.AITokens,
		})
	})
	if completion.OK() && strings.TrimSpace(completion.Value.Text) != "" {
		return strings.TrimSpace(completion.Value.Text)
	}
	return fmt.Sprintf("Build for %s finished. %s", hc.Profile.SiteName, strings.Join(lines, "; "))
}
