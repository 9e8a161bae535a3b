package phases

import (
	"context"
	"fmt"
	"math"

	"github.com/fyrsmithlabs/pipelined/internal/aiparse"
	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// breakpointWeights aggregate per-viewport scores into the overall score.
var breakpointWeights = map[string]float64{
	"desktop": 0.5,
	"tablet":  0.25,
	"mobile":  0.25,
}

// comparisonEnvelope is the per-breakpoint shape the vision model returns.
type comparisonEnvelope struct {
	Score       int `json:"score"`
	Differences []struct {
		Severity    string `json:"severity"`
		Description string `json:"description"`
	} `json:"differences"`
}

// VisualCompare captures the deployed page at each breakpoint, scores it
// against the reference render with a vision call per breakpoint, and
// aggregates a weighted overall score against the configured threshold.
// Individual capture or comparison failures degrade to a zero score for
// that breakpoint; they never fail the phase.
type VisualCompare struct {
	deps *Deps
}

func (h *VisualCompare) Name() string { return pipeline.PhaseVisualCompare }

func (h *VisualCompare) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	deploy, err := requireArtifact[DeployResult](hc.Artifacts, pipeline.PhaseDeploy)
	if err != nil {
		return nil, err
	}

	result := &VisualResult{
		Threshold: h.deps.Cfg.VisualThreshold,
		Scores:    make(map[string]int),
	}

	for _, vp := range collab.DefaultViewports() {
		score, diffs := h.compareBreakpoint(ctx, hc, deploy.URL, vp)
		result.Scores[vp.Name] = score
		result.Differences = append(result.Differences, diffs...)
	}

	var overall float64
	for name, weight := range breakpointWeights {
		overall += float64(result.Scores[name]) * weight
	}
	result.Overall = int(math.Round(overall))
	result.Passed = result.Overall >= result.Threshold

	// Downstream phases and the fix loop read these off the run.
	hc.Run.VisualScore = result.Overall
	hc.Run.VisualPassed = result.Passed

	h.deps.Logger.Info("visual comparison scored",
		zap.String("build_id", hc.Run.ID),
		zap.Int("overall", result.Overall),
		zap.Bool("passed", result.Passed),
	)
	return &pipeline.Result{Value: result}, nil
}

// compareBreakpoint captures and scores one viewport. Scores are keyed by
// breakpoint name, so callers are free to fan these out concurrently later
// without reordering results.
func (h *VisualCompare) compareBreakpoint(ctx context.Context, hc *pipeline.HandlerContext, url string, vp collab.Viewport) (int, []Difference) {
	shot := outcome.TolerateTimeout(ctx, h.deps.Cfg.Timeouts.Screenshot, func(ctx context.Context) ([]byte, error) {
		return h.deps.Browser.Screenshot(ctx, url, vp)
	})
	if !shot.OK() {
		h.deps.Logger.Warn("screenshot capture failed",
			zap.String("breakpoint", vp.Name),
			zap.Error(shot.Err),
		)
		return 0, []Difference{{Breakpoint: vp.Name, Severity: "major", Description: "screenshot capture failed"}}
	}

	images := [][]byte{shot.Value}
	if refURL, ok := hc.Profile.ReferenceImages[vp.Name]; ok {
		ref := outcome.Tolerate(ctx, func(ctx context.Context) ([]byte, error) {
			return h.deps.Design.DownloadImage(ctx, refURL)
		})
		if ref.OK() {
			images = append(images, ref.Value)
		}
	}

	call := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Completion, error) {
		return h.deps.AI.Complete(ctx, &collab.CompletionRequest{
			System:    `You compare a rendered page against its reference design. Reply with JSON {"score": 0-100, "differences": [{"severity": "minor|moderate|major", "description": "..."}]}.`,
			User:      fmt.Sprintf("Compare the %s rendering of %s against the reference.", vp.Name, url),
			MaxTokens: h.deps.AITokens,
			Images:    images,
		})
	})
	if !call.OK() {
		h.deps.Logger.Warn("visual comparison call failed",
			zap.String("breakpoint", vp.Name),
			zap.Error(call.Err),
		)
		return 0, []Difference{{Breakpoint: vp.Name, Severity: "major", Description: "comparison unavailable"}}
	}

	envelope, parsed := aiparse.ParseWithFallback(call.Value.Text, comparisonEnvelope{})
	if !parsed {
		return 0, []Difference{{Breakpoint: vp.Name, Severity: "major", Description: "comparison result unparseable"}}
	}

	diffs := make([]Difference, 0, len(envelope.Differences))
	for _, d := range envelope.Differences {
		diffs = append(diffs, Difference{Breakpoint: vp.Name, Severity: d.Severity, Description: d.Description})
	}
	return envelope.Score, diffs
}
