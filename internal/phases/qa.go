package phases

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

var (
	hrefRe    = regexp.MustCompile(`(?i)href=["'](https?://[^"']+)["']`)
	headingRe = regexp.MustCompile(`(?i)<h([1-6])[\s>]`)
)

// FunctionalQA crawls the deployed page: link health for the first
// discovered links (bounded), a third-party audit, and heading-hierarchy
// validation. Every sub-operation is independently fallible; the phase
// aggregates findings and never fails on them.
type FunctionalQA struct {
	deps *Deps
}

func (h *FunctionalQA) Name() string { return pipeline.PhaseFunctionalQA }

func (h *FunctionalQA) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	deploy, err := requireArtifact[DeployResult](hc.Artifacts, pipeline.PhaseDeploy)
	if err != nil {
		return nil, err
	}

	result := &QAResult{}

	fetch := outcome.TolerateTimeout(ctx, h.deps.Cfg.Timeouts.PageFetch, func(ctx context.Context) (*collab.PageContent, error) {
		return h.deps.Browser.Fetch(ctx, deploy.URL)
	})
	if fetch.OK() {
		result.PageFetched = true
		h.checkLinks(ctx, fetch.Value.HTML, result)
		result.HeadingIssues = checkHeadings(fetch.Value.HTML)
	} else {
		h.deps.Logger.Warn("page fetch failed, skipping link and heading checks",
			zap.String("build_id", hc.Run.ID),
			zap.Error(fetch.Err),
		)
	}

	audit := outcome.TolerateTimeout(ctx, h.deps.Cfg.Timeouts.Audit, func(ctx context.Context) (map[string]int, error) {
		return h.deps.Browser.Audit(ctx, deploy.URL)
	})
	if audit.OK() {
		result.AuditAvailable = true
		result.AuditScores = audit.Value
	}

	return &pipeline.Result{Value: result}, nil
}

// checkLinks HEAD-probes the first discovered links, bounded by config.
func (h *FunctionalQA) checkLinks(ctx context.Context, html string, result *QAResult) {
	seen := make(map[string]struct{})
	var links []string
	for _, m := range hrefRe.FindAllStringSubmatch(html, -1) {
		url := m[1]
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		links = append(links, url)
		if len(links) >= h.deps.Cfg.LinkCheckLimit {
			break
		}
	}

	for _, url := range links {
		probe := outcome.TolerateTimeout(ctx, h.deps.Cfg.Timeouts.HeadCheck, func(ctx context.Context) (*collab.HeadResult, error) {
			return h.deps.Head.Head(ctx, url)
		})
		result.LinksChecked++
		if !probe.OK() || probe.Value.Status >= 400 {
			result.BrokenLinks++
			result.BrokenURLs = append(result.BrokenURLs, url)
		}
	}
}

// checkHeadings validates the H1 count and flags heading-level skips.
func checkHeadings(html string) []string {
	var issues []string
	var levels []int
	for _, m := range headingRe.FindAllStringSubmatch(html, -1) {
		lvl, _ := strconv.Atoi(m[1])
		levels = append(levels, lvl)
	}

	h1s := 0
	for _, lvl := range levels {
		if lvl == 1 {
			h1s++
		}
	}
	if h1s == 0 {
		issues = append(issues, "page has no h1")
	} else if h1s > 1 {
		issues = append(issues, fmt.Sprintf("page has %d h1 elements, expected 1", h1s))
	}

	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			issues = append(issues, fmt.Sprintf("heading level skip: h%d follows h%d", levels[i], levels[i-1]))
		}
	}
	return issues
}

// auditSummary renders audit scores for report aggregation.
func auditSummary(scores map[string]int) string {
	if len(scores) == 0 {
		return "audit unavailable"
	}
	parts := make([]string, 0, len(scores))
	for category, score := range scores {
		parts = append(parts, fmt.Sprintf("%s=%d", category, score))
	}
	return strings.Join(parts, " ")
}
