package phases

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
)

var (
	htmlTagRe = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9-]*)[^>]*?(/?)>`)
	imgSrcRe  = regexp.MustCompile(`(?i)(?:src|href)=["'](https?://[^"']+\.(?:png|jpe?g|gif|webp|svg))["']`)
)

// voidElements never take a closing tag.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "meta": {}, "source": {},
	"track": {}, "wbr": {},
}

// placeholderPatterns are fixed lorem/filler markers.
var placeholderPatterns = []string{
	"lorem ipsum",
	"dolor sit amet",
	"consectetur adipiscing",
	"placeholder text",
	"your text here",
	"insert content here",
}

// placeholderHosts serve stock filler images.
var placeholderHosts = []string{
	"via.placeholder.com",
	"placehold.co",
	"placekitten.com",
	"picsum.photos",
	"dummyimage.com",
}

// Validation runs the programmatic correctness checks on generated markup.
// No model call. Errors fail the phase; warnings are recorded on the
// artifact and logged.
type Validation struct {
	deps *Deps
}

func (h *Validation) Name() string { return pipeline.PhaseValidation }

func (h *Validation) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	gen, err := requireArtifact[GenerationResult](hc.Artifacts, pipeline.PhaseGeneration)
	if err != nil {
		return nil, err
	}
	dialect, ok := h.deps.Dialects[gen.Dialect]
	if !ok {
		return nil, pipeline.NewConfigurationError("dialect", fmt.Errorf("unknown dialect %q", gen.Dialect))
	}

	result := &ValidationResult{}

	if msg := checkBalancedMarkers(gen.Markup, dialect); msg != "" {
		result.Errors = append(result.Errors, msg)
	}
	result.Errors = append(result.Errors, checkUnclosedTags(gen.Markup)...)
	if len(gen.Markup) < h.deps.Cfg.MinMarkupLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("markup is %d characters, below the %d minimum", len(gen.Markup), h.deps.Cfg.MinMarkupLength))
	}

	result.Warnings = append(result.Warnings, checkPlaceholderText(gen.Markup)...)
	result.Warnings = append(result.Warnings, checkPlaceholderImages(gen.Markup)...)
	result.Warnings = append(result.Warnings, h.checkOversizedImages(ctx, gen.Markup)...)

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		return nil, pipeline.NewValidationError(pipeline.PhaseValidation, result.Errors)
	}
	return &pipeline.Result{Value: result}, nil
}

// checkBalancedMarkers compares open and close marker counts for the
// dialect. The message names both counts.
func checkBalancedMarkers(markup string, d Dialect) string {
	open := strings.Count(markup, d.OpenMarker)
	closed := strings.Count(markup, d.CloseMarker)
	if open != closed {
		return fmt.Sprintf("unbalanced %s markers: %d open, %d close", d.Name, open, closed)
	}
	return ""
}

// checkUnclosedTags runs a tag-stack scan over the markup's HTML.
func checkUnclosedTags(markup string) []string {
	var problems []string
	var stack []string

	for _, m := range htmlTagRe.FindAllStringSubmatch(markup, -1) {
		closing, name, selfClosed := m[1] == "/", strings.ToLower(m[2]), m[3] == "/"
		if _, void := voidElements[name]; void || selfClosed {
			continue
		}
		if !closing {
			stack = append(stack, name)
			continue
		}
		if len(stack) == 0 {
			problems = append(problems, fmt.Sprintf("closing </%s> without a matching open tag", name))
			continue
		}
		if stack[len(stack)-1] != name {
			problems = append(problems, fmt.Sprintf("unclosed <%s> tag", stack[len(stack)-1]))
		}
		stack = stack[:len(stack)-1]
	}
	for _, name := range stack {
		problems = append(problems, fmt.Sprintf("unclosed <%s> tag", name))
	}
	return problems
}

func checkPlaceholderText(markup string) []string {
	lower := strings.ToLower(markup)
	var warnings []string
	for _, pattern := range placeholderPatterns {
		if strings.Contains(lower, pattern) {
			warnings = append(warnings, fmt.Sprintf("placeholder text %q present in markup", pattern))
		}
	}
	return warnings
}

func checkPlaceholderImages(markup string) []string {
	lower := strings.ToLower(markup)
	var warnings []string
	for _, host := range placeholderHosts {
		if strings.Contains(lower, host) {
			warnings = append(warnings, fmt.Sprintf("placeholder image host %s referenced in markup", host))
		}
	}
	return warnings
}

// checkOversizedImages HEAD-probes each referenced image. Best effort: a
// failed probe is ignored, never a warning and never an error.
func (h *Validation) checkOversizedImages(ctx context.Context, markup string) []string {
	var warnings []string
	for _, m := range imgSrcRe.FindAllStringSubmatch(markup, -1) {
		url := m[1]
		probe := outcome.TolerateTimeout(ctx, h.deps.Cfg.Timeouts.HeadCheck, func(ctx context.Context) (*collab.HeadResult, error) {
			return h.deps.Head.Head(ctx, url)
		})
		if !probe.OK() {
			continue
		}
		if probe.Value.ContentLength > h.deps.Cfg.MaxImageBytes {
			warnings = append(warnings, fmt.Sprintf("image %s is %d bytes (limit %d)", url, probe.Value.ContentLength, h.deps.Cfg.MaxImageBytes))
		}
	}
	return warnings
}
