package phases

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// frameNameRe is the naming convention frames are checked against.
var frameNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 /_-]*$`)

// standardFonts is the small allowlist for the font scan. Anything outside
// it becomes a warning, never an error.
var standardFonts = map[string]struct{}{
	"arial": {}, "helvetica": {}, "georgia": {}, "times new roman": {},
	"roboto": {}, "open sans": {}, "lato": {}, "montserrat": {}, "inter": {},
}

// Preflight validates required profile fields and collaborator
// connectivity, then runs a best-effort structural scan of the design
// input. Hard errors fail the run; scan findings attach as warnings.
type Preflight struct {
	deps *Deps
}

func (h *Preflight) Name() string { return pipeline.PhasePreflight }

func (h *Preflight) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	p := hc.Profile

	var missing []string
	if p.SiteName == "" {
		missing = append(missing, "site_name")
	}
	if p.SiteURL == "" {
		missing = append(missing, "site_url")
	}
	if p.DesignFileKey == "" {
		missing = append(missing, "design_file_key")
	}
	if len(missing) > 0 {
		return nil, pipeline.NewConfigurationError(strings.Join(missing, ", "), nil)
	}
	if _, ok := h.deps.Dialects[p.Dialect]; !ok {
		return nil, pipeline.NewConfigurationError("dialect", fmt.Errorf("unknown dialect %q", p.Dialect))
	}

	// Connectivity doubles as the credential check: an unauthorized or
	// unconfigured collaborator fails here, before any generation work.
	file, err := h.deps.Design.GetFile(ctx, p.DesignFileKey)
	if err != nil {
		return nil, pipeline.NewExternalServiceError("design", "fetch design file", err)
	}
	if p.PageID != "" {
		if _, err := h.deps.CMS.PageExists(ctx, p.PageID); err != nil {
			return nil, pipeline.NewExternalServiceError("cms", "check target page", err)
		}
	}

	result := &PreflightResult{FrameCount: len(file.Frames)}
	result.Warnings = append(result.Warnings, h.scanStructure(file)...)

	if len(result.Warnings) > 0 {
		h.deps.Logger.Warn("preflight scan findings",
			zap.String("build_id", hc.Run.ID),
			zap.Strings("warnings", result.Warnings),
		)
	}
	return &pipeline.Result{Value: result}, nil
}

// scanStructure runs the non-fatal design checks: frame count, responsive
// breakpoints, naming conventions, fonts.
func (h *Preflight) scanStructure(file *collab.DesignFile) []string {
	var warnings []string

	if len(file.Frames) == 0 {
		warnings = append(warnings, "design file has no top-level frames")
		return warnings
	}

	breakpoints := map[string]bool{"desktop": false, "tablet": false, "mobile": false}
	for _, f := range file.Frames {
		name := strings.ToLower(f.Name)
		for bp := range breakpoints {
			if strings.Contains(name, bp) {
				breakpoints[bp] = true
			}
		}
		if !frameNameRe.MatchString(f.Name) {
			warnings = append(warnings, fmt.Sprintf("frame %q does not follow naming conventions", f.Name))
		}
	}
	for bp, found := range breakpoints {
		if !found {
			warnings = append(warnings, fmt.Sprintf("no %s breakpoint frame found", bp))
		}
	}

	for _, style := range h.deps.Design.ExtractTypography(file) {
		if _, ok := standardFonts[strings.ToLower(style.Family)]; !ok {
			warnings = append(warnings, fmt.Sprintf("non-standard font %q may need licensing or a web fallback", style.Family))
		}
	}

	return warnings
}
