package phases

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
)

// PreflightResult is the preflight phase artifact.
type PreflightResult struct {
	Warnings   []string `json:"warnings,omitempty"`
	FrameCount int      `json:"frame_count"`
	Fonts      []string `json:"fonts,omitempty"`
}

// AnalysisResult is the analysis phase artifact.
type AnalysisResult struct {
	Sections   []collab.Section   `json:"sections"`
	Colors     []string           `json:"colors,omitempty"`
	Typography []collab.TextStyle `json:"typography,omitempty"`
	ImageIDs   []string           `json:"image_ids,omitempty"`
	Summary    string             `json:"summary,omitempty"`
}

// SectionClass is one classified section.
type SectionClass struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Complexity string `json:"complexity"`
}

// ClassificationResult is the classification phase artifact.
type ClassificationResult struct {
	Sections  []SectionClass `json:"sections"`
	FromModel bool           `json:"from_model"`
}

// GenerationResult is the generation phase artifact. The fix loop is the
// one writer other than the generation handler itself.
type GenerationResult struct {
	Markup    string   `json:"markup"`
	Sections  []string `json:"sections,omitempty"`
	Dialect   string   `json:"dialect"`
	Corrected bool     `json:"corrected,omitempty"`
	Iteration int      `json:"iteration,omitempty"`
}

// ValidationResult is the validation phase artifact.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// DeployResult is the deploy phase artifact.
type DeployResult struct {
	PageID  string `json:"page_id"`
	Created bool   `json:"created"`
	URL     string `json:"url"`
}

// AssetsResult is the asset pipeline artifact. IDs maps every requested
// asset identifier to its uploaded media URL, or nil for a failed export or
// upload.
type AssetsResult struct {
	Uploaded int                `json:"uploaded"`
	Failed   int                `json:"failed"`
	IDs      map[string]*string `json:"ids"`
}

// Difference is one visual deviation reported by the comparison model.
type Difference struct {
	Breakpoint  string `json:"breakpoint"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// VisualResult is the visual comparison artifact.
type VisualResult struct {
	Passed      bool           `json:"passed"`
	Overall     int            `json:"overall"`
	Threshold   int            `json:"threshold"`
	Scores      map[string]int `json:"scores"`
	Differences []Difference   `json:"differences,omitempty"`
}

// Fix loop actions.
const (
	FixActionPassed    = "passed"
	FixActionExhausted = "exhausted"
	FixActionClean     = "clean"
	FixActionCorrected = "corrected"
	FixActionUnparsed  = "correction_unparsed"
)

// FixResult is the fix loop artifact for one invocation.
type FixResult struct {
	Action     string `json:"action"`
	Iteration  int    `json:"iteration"`
	Addressed  int    `json:"addressed,omitempty"`
	Redeployed bool   `json:"redeployed,omitempty"`
}

// QAResult is the functional QA artifact.
type QAResult struct {
	PageFetched    bool           `json:"page_fetched"`
	LinksChecked   int            `json:"links_checked"`
	BrokenLinks    int            `json:"broken_links"`
	BrokenURLs     []string       `json:"broken_urls,omitempty"`
	AuditAvailable bool           `json:"audit_available"`
	AuditScores    map[string]int `json:"audit_scores,omitempty"`
	HeadingIssues  []string       `json:"heading_issues,omitempty"`
}

// SEOResult is the SEO phase artifact.
type SEOResult struct {
	Meta      collab.SEOMetadata `json:"meta"`
	Applied   bool               `json:"applied"`
	FromModel bool               `json:"from_model"`
}

// ReportResult is the report phase artifact.
type ReportResult struct {
	Summary string            `json:"summary"`
	Metrics map[string]string `json:"metrics,omitempty"`
}

// PublishResult is the publish phase artifact.
type PublishResult struct {
	PageID      string    `json:"page_id"`
	Live        bool      `json:"live"`
	PublishedAt time.Time `json:"published_at"`
}

// OutlineResult is the content outline artifact.
type OutlineResult struct {
	Sections  []string `json:"sections"`
	FromModel bool     `json:"from_model"`
}

// DraftResult is the content draft artifact.
type DraftResult struct {
	Markup string `json:"markup"`
	Title  string `json:"title"`
}

// artifactAs decodes the artifact stored under phase into T. Values written
// in-process type-assert directly; values rehydrated from a persistence
// backend round-trip through JSON.
func artifactAs[T any](artifacts pipeline.Artifacts, phase string) (T, bool) {
	var out T
	v, ok := artifacts[phase]
	if !ok || v == nil {
		return out, false
	}
	if direct, ok := v.(T); ok {
		return direct, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}
	return out, true
}

// requireArtifact decodes a required upstream artifact or fails the phase.
func requireArtifact[T any](artifacts pipeline.Artifacts, phase string) (T, error) {
	v, ok := artifactAs[T](artifacts, phase)
	if !ok {
		return v, fmt.Errorf("missing required artifact from phase %s", phase)
	}
	return v, nil
}
