package pipeline

import (
	"context"
	"time"
)

// Kind selects which phase list a run is driven through.
type Kind string

const (
	// KindBuild is the 15-phase website build pipeline.
	KindBuild Kind = "build"

	// KindContent is the 7-phase content production pipeline.
	KindContent Kind = "content"
)

// Build pipeline phase names.
const (
	PhasePreflight      = "preflight"
	PhaseAnalysis       = "analysis"
	PhaseClassification = "classification"
	PhaseGeneration     = "generation"
	PhaseValidation     = "validation"
	PhaseDesignReview   = "design_review"
	PhaseDeploy         = "deploy"
	PhaseAssets         = "assets"
	PhaseVisualCompare  = "visual_compare"
	PhaseFixLoop        = "fix_loop"
	PhaseFunctionalQA   = "functional_qa"
	PhaseSEO            = "seo"
	PhaseClientReview   = "client_review"
	PhaseReport         = "report"
	PhasePublish        = "publish"
)

// Content pipeline phase names.
const (
	PhaseOutline        = "outline"
	PhaseOutlineReview  = "outline_review"
	PhaseDraft          = "draft"
	PhaseContentReview  = "content_review"
	PhaseContentSEO     = "content_seo"
	PhaseContentPublish = "content_publish"
	PhaseContentReport  = "content_report"
)

// Phase is a static descriptor for one step of a pipeline.
type Phase struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
	Gate  bool   `json:"gate"`
}

// BuildPhases returns the build pipeline in execution order.
func BuildPhases() []Phase {
	return []Phase{
		{Name: PhasePreflight, Order: 0},
		{Name: PhaseAnalysis, Order: 1},
		{Name: PhaseClassification, Order: 2},
		{Name: PhaseGeneration, Order: 3},
		{Name: PhaseValidation, Order: 4},
		{Name: PhaseDesignReview, Order: 5, Gate: true},
		{Name: PhaseDeploy, Order: 6},
		{Name: PhaseAssets, Order: 7},
		{Name: PhaseVisualCompare, Order: 8},
		{Name: PhaseFixLoop, Order: 9},
		{Name: PhaseFunctionalQA, Order: 10},
		{Name: PhaseSEO, Order: 11},
		{Name: PhaseClientReview, Order: 12, Gate: true},
		{Name: PhaseReport, Order: 13},
		{Name: PhasePublish, Order: 14},
	}
}

// ContentPhases returns the content pipeline in execution order.
func ContentPhases() []Phase {
	return []Phase{
		{Name: PhaseOutline, Order: 0},
		{Name: PhaseOutlineReview, Order: 1, Gate: true},
		{Name: PhaseDraft, Order: 2},
		{Name: PhaseContentReview, Order: 3, Gate: true},
		{Name: PhaseContentSEO, Order: 4},
		{Name: PhaseContentPublish, Order: 5},
		{Name: PhaseContentReport, Order: 6},
	}
}

// PhasesFor returns the phase list for a pipeline kind.
// Unknown kinds return the build pipeline.
func PhasesFor(kind Kind) []Phase {
	if kind == KindContent {
		return ContentPhases()
	}
	return BuildPhases()
}

// Status is the lifecycle state of a build run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusWaiting   Status = "waiting"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Artifacts maps phase name to that phase's stored result.
type Artifacts map[string]any

// RunError is one recorded failure on a run.
type RunError struct {
	Phase   string    `json:"phase"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// BuildRun is the mutable subject of orchestration. It is created by the
// surrounding platform before the orchestrator is ever invoked; the
// orchestrator only reads and advances it.
type BuildRun struct {
	ID                string `json:"id"`
	ProfileID         string `json:"profile_id"`
	Pipeline          Kind   `json:"pipeline"`
	CurrentPhaseIndex int    `json:"current_phase_index"`
	Status            Status `json:"status"`

	// Scalar score fields read by downstream phases and the fix loop.
	VisualScore  int  `json:"visual_score"`
	VisualPassed bool `json:"visual_passed"`
	FixIteration int  `json:"fix_iteration"`

	Errors    []RunError `json:"errors,omitempty"`
	LastError *RunError  `json:"last_error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PhaseRecord is one append-only audit entry per phase execution attempt.
// Gate phases produce no record since no handler runs.
type PhaseRecord struct {
	ID           string    `json:"id"`
	BuildID      string    `json:"build_id"`
	Phase        string    `json:"phase"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	Success      bool      `json:"success"`
	DurationMs   int64     `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Profile is the site/content configuration linked to a run.
type Profile struct {
	ID            string `json:"id"`
	SiteName      string `json:"site_name"`
	Dialect       string `json:"dialect"`
	DesignFileKey string `json:"design_file_key"`
	PageID        string `json:"page_id,omitempty"`
	SiteURL       string `json:"site_url"`
	BusinessBrief string `json:"business_brief,omitempty"`

	// ReferenceImages maps breakpoint name to a reference render URL.
	ReferenceImages map[string]string `json:"reference_images,omitempty"`
}

// HandlerContext is the input passed to every phase handler.
type HandlerContext struct {
	Run       *BuildRun
	Profile   *Profile
	Artifacts Artifacts
}

// Correction is an explicit overwrite of another phase's artifact. The fix
// loop is the only documented producer; modeling it as an event keeps
// artifact ownership auditable instead of a raw map mutation.
type Correction struct {
	Phase string
	Value any
}

// Result is what a handler returns on success.
type Result struct {
	// Value is stored under the handler's own phase name.
	Value any

	// Corrections, if any, are applied before Value is stored.
	Corrections []Correction
}

// Handler executes the work for one named phase.
type Handler interface {
	// Name returns the phase this handler serves.
	Name() string

	// Execute reads required upstream artifacts and returns a result to be
	// stored under the phase's own name. A returned error fails the run.
	Execute(ctx context.Context, hc *HandlerContext) (*Result, error)
}

// Store persists runs, profiles, artifacts, and audit records.
type Store interface {
	LoadRun(ctx context.Context, buildID string) (*BuildRun, error)
	SaveRun(ctx context.Context, run *BuildRun) error
	LoadProfile(ctx context.Context, profileID string) (*Profile, error)

	// Artifacts returns the latest artifact map for a build. Callers re-read
	// before each phase; a suspended-then-resumed run must not act on a stale
	// snapshot.
	Artifacts(ctx context.Context, buildID string) (Artifacts, error)

	// MergeArtifact shallow-merges {phase: value} into the stored map.
	MergeArtifact(ctx context.Context, buildID, phase string, value any) error

	AppendPhaseRecord(ctx context.Context, rec *PhaseRecord) error
}

// ProgressUpdate is one progress notification for the invoking job system.
type ProgressUpdate struct {
	Status  Status `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Pct     int    `json:"pct"`
}

// Reporter receives progress updates. Implementations must not block the
// run; failures are tolerated by the orchestrator.
type Reporter interface {
	ReportProgress(ctx context.Context, buildID string, update ProgressUpdate)
}

// MessageLog posts human-facing messages (gate prompts, failure notices).
type MessageLog interface {
	Post(ctx context.Context, buildID, text, phase string)
}
