package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/pipelined/internal/pipeline"

// Orchestrator drives a build run through its phase list. One invocation is
// strictly sequential; it either completes the list, suspends at a gate, or
// aborts on the first handler failure.
type Orchestrator struct {
	store    Store
	registry *Registry
	reporter Reporter
	messages MessageLog
	logger   *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	phaseCounter  metric.Int64Counter
	phaseDuration metric.Float64Histogram
	runCounter    metric.Int64Counter
}

// New creates an orchestrator. Store and registry are required; reporter and
// messages may be nil (progress and gate messages are then dropped).
func New(store Store, registry *Registry, reporter Reporter, messages MessageLog, logger *zap.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		store:    store,
		registry: registry,
		reporter: reporter,
		messages: messages,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	o.initMetrics()
	return o, nil
}

func (o *Orchestrator) initMetrics() {
	var err error

	o.phaseCounter, err = o.meter.Int64Counter(
		"pipelined.phase.executions_total",
		metric.WithDescription("Phase execution attempts labeled by phase and outcome"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		o.logger.Warn("failed to create phase counter", zap.Error(err))
	}

	o.phaseDuration, err = o.meter.Float64Histogram(
		"pipelined.phase.duration_seconds",
		metric.WithDescription("Phase handler duration in seconds, labeled by phase"),
		metric.WithUnit("s"),
	)
	if err != nil {
		o.logger.Warn("failed to create phase duration histogram", zap.Error(err))
	}

	o.runCounter, err = o.meter.Int64Counter(
		"pipelined.run.invocations_total",
		metric.WithDescription("Orchestrator invocations labeled by terminal outcome (completed, waiting, failed)"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		o.logger.Warn("failed to create run counter", zap.Error(err))
	}
}

// Run drives the build identified by buildID from resumeFrom to the end of
// its phase list. Completion, suspension, and failure are all persisted
// before Run returns; the returned error exists for the invoker's logging.
func (o *Orchestrator) Run(ctx context.Context, buildID string, resumeFrom int) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("build_id", buildID),
		attribute.Int("resume_from", resumeFrom),
	)

	run, err := o.store.LoadRun(ctx, buildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.countRun(ctx, "failed")
		return fmt.Errorf("failed to load run %s: %w", buildID, err)
	}

	profile, err := o.store.LoadProfile(ctx, run.ProfileID)
	if err != nil {
		o.failRun(ctx, run, "", NewConfigurationError("profile", err))
		o.countRun(ctx, "failed")
		return fmt.Errorf("failed to load profile for run %s: %w", buildID, err)
	}

	phases := PhasesFor(run.Pipeline)
	if resumeFrom < 0 || resumeFrom > len(phases) {
		err := fmt.Errorf("resume index %d out of range for %d phases", resumeFrom, len(phases))
		o.failRun(ctx, run, "", NewConfigurationError("resume_from", err))
		o.countRun(ctx, "failed")
		return err
	}

	run.Status = StatusRunning
	total := len(phases)

	for i := resumeFrom; i < total; i++ {
		phase := phases[i]

		o.report(ctx, run.ID, ProgressUpdate{
			Status:  StatusRunning,
			Message: fmt.Sprintf("phase %s", phase.Name),
			Pct:     i * 100 / total,
		})

		if phase.Gate {
			o.suspendAtGate(ctx, run, phase, i)
			o.countRun(ctx, "waiting")
			return nil
		}

		// Another invocation may have mutated artifacts while this run was
		// suspended at a gate. Always act on the latest map.
		artifacts, err := o.store.Artifacts(ctx, run.ID)
		if err != nil {
			wrapped := NewExternalServiceError("store", "read artifacts", err)
			o.failRun(ctx, run, phase.Name, wrapped)
			o.countRun(ctx, "failed")
			return wrapped
		}

		handler, ok := o.registry.Handler(phase.Name)
		if !ok {
			// Defensive no-op for a phase name with no handler. Flagged as a
			// misconfiguration candidate; see DESIGN.md.
			o.logger.Warn("no handler registered for phase, skipping",
				zap.String("build_id", run.ID),
				zap.String("phase", phase.Name),
			)
			continue
		}

		run.CurrentPhaseIndex = i
		if err := o.executePhase(ctx, run, profile, phase, artifacts, handler); err != nil {
			o.countRun(ctx, "failed")
			return err
		}

		o.report(ctx, run.ID, ProgressUpdate{
			Status:  StatusRunning,
			Message: fmt.Sprintf("completed %s", phase.Name),
			Pct:     (i + 1) * 100 / total,
		})
	}

	run.Status = StatusCompleted
	run.CurrentPhaseIndex = total
	run.UpdatedAt = time.Now()
	if err := o.store.SaveRun(ctx, run); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to persist completed run %s: %w", buildID, err)
	}

	o.report(ctx, run.ID, ProgressUpdate{Status: StatusCompleted, Message: "pipeline completed", Pct: 100})
	o.logger.Info("run completed",
		zap.String("build_id", run.ID),
		zap.String("pipeline", string(run.Pipeline)),
	)
	o.countRun(ctx, "completed")
	return nil
}

// executePhase runs one handler, seals its audit record, and persists the
// result. A handler error fails the whole run.
func (o *Orchestrator) executePhase(ctx context.Context, run *BuildRun, profile *Profile, phase Phase, artifacts Artifacts, handler Handler) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.phase",
		trace.WithAttributes(attribute.String("phase", phase.Name)))
	defer span.End()

	rec := &PhaseRecord{
		ID:        uuid.New().String(),
		BuildID:   run.ID,
		Phase:     phase.Name,
		StartedAt: time.Now(),
	}

	result, err := handler.Execute(ctx, &HandlerContext{
		Run:       run,
		Profile:   profile,
		Artifacts: artifacts,
	})

	rec.CompletedAt = time.Now()
	rec.DurationMs = rec.CompletedAt.Sub(rec.StartedAt).Milliseconds()
	if o.phaseDuration != nil {
		o.phaseDuration.Record(ctx, rec.CompletedAt.Sub(rec.StartedAt).Seconds(),
			metric.WithAttributes(attribute.String("phase", phase.Name)))
	}

	if err != nil {
		rec.Success = false
		rec.ErrorMessage = err.Error()
		o.appendRecord(ctx, rec)
		o.countPhase(ctx, phase.Name, "failure")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.failRun(ctx, run, phase.Name, err)
		return err
	}

	rec.Success = true
	o.appendRecord(ctx, rec)
	o.countPhase(ctx, phase.Name, "success")

	// Corrections first: the fix loop overwrites the generation artifact
	// before its own result lands, so a re-read within the same invocation
	// sees corrected markup.
	for _, c := range result.Corrections {
		if err := o.store.MergeArtifact(ctx, run.ID, c.Phase, c.Value); err != nil {
			wrapped := NewExternalServiceError("store", fmt.Sprintf("apply correction to %s", c.Phase), err)
			o.failRun(ctx, run, phase.Name, wrapped)
			return wrapped
		}
		o.logger.Info("applied artifact correction",
			zap.String("build_id", run.ID),
			zap.String("from_phase", phase.Name),
			zap.String("to_phase", c.Phase),
		)
	}

	if result.Value != nil {
		if err := o.store.MergeArtifact(ctx, run.ID, phase.Name, result.Value); err != nil {
			wrapped := NewExternalServiceError("store", "store artifact", err)
			o.failRun(ctx, run, phase.Name, wrapped)
			return wrapped
		}
	}

	run.UpdatedAt = time.Now()
	if err := o.store.SaveRun(ctx, run); err != nil {
		wrapped := NewExternalServiceError("store", "save run", err)
		o.failRun(ctx, run, phase.Name, wrapped)
		return wrapped
	}

	o.logger.Info("phase completed",
		zap.String("build_id", run.ID),
		zap.String("phase", phase.Name),
		zap.Int64("duration_ms", rec.DurationMs),
	)
	return nil
}

// suspendAtGate persists the waiting state and posts the decision prompt.
// Gates execute no handler and write no artifact.
func (o *Orchestrator) suspendAtGate(ctx context.Context, run *BuildRun, phase Phase, index int) {
	run.Status = StatusWaiting
	run.CurrentPhaseIndex = index
	run.UpdatedAt = time.Now()
	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.Error("failed to persist gate suspension",
			zap.String("build_id", run.ID),
			zap.String("phase", phase.Name),
			zap.Error(err),
		)
	}

	o.post(ctx, run.ID, fmt.Sprintf("Waiting on %s: approve to continue from phase %d.", phase.Name, index+1), phase.Name)
	o.report(ctx, run.ID, ProgressUpdate{
		Status:  StatusWaiting,
		Message: fmt.Sprintf("waiting at %s", phase.Name),
		Pct:     index * 100 / len(PhasesFor(run.Pipeline)),
	})

	o.logger.Info("run suspended at gate",
		zap.String("build_id", run.ID),
		zap.String("phase", phase.Name),
		zap.Int("index", index),
	)
}

// failRun records the failure on the run, posts the human-facing message,
// and persists the failed status.
func (o *Orchestrator) failRun(ctx context.Context, run *BuildRun, phase string, cause error) {
	re := RunError{Phase: phase, Message: cause.Error(), At: time.Now()}
	run.Errors = append(run.Errors, re)
	run.LastError = &re
	run.Status = StatusFailed
	run.UpdatedAt = re.At

	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.Error("failed to persist failed run",
			zap.String("build_id", run.ID),
			zap.Error(err),
		)
	}

	text := fmt.Sprintf("Build stopped at %s: %s", phase, cause.Error())
	if phase == "" {
		text = fmt.Sprintf("Build failed before any phase ran: %s", cause.Error())
	}
	o.post(ctx, run.ID, text, phase)
	o.report(ctx, run.ID, ProgressUpdate{Status: StatusFailed, Message: text, Pct: 0})

	o.logger.Error("run failed",
		zap.String("build_id", run.ID),
		zap.String("phase", phase),
		zap.Error(cause),
	)
}

func (o *Orchestrator) appendRecord(ctx context.Context, rec *PhaseRecord) {
	if err := o.store.AppendPhaseRecord(ctx, rec); err != nil {
		o.logger.Error("failed to append phase record",
			zap.String("build_id", rec.BuildID),
			zap.String("phase", rec.Phase),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) report(ctx context.Context, buildID string, update ProgressUpdate) {
	if o.reporter != nil {
		o.reporter.ReportProgress(ctx, buildID, update)
	}
}

func (o *Orchestrator) post(ctx context.Context, buildID, text, phase string) {
	if o.messages != nil {
		o.messages.Post(ctx, buildID, text, phase)
	}
}

func (o *Orchestrator) countPhase(ctx context.Context, phase, outcome string) {
	if o.phaseCounter != nil {
		o.phaseCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Orchestrator) countRun(ctx context.Context, outcome string) {
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}
