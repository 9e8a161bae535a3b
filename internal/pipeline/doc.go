// Package pipeline implements the phase-gated build pipeline orchestrator.
//
// A build run is driven through a fixed, ordered list of phases. Most phases
// execute a registered Handler that reads upstream artifacts and produces a
// result stored under the phase's own name. Gate phases never execute a
// handler: they persist a waiting status and suspend the run until an
// external decision re-invokes the orchestrator at the next index. A handler
// failure seals a failed PhaseRecord, records the error on the run, and
// aborts the remaining phases.
//
// The orchestrator is single-threaded per invocation. Concurrency across
// builds is the invoker's concern; duplicate invocations of the same build
// are guarded at the queue/http layer, not here.
package pipeline
