// Package phases implements the handlers for the build and content
// pipelines. Each handler reads its declared upstream artifacts, performs
// its work against the collaborator interfaces in collab, and returns a
// result stored under its own phase name. Best-effort sub-operations go
// through outcome.Tolerate; model output goes through aiparse with
// deterministic fallbacks.
package phases
