// Package stage defines the contract each pipeline stage implements and the
// sum-type outcome stages return. At the orchestrator boundary a stage
// failure becomes a Digest.status = failed write and any other outcome
// advances the digest to the next stage; no outcome leads to a queue-level
// retry of the job.
package stage

import (
	"context"

	"poddigest/internal/repository"
)

// Handler describes the contract the orchestrator needs from each stage.
// payload is the raw JSON body of the queue job that triggered this stage
// run (see spec §6's queue payload shapes), decoded by each handler into
// its own shape.
type Handler interface {
	// Prepare validates preconditions and loads anything the stage needs
	// before doing work (e.g. confirming a transcript exists).
	Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error
	// Execute performs the stage's work and returns an Outcome describing
	// success, partial per-item failure, or a stage-level failure.
	Execute(ctx context.Context, digest *repository.Digest, payload []byte) Outcome
	// HealthCheck reports whether the stage's dependencies are reachable.
	HealthCheck(ctx context.Context) Health
}
