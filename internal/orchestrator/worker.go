package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"poddigest/internal/logging"
	"poddigest/internal/queue"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// jobDigestID is the one field every stage payload shares, decoded first to
// look up the digest before unmarshalling into the stage's own Payload type.
type jobDigestID struct {
	DigestID int64 `json:"digestId"`
}

// processJob runs one leased job through its stage handler and either
// advances the digest to the next queue or fails it outright. The job is
// marked complete when the stage succeeds or fails, or when the digest is
// already terminal: a stage failure is a terminal outcome for this digest,
// not something queue-level retry can fix. A malformed payload, a digest
// that cannot be loaded or hits a version conflict, or a failed enqueue of
// the next stage goes through queue.Fail instead, which retries the job
// with backoff until its attempts run out.
func (o *Orchestrator) processJob(ctx context.Context, def *stageDef, job *queue.Job) {
	logger := o.logger.With(
		logging.String(logging.FieldStage, def.name),
		logging.Int64("job_id", job.ID),
	)

	var ref jobDigestID
	if err := json.Unmarshal([]byte(job.Payload), &ref); err != nil {
		logger.Error("malformed job payload", logging.Error(err))
		if err := o.queue.Fail(ctx, job.ID, fmt.Sprintf("malformed payload: %v", err)); err != nil {
			logger.Error("failed to record payload failure", logging.Error(err))
		}
		return
	}
	logger = logger.With(logging.Int64(logging.FieldDigestID, ref.DigestID))

	digest, err := o.repo.FindDigestForUpdate(ctx, ref.DigestID)
	if err != nil {
		logger.Warn("load digest failed, retrying", logging.Error(err))
		o.failJob(ctx, logger, job.ID, err)
		return
	}

	if digest.Status.IsTerminal() {
		logger.Info("job superseded by already-terminal digest, discarding")
		o.completeJob(ctx, logger, job.ID)
		return
	}

	if err := o.repo.SetDigestStatus(ctx, digest.ID, digest.Version, def.inProgressStatus, ""); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			logger.Warn("version conflict entering stage, retrying", logging.Error(err))
			o.failJob(ctx, logger, job.ID, err)
			return
		}
		logger.Error("status regression entering stage, discarding job", logging.Error(err))
		o.completeJob(ctx, logger, job.ID)
		return
	}

	digest, err = o.repo.FindDigestForUpdate(ctx, digest.ID)
	if err != nil {
		logger.Error("reload digest after status write failed", logging.Error(err))
		o.failJob(ctx, logger, job.ID, err)
		return
	}

	if err := def.handler.Prepare(ctx, digest, []byte(job.Payload)); err != nil {
		o.failDigest(ctx, logger, digest, "prepare-failed", err.Error())
		o.completeJob(ctx, logger, job.ID)
		return
	}

	outcome := def.handler.Execute(ctx, digest, []byte(job.Payload))
	o.logOutcome(logger, outcome)

	if outcome.Failed() {
		o.failDigest(ctx, logger, digest, outcome.ErrorCode, outcome.ErrorText)
		o.completeJob(ctx, logger, job.ID)
		return
	}

	if def.terminal {
		if err := o.repo.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestCompleted, ""); err != nil {
			logger.Error("failed to mark digest completed", logging.Error(err))
		}
		o.completeJob(ctx, logger, job.ID)
		return
	}

	payload, err := def.buildNextPayload(ctx, o.repo, digest)
	if err != nil {
		o.failDigest(ctx, logger, digest, "contract-violation", err.Error())
		o.completeJob(ctx, logger, job.ID)
		return
	}

	nextJobID := fmt.Sprintf("%s-%d", def.nextQueueName, digest.ID)
	if _, err := o.queue.Enqueue(ctx, def.nextQueueName, nextJobID, string(payload)); err != nil {
		logger.Error("failed to enqueue next stage, digest left in current status for retry", logging.Error(err))
		o.failJob(ctx, logger, job.ID, err)
		return
	}

	o.completeJob(ctx, logger, job.ID)
}

func (o *Orchestrator) logOutcome(logger *slog.Logger, outcome stage.Outcome) {
	if outcome.Kind == stage.KindPerItemFailures {
		for _, f := range outcome.Failures {
			logger.Warn("per-item failure", logging.String("item_id", f.ItemID), logging.String("reason", f.Reason))
		}
	}
}

func (o *Orchestrator) failDigest(ctx context.Context, logger *slog.Logger, digest *repository.Digest, code, text string) {
	errText := fmt.Sprintf("%s: %s", code, text)
	if err := o.repo.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestFailed, errText); err != nil {
		logger.Error("failed to record digest failure", logging.Error(err), logging.String("original_error", errText))
		return
	}
	logger.Error("digest failed", logging.String("error_code", code), logging.String("error_text", text))
}

func (o *Orchestrator) completeJob(ctx context.Context, logger *slog.Logger, jobID int64) {
	if err := o.queue.Complete(ctx, jobID); err != nil {
		logger.Error("failed to mark job complete", logging.Error(err))
	}
}

func (o *Orchestrator) failJob(ctx context.Context, logger *slog.Logger, jobID int64, cause error) {
	if err := o.queue.Fail(ctx, jobID, cause.Error()); err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
	}
}
