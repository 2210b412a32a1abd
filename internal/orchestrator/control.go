package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"poddigest/internal/feedingest"
	"poddigest/internal/logging"
	"poddigest/internal/repository"
)

// Trigger creates a new pending Digest for a user's config and enqueues its
// crawl job. The digest's window runs from seven days before now through
// now, per spec.md §4.J.
func (o *Orchestrator) Trigger(ctx context.Context, userID string, configID int64) (int64, error) {
	weekEnd := time.Now().UTC()
	weekStart := weekEnd.AddDate(0, 0, -7)

	digest, err := o.repo.CreateDigest(ctx, &repository.Digest{
		UserID:    userID,
		ConfigID:  configID,
		Title:     fmt.Sprintf("Digest for %s", weekEnd.Format("Jan 2, 2006")),
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	})
	if err != nil {
		return 0, fmt.Errorf("create digest: %w", err)
	}

	payload, err := json.Marshal(feedingest.Payload{DigestID: digest.ID, UserID: userID, ConfigID: configID})
	if err != nil {
		return 0, fmt.Errorf("marshal crawl payload: %w", err)
	}
	if _, err := o.queue.Enqueue(ctx, "crawl", fmt.Sprintf("crawl-%d", digest.ID), string(payload)); err != nil {
		return 0, fmt.Errorf("enqueue crawl job: %w", err)
	}

	o.logger.Info("digest triggered",
		logging.Int64(logging.FieldDigestID, digest.ID),
		logging.String("user_id", userID),
		logging.Int64("config_id", configID),
	)
	return digest.ID, nil
}

// Retry resets a failed digest back to pending and re-enqueues its crawl
// job under a fresh job id, so it isn't deduped against the original
// (already-completed or already-failed) crawl job.
func (o *Orchestrator) Retry(ctx context.Context, digestID int64) error {
	digest, err := o.repo.FindDigestForUpdate(ctx, digestID)
	if err != nil {
		return fmt.Errorf("load digest: %w", err)
	}
	if digest.Status != repository.DigestFailed {
		return fmt.Errorf("digest %d is not failed (status %s)", digestID, digest.Status)
	}

	if err := o.repo.ResetForRetry(ctx, digestID, digest.Version); err != nil {
		return fmt.Errorf("reset digest for retry: %w", err)
	}

	payload, err := json.Marshal(feedingest.Payload{DigestID: digestID, UserID: digest.UserID, ConfigID: digest.ConfigID})
	if err != nil {
		return fmt.Errorf("marshal crawl payload: %w", err)
	}
	jobID := fmt.Sprintf("crawl-retry-%d-%s", digestID, uuid.NewString())
	if _, err := o.queue.Enqueue(ctx, "crawl", jobID, string(payload)); err != nil {
		return fmt.Errorf("enqueue retry crawl job: %w", err)
	}

	o.logger.Info("digest retry triggered", logging.Int64(logging.FieldDigestID, digestID), logging.String("job_id", jobID))
	return nil
}

// Cancel removes any not-yet-leased stage job for a digest and marks it
// failed with error "cancelled". A digest already in a terminal state is
// rejected: cancel cannot undo a completed or already-failed run, and it
// never interrupts a stage job already in flight.
func (o *Orchestrator) Cancel(ctx context.Context, digestID int64) error {
	digest, err := o.repo.FindDigestForUpdate(ctx, digestID)
	if err != nil {
		return fmt.Errorf("load digest: %w", err)
	}
	if digest.Status.IsTerminal() {
		return fmt.Errorf("digest %d is already %s", digestID, digest.Status)
	}

	for _, queueName := range queueNames {
		jobID := fmt.Sprintf("%s-%d", queueName, digestID)
		if err := o.queue.CancelPending(ctx, queueName, jobID); err != nil {
			return fmt.Errorf("cancel pending %s job: %w", queueName, err)
		}
	}

	if err := o.repo.SetDigestStatus(ctx, digestID, digest.Version, repository.DigestFailed, "cancelled"); err != nil {
		return fmt.Errorf("mark digest cancelled: %w", err)
	}

	o.logger.Info("digest cancelled", logging.Int64(logging.FieldDigestID, digestID))
	return nil
}
