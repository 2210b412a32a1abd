package deliverer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"poddigest/internal/logging"
	"poddigest/internal/objectstore"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

const feedCacheControl = "max-age=300"

// Payload is the `deliver` queue job body.
type Payload struct {
	DigestID int64 `json:"digestId"`
}

// Deliverer is the final pipeline stage (spec.md §4.I): it dispatches a
// completed digest to its listener per their configured delivery method.
type Deliverer struct {
	repo     *repository.Store
	objects  objectstore.Gateway
	notifier Notifier
	logger   *slog.Logger
}

// New constructs a Deliverer.
func New(repo *repository.Store, objects objectstore.Gateway, notifier Notifier, logger *slog.Logger) *Deliverer {
	return &Deliverer{repo: repo, objects: objects, notifier: notifier, logger: logger}
}

// Prepare validates the payload shape.
func (d *Deliverer) Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("deliverer: decode payload: %w", err)
	}
	if digest.AudioObjectKey == "" {
		return fmt.Errorf("deliverer: digest %d has no assembled audio", digest.ID)
	}
	return nil
}

// Execute dispatches on the digest owner's configured delivery method.
// Notification failures (email/push) are best-effort and never fail the
// stage; everything else that fails does escalate to `delivery-failed`.
func (d *Deliverer) Execute(ctx context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	cfg, err := d.repo.ConfigByID(ctx, digest.ConfigID)
	if err != nil {
		return stage.StageFailure("delivery-failed", err.Error())
	}

	switch cfg.DeliveryMethod {
	case repository.DeliverySyndication:
		if err := d.regenerateFeed(ctx, digest.UserID); err != nil {
			return stage.StageFailure("delivery-failed", err.Error())
		}
	case repository.DeliveryEmail, repository.DeliveryPush:
		if err := d.notifier.Notify(ctx, "Your PodDigest is ready", digest.Title); err != nil {
			d.logger.Warn("best-effort delivery notification failed",
				logging.Int64(logging.FieldDigestID, digest.ID),
				logging.String("delivery_method", string(cfg.DeliveryMethod)),
				logging.Error(err),
			)
		}
	case repository.DeliveryInApp:
		// no-op: the digest row is already queryable.
	default:
		return stage.StageFailure("delivery-failed", fmt.Sprintf("unknown delivery method %q", cfg.DeliveryMethod))
	}

	return stage.Ok()
}

func (d *Deliverer) regenerateFeed(ctx context.Context, userID string) error {
	digests, err := d.repo.CompletedDigestsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load completed digests: %w", err)
	}

	body, err := renderFeed(userID, digests, d.objects)
	if err != nil {
		return fmt.Errorf("render feed: %w", err)
	}

	key := feedObjectKey(userID)
	metadata := map[string]string{"Cache-Control": feedCacheControl}
	if err := d.objects.Put(ctx, key, bytes.NewReader(body), "application/rss+xml", metadata); err != nil {
		return fmt.Errorf("upload feed: %w", err)
	}
	return nil
}

// HealthCheck reports the deliverer ready without probing anything; the
// object store it writes to is not checked here.
func (d *Deliverer) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("deliverer")
}
