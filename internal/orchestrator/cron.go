package orchestrator

import (
	"context"
	"time"

	"poddigest/internal/logging"
)

// runCronLoop ticks every cronInterval and, when the shared "pipeline"
// trigger is due, scans active configs for one whose weekly delivery
// window has arrived.
func (o *Orchestrator) runCronLoop(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		due, err := o.queue.DueForCronTrigger(ctx, "pipeline", o.cronInterval)
		if err != nil {
			o.logger.Error("cron trigger check failed", logging.Error(err))
		} else if due {
			o.runCronTick(ctx)
		}

		o.sleep(ctx, o.cronInterval)
	}
}

// runCronTick triggers a digest for every active config whose delivery day
// and hour (UTC) match the current hour, unless that config already has a
// non-terminal digest in flight.
func (o *Orchestrator) runCronTick(ctx context.Context) {
	configs, err := o.repo.ListActiveConfigs(ctx)
	if err != nil {
		o.logger.Error("list active configs failed", logging.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, cfg := range configs {
		if cfg.DeliveryDay != now.Weekday() || cfg.DeliveryHour != now.Hour() {
			continue
		}

		exists, err := o.repo.NonTerminalDigestExists(ctx, cfg.ID)
		if err != nil {
			o.logger.Error("check non-terminal digest failed", logging.Int64("config_id", cfg.ID), logging.Error(err))
			continue
		}
		if exists {
			o.logger.Debug("skipping config with digest already in flight", logging.Int64("config_id", cfg.ID))
			continue
		}

		if _, err := o.Trigger(ctx, cfg.UserID, cfg.ID); err != nil {
			o.logger.Error("cron trigger failed", logging.Int64("config_id", cfg.ID), logging.Error(err))
		}
	}
}
