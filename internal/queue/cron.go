package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DueForCronTrigger registers (on first call) and checks a named periodic
// trigger, e.g. the orchestrator's hourly "pipeline" tick. It returns true
// and advances last_fired_at at most once per interval.
func (s *Store) DueForCronTrigger(ctx context.Context, name string, interval time.Duration) (bool, error) {
	now := time.Now().UTC()

	var lastFiredRaw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT last_fired_at FROM cron_triggers WHERE name = ?`, name).Scan(&lastFiredRaw)
	if errors.Is(err, sql.ErrNoRows) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO cron_triggers (name, interval_sec, last_fired_at) VALUES (?, ?, ?)`,
			name, int(interval.Seconds()), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return false, fmt.Errorf("register cron trigger: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cron trigger: %w", err)
	}

	if lastFiredRaw.Valid {
		lastFired, perr := time.Parse(time.RFC3339Nano, lastFiredRaw.String)
		if perr == nil && now.Sub(lastFired) < interval {
			return false, nil
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE cron_triggers SET last_fired_at = ? WHERE name = ?`,
		now.Format(time.RFC3339Nano), name,
	)
	if err != nil {
		return false, fmt.Errorf("advance cron trigger: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
