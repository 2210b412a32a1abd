package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

const jobColumns = "id, queue, job_id, payload, status, attempts, max_attempts, available_at, lease_expires_at, error, created_at, updated_at"

// Enqueue inserts a job on the named queue. When jobID is non-empty and a
// job with the same (queue, jobID) already exists, Enqueue is a no-op and
// returns the existing job id — the dedup mechanism stage-advance handoffs
// rely on (e.g. "{nextStage}-{digestId}").
func (s *Store) Enqueue(ctx context.Context, queueName, jobID, payload string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (queue, job_id, payload, status, attempts, max_attempts, available_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)
         ON CONFLICT(queue, job_id) DO NOTHING`,
		queueName, nullableString(jobID), payload, StatusPending, s.defaultMaxTry, now, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue job: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
		return id, nil
	}

	if jobID == "" {
		return 0, errors.New("enqueue: conflict without a dedup job id")
	}
	var existingID int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM jobs WHERE queue = ? AND job_id = ?`, queueName, jobID).Scan(&existingID)
	if err != nil {
		return 0, fmt.Errorf("lookup deduped job: %w", err)
	}
	return existingID, nil
}

// Lease atomically claims the oldest available job on a queue and marks it
// leased until leaseDuration elapses, returning nil if none is available.
func (s *Store) Lease(ctx context.Context, queueName string, leaseDuration time.Duration) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin lease tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE queue = ? AND status = ? AND available_at <= ?
         ORDER BY id LIMIT 1`,
		queueName, StatusPending, now.Format(time.RFC3339Nano),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select leasable job: %w", err)
	}

	leaseExpires := now.Add(leaseDuration)
	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, attempts = attempts + 1, lease_expires_at = ?, updated_at = ? WHERE id = ?`,
		StatusLeased, leaseExpires.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), job.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark job leased: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease: %w", err)
	}

	job.Status = StatusLeased
	job.Attempts++
	job.LeaseExpiresAt = &leaseExpires
	return job, nil
}

// Complete marks a leased job as completed.
func (s *Store) Complete(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, lease_expires_at = NULL, error = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted, time.Now().UTC().Format(time.RFC3339Nano), jobID,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail records a job failure. If attempts remain, the job is re-queued with
// an exponential backoff delay (base^attempts seconds, capped at max);
// otherwise it is marked terminally failed and retained for inspection.
func (s *Store) Fail(ctx context.Context, jobID int64, errText string) error {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return fmt.Errorf("load job for failure: %w", err)
	}

	now := time.Now().UTC()
	if job.Attempts >= job.MaxAttempts {
		_, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, lease_expires_at = NULL, error = ?, updated_at = ? WHERE id = ?`,
			StatusFailed, errText, now.Format(time.RFC3339Nano), jobID,
		)
		if err != nil {
			return fmt.Errorf("mark job terminally failed: %w", err)
		}
		return nil
	}

	delay := s.backoffDelay(job.Attempts)
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, lease_expires_at = NULL, error = ?, available_at = ?, updated_at = ? WHERE id = ?`,
		StatusPending, errText, now.Add(delay).Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), jobID,
	)
	if err != nil {
		return fmt.Errorf("requeue failed job: %w", err)
	}
	return nil
}

func (s *Store) backoffDelay(attempts int) time.Duration {
	seconds := math.Pow(float64(s.backoffBase), float64(attempts))
	if seconds > float64(s.backoffMax) {
		seconds = float64(s.backoffMax)
	}
	return time.Duration(seconds) * time.Second
}

// CancelPending deletes a not-yet-leased job matching (queue, jobID). A job
// already leased is left alone — cancel does not interrupt in-flight work,
// only prevents a not-yet-started next stage from starting.
func (s *Store) CancelPending(ctx context.Context, queueName, jobID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE queue = ? AND job_id = ? AND status = ?`,
		queueName, jobID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("cancel pending job: %w", err)
	}
	return nil
}

// ReclaimExpiredLeases returns jobs whose lease has expired back to pending,
// recovering work from a worker that crashed mid-stage.
func (s *Store) ReclaimExpiredLeases(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, lease_expires_at = NULL, updated_at = ?
         WHERE status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?`,
		StatusPending, now, StatusLeased, now,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes job counts per status for a queue.
func (s *Store) Stats(ctx context.Context, queueName string) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs WHERE queue = ? GROUP BY status`, queueName)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{Queue: queueName}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusLeased:
			stats.Leased = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id             int64
		queueName      string
		jobID          sql.NullString
		payload        string
		status         string
		attempts       int
		maxAttempts    int
		availableAtRaw string
		leaseExpRaw    sql.NullString
		errText        sql.NullString
		createdAtRaw   string
		updatedAtRaw   string
	)
	if err := scanner.Scan(&id, &queueName, &jobID, &payload, &status, &attempts, &maxAttempts,
		&availableAtRaw, &leaseExpRaw, &errText, &createdAtRaw, &updatedAtRaw); err != nil {
		return nil, err
	}
	job := &Job{
		ID:          id,
		Queue:       queueName,
		JobID:       jobID.String,
		Payload:     payload,
		Status:      Status(status),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Error:       errText.String,
	}
	if t, err := time.Parse(time.RFC3339Nano, availableAtRaw); err == nil {
		job.AvailableAt = t
	}
	if leaseExpRaw.Valid {
		if t, err := time.Parse(time.RFC3339Nano, leaseExpRaw.String); err == nil {
			job.LeaseExpiresAt = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAtRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAtRaw); err == nil {
		job.UpdatedAt = t
	}
	return job, nil
}
