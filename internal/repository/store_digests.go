package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const digestColumns = `id, user_id, config_id, title, week_start, week_end, audio_object_key, total_duration_sec,
    clip_count, chapters_json, status, error, version, created_at, updated_at`

// CreateDigest inserts a new Digest row with status pending and version 0.
func (s *Store) CreateDigest(ctx context.Context, d *Digest) (*Digest, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO digests (user_id, config_id, title, week_start, week_end, status, version, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		d.UserID, d.ConfigID, d.Title, d.WeekStart.UTC().Format(time.RFC3339Nano), d.WeekEnd.UTC().Format(time.RFC3339Nano),
		DigestPending, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert digest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.FindDigestForUpdate(ctx, id)
}

// FindDigestForUpdate fetches a Digest by id, intended as the read half of a
// read-modify-write status transition guarded by Version.
func (s *Store) FindDigestForUpdate(ctx context.Context, id int64) (*Digest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+digestColumns+` FROM digests WHERE id = ?`, id)
	return scanDigest(row)
}

// NonTerminalDigestExists reports whether a config already has a Digest that
// has not reached completed or failed, used by the cron loop to skip
// configs with an in-flight run.
func (s *Store) NonTerminalDigestExists(ctx context.Context, configID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM digests WHERE config_id = ? AND status NOT IN (?, ?)`,
		configID, DigestCompleted, DigestFailed,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check non-terminal digest: %w", err)
	}
	return count > 0, nil
}

// SetDigestStatus advances Digest.status with optimistic-concurrency
// serialization: the write is rejected with ErrVersionConflict if the
// stored version no longer matches expectedVersion, and with
// ErrStatusRegression if the transition violates the state machine.
func (s *Store) SetDigestStatus(ctx context.Context, id int64, expectedVersion int64, next DigestStatus, errText string) error {
	current, err := s.FindDigestForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	if !current.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current.Status, next)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE digests SET status = ?, error = ?, version = version + 1, updated_at = ?
         WHERE id = ? AND version = ?`,
		next, nullableString(errText), time.Now().UTC().Format(time.RFC3339Nano), id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("set digest status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ResetForRetry resets a failed Digest back to pending, bypassing the
// forward-only state machine SetDigestStatus enforces — retry is an
// explicit operator action, not a stage-success transition. Rejected with
// ErrStatusRegression if the digest is not currently failed, and with
// ErrVersionConflict if expectedVersion is stale.
func (s *Store) ResetForRetry(ctx context.Context, id int64, expectedVersion int64) error {
	current, err := s.FindDigestForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	if current.Status != DigestFailed {
		return fmt.Errorf("%w: retry requires status failed, got %s", ErrStatusRegression, current.Status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE digests SET status = ?, error = NULL, version = version + 1, updated_at = ?
         WHERE id = ? AND version = ?`,
		DigestPending, time.Now().UTC().Format(time.RFC3339Nano), id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("reset digest for retry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// SetAssemblyResult records the audio object key, total duration and
// chapters the assembler produced for a Digest. It leaves status and
// version unchanged; the orchestrator advances status.
func (s *Store) SetAssemblyResult(ctx context.Context, id int64, audioObjectKey string, totalDurationSec float64, chapters []Chapter) error {
	chaptersJSON, err := json.Marshal(chapters)
	if err != nil {
		return fmt.Errorf("marshal chapters: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE digests SET audio_object_key = ?, total_duration_sec = ?, chapters_json = ?, updated_at = ? WHERE id = ?`,
		audioObjectKey, totalDurationSec, string(chaptersJSON), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("set assembly result: %w", err)
	}
	return nil
}

// CompletedDigestsForUser returns completed digests for a user, newest first,
// used by the deliverer to render the per-user syndication feed.
func (s *Store) CompletedDigestsForUser(ctx context.Context, userID string) ([]*Digest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+digestColumns+` FROM digests WHERE user_id = ? AND status = ? ORDER BY created_at DESC`,
		userID, DigestCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("completed digests for user: %w", err)
	}
	defer rows.Close()

	var digests []*Digest
	for rows.Next() {
		d, err := scanDigestRows(rows)
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, rows.Err()
}

func scanDigest(row *sql.Row) (*Digest, error) {
	return scanDigestRows(row)
}

func scanDigestRows(scanner interface{ Scan(dest ...any) error }) (*Digest, error) {
	var (
		id               int64
		userID           string
		configID         int64
		title            string
		weekStartRaw     string
		weekEndRaw       string
		audioObjectKey   sql.NullString
		totalDurationSec sql.NullFloat64
		clipCount        int
		chaptersJSON     string
		status           string
		errText          sql.NullString
		version          int64
		createdAtRaw     string
		updatedAtRaw     string
	)
	if err := scanner.Scan(&id, &userID, &configID, &title, &weekStartRaw, &weekEndRaw, &audioObjectKey,
		&totalDurationSec, &clipCount, &chaptersJSON, &status, &errText, &version, &createdAtRaw, &updatedAtRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var chapters []Chapter
	if err := json.Unmarshal([]byte(chaptersJSON), &chapters); err != nil {
		return nil, fmt.Errorf("unmarshal chapters: %w", err)
	}

	d := &Digest{
		ID:             id,
		UserID:         userID,
		ConfigID:       configID,
		Title:          title,
		AudioObjectKey: audioObjectKey.String,
		ClipCount:      clipCount,
		Chapters:       chapters,
		Status:         DigestStatus(status),
		Error:          errText.String,
		Version:        version,
	}
	if totalDurationSec.Valid {
		d.TotalDurationSec = &totalDurationSec.Float64
	}
	if t, err := time.Parse(time.RFC3339Nano, weekStartRaw); err == nil {
		d.WeekStart = t
	}
	if t, err := time.Parse(time.RFC3339Nano, weekEndRaw); err == nil {
		d.WeekEnd = t
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAtRaw); err == nil {
		d.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAtRaw); err == nil {
		d.UpdatedAt = t
	}
	return d, nil
}
