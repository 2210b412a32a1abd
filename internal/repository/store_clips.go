package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const clipColumns = "id, digest_id, episode_id, start_sec, end_sec, score, score_dimensions_json, position, feedback_tag"

// AppendClip inserts a DigestClip and enforces the non-overlap invariant
// against already-persisted clips of the same (digestId, episodeId).
func (s *Store) AppendClip(ctx context.Context, c *DigestClip) (*DigestClip, error) {
	if c.EndSec <= c.StartSec {
		return nil, fmt.Errorf("%w: clip endSec must exceed startSec", ErrStatusRegression)
	}

	existing, err := s.ClipsForDigest(ctx, c.DigestID)
	if err != nil {
		return nil, err
	}
	for _, other := range existing {
		if other.EpisodeID != c.EpisodeID {
			continue
		}
		if clipsOverlap(c.StartSec, c.EndSec, other.StartSec, other.EndSec) {
			return nil, fmt.Errorf("%w: clip overlaps existing clip in episode %d", ErrStatusRegression, c.EpisodeID)
		}
	}

	dimsJSON, err := json.Marshal(c.ScoreDimensions)
	if err != nil {
		return nil, fmt.Errorf("marshal score dimensions: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO digest_clips (digest_id, episode_id, start_sec, end_sec, score, score_dimensions_json, position, feedback_tag)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.DigestID, c.EpisodeID, c.StartSec, c.EndSec, c.Score, string(dimsJSON), c.Position, nullableString(string(c.FeedbackTag)),
	)
	if err != nil {
		return nil, fmt.Errorf("insert digest clip: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE digests SET clip_count = (SELECT COUNT(1) FROM digest_clips WHERE digest_id = ?), updated_at = ? WHERE id = ?`,
		c.DigestID, time.Now().UTC().Format(time.RFC3339Nano), c.DigestID,
	); err != nil {
		return nil, fmt.Errorf("update clip count: %w", err)
	}

	return s.ClipByID(ctx, id)
}

func clipsOverlap(aStart, aEnd, bStart, bEnd float64) bool {
	return aStart < bEnd && bStart < aEnd
}

// ClipByID fetches a DigestClip by identifier.
func (s *Store) ClipByID(ctx context.Context, id int64) (*DigestClip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM digest_clips WHERE id = ?`, id)
	return scanClip(row)
}

// ClipsForDigest returns all clips for a digest ordered by position.
func (s *Store) ClipsForDigest(ctx context.Context, digestID int64) ([]*DigestClip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clipColumns+` FROM digest_clips WHERE digest_id = ? ORDER BY position`, digestID)
	if err != nil {
		return nil, fmt.Errorf("clips for digest: %w", err)
	}
	defer rows.Close()

	var clips []*DigestClip
	for rows.Next() {
		c, err := scanClipRows(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

// SetClipFeedback records a listener's up/down signal on a delivered clip.
// The analyzer does not read this back; it is a write path for a future
// recommender.
func (s *Store) SetClipFeedback(ctx context.Context, clipID int64, tag FeedbackTag) error {
	_, err := s.db.ExecContext(ctx, `UPDATE digest_clips SET feedback_tag = ? WHERE id = ?`, string(tag), clipID)
	if err != nil {
		return fmt.Errorf("set clip feedback: %w", err)
	}
	return nil
}

func scanClip(row *sql.Row) (*DigestClip, error) {
	return scanClipRows(row)
}

func scanClipRows(scanner interface{ Scan(dest ...any) error }) (*DigestClip, error) {
	var (
		id           int64
		digestID     int64
		episodeID    int64
		startSec     float64
		endSec       float64
		score        float64
		dimsJSON     string
		position     int
		feedbackTag  sql.NullString
	)
	if err := scanner.Scan(&id, &digestID, &episodeID, &startSec, &endSec, &score, &dimsJSON, &position, &feedbackTag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var dims ScoreDimensions
	if err := json.Unmarshal([]byte(dimsJSON), &dims); err != nil {
		return nil, fmt.Errorf("unmarshal score dimensions: %w", err)
	}
	return &DigestClip{
		ID:              id,
		DigestID:        digestID,
		EpisodeID:       episodeID,
		StartSec:        startSec,
		EndSec:          endSec,
		Score:           score,
		ScoreDimensions: dims,
		Position:        position,
		FeedbackTag:     FeedbackTag(feedbackTag.String),
	}, nil
}
