package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const episodeColumns = "id, podcast_id, title, audio_url, published_at, duration_sec, guid, transcript_status"

// UpsertEpisode creates an episode keyed by (podcastId, guid) if absent, or
// returns the existing row unchanged; episodes are immutable once created
// except for transcriptStatus, advanced by the transcriber.
func (s *Store) UpsertEpisode(ctx context.Context, e *Episode) (*Episode, error) {
	existing, err := s.EpisodeByGUID(ctx, e.PodcastID, e.GUID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (podcast_id, title, audio_url, published_at, duration_sec, guid, transcript_status)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.PodcastID, e.Title, e.AudioURL, e.PublishedAt.UTC().Format(time.RFC3339Nano), e.DurationSec, e.GUID, TranscriptPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.EpisodeByID(ctx, id)
}

// EpisodeByID fetches an episode by identifier.
func (s *Store) EpisodeByID(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	return scanEpisode(row)
}

// EpisodeByGUID fetches an episode by its (podcastId, guid) unique key.
func (s *Store) EpisodeByGUID(ctx context.Context, podcastID int64, guid string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE podcast_id = ? AND guid = ?`, podcastID, guid)
	return scanEpisode(row)
}

// RecentEpisodesSince returns up to limit episodes across the given podcasts
// published at or after since, newest first; used for the 7-day fallback.
func (s *Store) RecentEpisodesSince(ctx context.Context, podcastIDs []int64, since time.Time, limit int) ([]*Episode, error) {
	if len(podcastIDs) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(podcastIDs))
	args := make([]any, 0, len(podcastIDs)+2)
	for _, id := range podcastIDs {
		args = append(args, id)
	}
	args = append(args, since.UTC().Format(time.RFC3339Nano), limit)

	query := `SELECT ` + episodeColumns + ` FROM episodes
        WHERE podcast_id IN (` + placeholders + `) AND published_at >= ?
        ORDER BY published_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		e, err := scanEpisodeRows(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// SetTranscriptStatus writes an episode's transcriptStatus as given; it does
// not check the transition order, which the transcriber drives (pending,
// processing, then completed or failed).
func (s *Store) SetTranscriptStatus(ctx context.Context, episodeID int64, status TranscriptStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE episodes SET transcript_status = ? WHERE id = ?`, status, episodeID)
	if err != nil {
		return fmt.Errorf("set transcript status: %w", err)
	}
	return nil
}

func scanEpisode(row *sql.Row) (*Episode, error) {
	return scanEpisodeRows(row)
}

func scanEpisodeRows(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id               int64
		podcastID        int64
		title            string
		audioURL         string
		publishedAtRaw   string
		durationSec      int
		guid             string
		transcriptStatus string
	)
	if err := scanner.Scan(&id, &podcastID, &title, &audioURL, &publishedAtRaw, &durationSec, &guid, &transcriptStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e := &Episode{
		ID:               id,
		PodcastID:        podcastID,
		Title:            title,
		AudioURL:         audioURL,
		DurationSec:      durationSec,
		GUID:             guid,
		TranscriptStatus: TranscriptStatus(transcriptStatus),
	}
	if t, err := time.Parse(time.RFC3339Nano, publishedAtRaw); err == nil {
		e.PublishedAt = t
	}
	return e, nil
}
