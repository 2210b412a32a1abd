package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SaveTranscript upserts a Transcript row for an episode.
func (s *Store) SaveTranscript(ctx context.Context, t *Transcript) error {
	segmentsJSON, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (episode_id, full_text, segments_json, language, status, error)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(episode_id) DO UPDATE SET
            full_text = excluded.full_text,
            segments_json = excluded.segments_json,
            language = excluded.language,
            status = excluded.status,
            error = excluded.error`,
		t.EpisodeID, t.FullText, string(segmentsJSON), t.Language, t.Status, nullableString(t.Error),
	)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// FindCompletedTranscript returns the completed transcript for an episode,
// or ErrNotFound if none exists or it is not yet completed.
func (s *Store) FindCompletedTranscript(ctx context.Context, episodeID int64) (*Transcript, error) {
	t, err := s.TranscriptByEpisodeID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if t.Status != TranscriptCompleted {
		return nil, ErrNotFound
	}
	return t, nil
}

// TranscriptByEpisodeID fetches a transcript regardless of status.
func (s *Store) TranscriptByEpisodeID(ctx context.Context, episodeID int64) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT episode_id, full_text, segments_json, language, status, error FROM transcripts WHERE episode_id = ?`,
		episodeID,
	)
	var (
		id           int64
		fullText     string
		segmentsJSON string
		language     string
		status       string
		errText      sql.NullString
	)
	if err := row.Scan(&id, &fullText, &segmentsJSON, &language, &status, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var segments []Segment
	if err := json.Unmarshal([]byte(segmentsJSON), &segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	return &Transcript{
		EpisodeID: id,
		FullText:  fullText,
		Segments:  segments,
		Language:  language,
		Status:    TranscriptStatus(status),
		Error:     errText.String,
	}, nil
}
