package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const narrationColumns = "id, digest_id, position, type, object_key, duration_sec, script_text"

// SaveNarrationAudio upserts a synthesized narration segment for a digest,
// keyed by (digestId, position).
func (s *Store) SaveNarrationAudio(ctx context.Context, n *NarrationAudio) (*NarrationAudio, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO narration_audios (digest_id, position, type, object_key, duration_sec, script_text)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(digest_id, position) DO UPDATE SET
            type = excluded.type,
            object_key = excluded.object_key,
            duration_sec = excluded.duration_sec,
            script_text = excluded.script_text`,
		n.DigestID, n.Position, string(n.Type), n.ObjectKey, n.DurationSec, n.ScriptText,
	)
	if err != nil {
		return nil, fmt.Errorf("save narration audio: %w", err)
	}
	return s.narrationAudioByPosition(ctx, n.DigestID, n.Position)
}

// NarrationAudiosForDigest returns all narration segments for a digest,
// ordered by position (intro at 0, transitions ascending, outro last).
func (s *Store) NarrationAudiosForDigest(ctx context.Context, digestID int64) ([]*NarrationAudio, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+narrationColumns+` FROM narration_audios WHERE digest_id = ? ORDER BY position`, digestID)
	if err != nil {
		return nil, fmt.Errorf("narration audios for digest: %w", err)
	}
	defer rows.Close()

	var results []*NarrationAudio
	for rows.Next() {
		n, err := scanNarrationAudioRows(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func (s *Store) narrationAudioByPosition(ctx context.Context, digestID int64, position int) (*NarrationAudio, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+narrationColumns+` FROM narration_audios WHERE digest_id = ? AND position = ?`, digestID, position)
	return scanNarrationAudio(row)
}

func scanNarrationAudio(row *sql.Row) (*NarrationAudio, error) {
	return scanNarrationAudioRows(row)
}

func scanNarrationAudioRows(scanner interface{ Scan(dest ...any) error }) (*NarrationAudio, error) {
	var (
		id          int64
		digestID    int64
		position    int
		typ         string
		objectKey   string
		durationSec float64
		scriptText  string
	)
	if err := scanner.Scan(&id, &digestID, &position, &typ, &objectKey, &durationSec, &scriptText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &NarrationAudio{
		ID:          id,
		DigestID:    digestID,
		Position:    position,
		Type:        NarrationSegmentType(typ),
		ObjectKey:   objectKey,
		DurationSec: durationSec,
		ScriptText:  scriptText,
	}, nil
}
