package repository

import (
	"context"
	"fmt"
)

// LinkEpisodesToDigest records which episodes a digest's crawl stage
// pulled in, the set the transcriber and analyzer stages iterate.
func (s *Store) LinkEpisodesToDigest(ctx context.Context, digestID int64, episodeIDs []int64) error {
	if len(episodeIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link episodes tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, episodeID := range episodeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO digest_episodes (digest_id, episode_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			digestID, episodeID,
		); err != nil {
			return fmt.Errorf("link episode %d to digest %d: %w", episodeID, digestID, err)
		}
	}
	return tx.Commit()
}

// EpisodeIDsForDigest returns the episode ids a digest's crawl stage linked,
// used to build the transcribe and analyze stage payloads.
func (s *Store) EpisodeIDsForDigest(ctx context.Context, digestID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT episode_id FROM digest_episodes WHERE digest_id = ? ORDER BY episode_id`, digestID)
	if err != nil {
		return nil, fmt.Errorf("episode ids for digest: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
