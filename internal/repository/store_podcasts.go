package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const podcastColumns = "id, title, author, feed_url, artwork_url, external_id, last_crawled_at"

// UpsertPodcast creates or updates a podcast identified by its feed URL.
func (s *Store) UpsertPodcast(ctx context.Context, p *Podcast) (*Podcast, error) {
	existing, err := s.PodcastByFeedURL(ctx, p.FeedURL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		p.ID = existing.ID
		_, err := s.db.ExecContext(ctx,
			`UPDATE podcasts SET title = ?, author = ?, artwork_url = ?, external_id = ? WHERE id = ?`,
			p.Title, nullableString(p.Author), nullableString(p.ArtworkURL), nullableString(p.ExternalID), p.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("update podcast: %w", err)
		}
		return s.PodcastByID(ctx, p.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO podcasts (title, author, feed_url, artwork_url, external_id) VALUES (?, ?, ?, ?, ?)`,
		p.Title, nullableString(p.Author), p.FeedURL, nullableString(p.ArtworkURL), nullableString(p.ExternalID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert podcast: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.PodcastByID(ctx, id)
}

// PodcastByID fetches a podcast by identifier.
func (s *Store) PodcastByID(ctx context.Context, id int64) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE id = ?`, id)
	return scanPodcast(row)
}

// PodcastByFeedURL fetches a podcast by its unique feed URL.
func (s *Store) PodcastByFeedURL(ctx context.Context, feedURL string) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE feed_url = ?`, feedURL)
	return scanPodcast(row)
}

// MarkPodcastCrawled updates a podcast's lastCrawledAt timestamp.
func (s *Store) MarkPodcastCrawled(ctx context.Context, id int64, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE podcasts SET last_crawled_at = ? WHERE id = ?`, when.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark podcast crawled: %w", err)
	}
	return nil
}

func scanPodcast(scanner interface{ Scan(dest ...any) error }) (*Podcast, error) {
	var (
		id            int64
		title         string
		author        sql.NullString
		feedURL       string
		artworkURL    sql.NullString
		externalID    sql.NullString
		lastCrawledAt sql.NullString
	)
	if err := scanner.Scan(&id, &title, &author, &feedURL, &artworkURL, &externalID, &lastCrawledAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := &Podcast{
		ID:         id,
		Title:      title,
		Author:     author.String,
		FeedURL:    feedURL,
		ArtworkURL: artworkURL.String,
		ExternalID: externalID.String,
	}
	if lastCrawledAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastCrawledAt.String); err == nil {
			p.LastCrawledAt = &t
		}
	}
	return p, nil
}

// CreateSubscription links a user to a podcast with the given priority.
func (s *Store) CreateSubscription(ctx context.Context, sub *Subscription) (*Subscription, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, podcast_id, priority, active) VALUES (?, ?, ?, ?)`,
		sub.UserID, sub.PodcastID, sub.Priority, boolToInt(sub.Active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	return sub, nil
}

// ActiveSubscriptionsForUser returns the active subscriptions for a user.
func (s *Store) ActiveSubscriptionsForUser(ctx context.Context, userID string) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, podcast_id, priority, active FROM subscriptions WHERE user_id = ? AND active = 1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		var sub Subscription
		var active int
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PodcastID, &sub.Priority, &active); err != nil {
			return nil, err
		}
		sub.Active = active != 0
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}
