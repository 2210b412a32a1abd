// Package feedingest implements the crawl stage: it walks a user's active
// podcast subscriptions, parses each feed, and upserts newly discovered
// episodes into the repository.
package feedingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"poddigest/internal/logging"
	"poddigest/internal/repository"
)

var titleCaser = cases.Title(language.Und)

const (
	fallbackLookbackDays = 7
	fallbackEpisodeLimit = 50
)

// Ingestor crawls RSS feeds on behalf of a user's subscriptions.
type Ingestor struct {
	repo   *repository.Store
	parser *gofeed.Parser
	logger *slog.Logger
}

// New constructs an Ingestor backed by the given repository.
func New(repo *repository.Store, logger *slog.Logger) *Ingestor {
	return &Ingestor{repo: repo, parser: gofeed.NewParser(), logger: logger}
}

// CrawlForUser parses every active subscription's feed for a user, upserts
// newly discovered episodes, and returns their ids. If the crawl surfaces no
// new episodes it falls back to the most recent episodes published since
// weekStart across the user's subscriptions, up to fallbackEpisodeLimit. If
// that also yields nothing, it returns ErrNoEpisodes.
func (in *Ingestor) CrawlForUser(ctx context.Context, userID string, weekStart time.Time) ([]int64, error) {
	subs, err := in.repo.ActiveSubscriptionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var newEpisodeIDs []int64
	podcastIDs := make([]int64, 0, len(subs))

	for _, sub := range subs {
		podcastIDs = append(podcastIDs, sub.PodcastID)

		podcast, err := in.repo.PodcastByID(ctx, sub.PodcastID)
		if err != nil {
			in.logger.Warn("crawl: podcast lookup failed", slog.Int64("podcast_id", sub.PodcastID), logging.FieldErrorHint, err.Error())
			continue
		}

		cutoff := weekStart.AddDate(0, 0, -fallbackLookbackDays)
		if podcast.LastCrawledAt != nil {
			cutoff = *podcast.LastCrawledAt
		}

		ids, err := in.crawlFeed(ctx, podcast, cutoff)
		if err != nil {
			in.logger.Warn("crawl: feed failed, skipping", slog.String("feed_url", podcast.FeedURL), logging.FieldErrorHint, err.Error())
			continue
		}
		newEpisodeIDs = append(newEpisodeIDs, ids...)

		if err := in.repo.MarkPodcastCrawled(ctx, podcast.ID, time.Now()); err != nil {
			in.logger.Warn("crawl: mark crawled failed", slog.Int64("podcast_id", podcast.ID), logging.FieldErrorHint, err.Error())
		}
	}

	if len(newEpisodeIDs) > 0 {
		return newEpisodeIDs, nil
	}

	recent, err := in.repo.RecentEpisodesSince(ctx, podcastIDs, weekStart, fallbackEpisodeLimit)
	if err != nil {
		return nil, fmt.Errorf("fallback lookup: %w", err)
	}
	if len(recent) == 0 {
		return nil, ErrNoEpisodes
	}

	ids := make([]int64, len(recent))
	for i, e := range recent {
		ids[i] = e.ID
	}
	return ids, nil
}

// crawlFeed parses a single podcast's feed and upserts items published after
// cutoff, returning the newly created episode ids.
func (in *Ingestor) crawlFeed(ctx context.Context, podcast *repository.Podcast, cutoff time.Time) ([]int64, error) {
	feed, err := in.parser.ParseURLWithContext(podcast.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var ids []int64
	for _, item := range feed.Items {
		publishedAt := itemPublishedAt(item)
		if !publishedAt.After(cutoff) {
			continue
		}

		audioURL := itemAudioURL(item)
		if audioURL == "" {
			continue
		}

		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}

		durationSec := 0
		if item.ITunesExt != nil {
			if parsed, ok := ParseDuration(item.ITunesExt.Duration); ok {
				durationSec = parsed
			}
		}

		existing, err := in.repo.EpisodeByGUID(ctx, podcast.ID, guid)
		alreadyExists := err == nil && existing != nil
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup episode: %w", err)
		}

		episode, err := in.repo.UpsertEpisode(ctx, &repository.Episode{
			PodcastID:   podcast.ID,
			Title:       normalizeTitle(item.Title),
			AudioURL:    audioURL,
			PublishedAt: publishedAt,
			DurationSec: durationSec,
			GUID:        guid,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert episode: %w", err)
		}
		if !alreadyExists {
			ids = append(ids, episode.ID)
		}
	}
	return ids, nil
}

// normalizeTitle title-cases episode titles a feed published in all caps or
// all lowercase, which some podcast hosting platforms do by default. A title
// that mixes upper- and lowercase letters is left as the publisher styled it.
func normalizeTitle(title string) string {
	if title == "" || strings.ToLower(title) != title && strings.ToUpper(title) != title {
		return title
	}
	return titleCaser.String(title)
}

func itemPublishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemAudioURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure.URL == "" {
			continue
		}
		return enclosure.URL
	}
	return ""
}
