package deliverer

import (
	"encoding/xml"
	"fmt"

	"poddigest/internal/repository"
)

const (
	itunesNamespace = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	atomNamespace   = "http://www.w3.org/2005/Atom"
)

type rssFeed struct {
	XMLName     xml.Name   `xml:"rss"`
	Version     string     `xml:"version,attr"`
	XMLNSItunes string     `xml:"xmlns:itunes,attr"`
	XMLNSAtom   string     `xml:"xmlns:atom,attr"`
	Channel     rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Description   string    `xml:"description"`
	Link          string    `xml:"link"`
	Language      string    `xml:"language"`
	SelfLink      atomLink  `xml:"atom:link"`
	ItunesAuthor  string    `xml:"itunes:author"`
	ItunesSummary string    `xml:"itunes:summary"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string    `xml:"title"`
	Description    string    `xml:"description"`
	Enclosure      enclosure `xml:"enclosure"`
	GUID           guid      `xml:"guid"`
	PubDate        string    `xml:"pubDate"`
	ItunesDuration string    `xml:"itunes:duration"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

type guid struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// feedURLResolver mints a public URL for an object key, letting the
// enclosure and self-link point at the object store's CDN domain.
type feedURLResolver interface {
	PublicURL(key string) string
}

// renderFeed builds the RSS 2.0 + iTunes + Atom document for one user's
// completed digests, newest first (digests is expected pre-sorted by
// CompletedDigestsForUser).
func renderFeed(userID string, digests []*repository.Digest, objects feedURLResolver) ([]byte, error) {
	feedKey := feedObjectKey(userID)
	channel := rssChannel{
		Title:       "PodDigest",
		Description: "Your personalized weekly podcast digest.",
		Link:        objects.PublicURL(feedKey),
		Language:    "en-us",
		SelfLink: atomLink{
			Href: objects.PublicURL(feedKey),
			Rel:  "self",
			Type: "application/rss+xml",
		},
		ItunesAuthor:  "PodDigest",
		ItunesSummary: "Your personalized weekly podcast digest.",
	}

	for _, d := range digests {
		if d.AudioObjectKey == "" {
			continue
		}
		item := rssItem{
			Title:       d.Title,
			Description: fmt.Sprintf("Digest for %s through %s.", d.WeekStart.Format("Jan 2"), d.WeekEnd.Format("Jan 2, 2006")),
			Enclosure: enclosure{
				URL:    objects.PublicURL(d.AudioObjectKey),
				Type:   "audio/mpeg",
				Length: "0",
			},
			GUID:           guid{IsPermaLink: "false", Value: fmt.Sprintf("%d", d.ID)},
			PubDate:        d.CreatedAt.Format(rfc2822Layout),
			ItunesDuration: formatHMS(totalDurationOf(d)),
		}
		channel.Items = append(channel.Items, item)
	}

	feed := rssFeed{
		Version:     "2.0",
		XMLNSItunes: itunesNamespace,
		XMLNSAtom:   atomNamespace,
		Channel:     channel,
	}

	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func feedObjectKey(userID string) string {
	return fmt.Sprintf("feeds/%s/feed.xml", userID)
}

func totalDurationOf(d *repository.Digest) float64 {
	if d.TotalDurationSec == nil {
		return 0
	}
	return *d.TotalDurationSec
}

const rfc2822Layout = "Mon, 02 Jan 2006 15:04:05 -0700"

func formatHMS(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
