package feedingest

import "errors"

// ErrNoEpisodes is returned when a crawl and its 7-day fallback both yield
// zero episodes for a user's active subscriptions.
var ErrNoEpisodes = errors.New("feedingest: no episodes available")
