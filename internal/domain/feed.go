package domain

import (
	"context"
	"strings"
	"time"
)

// AlertSourcePrefix marks feeds whose entries are stored as alerts.
const AlertSourcePrefix = "google_alerts_"

// FeedItem is one entry of a parsed RSS or Atom feed.
type FeedItem struct {
	Title       string
	Link        string
	Summary     string
	Content     string
	Author      string
	Tags        []string
	PublishedAt time.Time
}

// FeedFetcher reads feeds and article pages from the network.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]FeedItem, error)
	// ArticleText returns readable text for an article, preferring rssContent
	// when it is long enough.
	ArticleText(ctx context.Context, url, rssContent string) (string, error)
}

// IsAlertFeed reports whether a feed's entries are keyword alerts.
func (f FeedConfig) IsAlertFeed() bool {
	return strings.HasPrefix(f.Source, AlertSourcePrefix)
}

// IngestResult reports one feed ingestion run.
type IngestResult struct {
	Feeds         int `json:"feeds"`
	AlertsSaved   int `json:"alerts_saved"`
	ArticlesSaved int `json:"articles_saved"`
	SkippedNoData int `json:"skipped_no_data"`
	SkippedBiased int `json:"skipped_biased"`
	Failed        int `json:"failed"`
}
