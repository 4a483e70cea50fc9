package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies the kind of raw document a signal came from.
type SourceType string

const (
	SourceTypeArticle SourceType = "article"
	SourceTypeAlert   SourceType = "alert"
	SourceTypeTrend   SourceType = "trend"
)

// Provenance carries the origin of a piece of text through the pipeline.
type Provenance struct {
	SourceType   SourceType
	SourceOrigin string
	SourceURL    string
}

// RawDocument is the shared shape of ingested articles and alerts.
type RawDocument interface {
	DocumentID() uuid.UUID
	Provenance() Provenance
	// Content is the text the extractor runs over.
	Content() string
}

// RawArticle is a blog or news article stored by the ingestion job.
// SourceURL is the feed the article was read from, URL is the article itself.
type RawArticle struct {
	ID           uuid.UUID `json:"id"`
	SourceOrigin string    `json:"source_origin"`
	SourceURL    string    `json:"source_url"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
	FetchedAt    time.Time `json:"fetched_at"`
	Author       *string   `json:"author,omitempty"`
	Text         string    `json:"text"`
	Tags         []string  `json:"tags_raw"`
	DataPoints   []string  `json:"data_points"`
}

func (a *RawArticle) DocumentID() uuid.UUID { return a.ID }

func (a *RawArticle) Provenance() Provenance {
	return Provenance{SourceType: SourceTypeArticle, SourceOrigin: a.SourceOrigin, SourceURL: a.SourceURL}
}

func (a *RawArticle) Content() string { return a.Text }

// RawAlert is a keyword alert entry (title + snippet) from an alert feed.
type RawAlert struct {
	ID           uuid.UUID `json:"id"`
	SourceOrigin string    `json:"source_origin"`
	SourceURL    string    `json:"source_url"`
	Keyword      string    `json:"keyword"`
	Title        string    `json:"title"`
	Snippet      string    `json:"snippet"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
	FetchedAt    time.Time `json:"fetched_at"`
}

func (a *RawAlert) DocumentID() uuid.UUID { return a.ID }

func (a *RawAlert) Provenance() Provenance {
	return Provenance{SourceType: SourceTypeAlert, SourceOrigin: a.SourceOrigin, SourceURL: a.SourceURL}
}

// Content joins title and snippet with a single space.
func (a *RawAlert) Content() string { return a.Title + " " + a.Snippet }

// RelatedQuery is one entry of a search-interest related query list.
type RelatedQuery struct {
	Query      string `json:"query"`
	Value      int    `json:"value"`
	IsBreakout bool   `json:"is_breakout"`
}

type RelatedQueries struct {
	Top    []RelatedQuery `json:"top"`
	Rising []RelatedQuery `json:"rising"`
}

// RawTrend is one search-interest sample for a term.
type RawTrend struct {
	ID             uuid.UUID      `json:"id"`
	SourceOrigin   string         `json:"source_origin"`
	SourceURL      string         `json:"source_url"`
	Group          string         `json:"group"`
	Term           string         `json:"term"`
	Geo            string         `json:"geo"`
	Timeframe      string         `json:"timeframe"`
	PulledAt       time.Time      `json:"pulled_at"`
	WeeklyInterest float64        `json:"weekly_interest"`
	RelatedQueries RelatedQueries `json:"related_queries"`
}

// Window is an inclusive [Start, End] time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the window [now - days, now].
func LastDays(now time.Time, days int) Window {
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) Validate() error {
	if w.End.Before(w.Start) {
		return ErrInvalidWindow
	}
	return nil
}
