package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatCandidate is a numeric fragment found in text together with the
// reconstructed sentence around it. Never persisted.
type StatCandidate struct {
	Sentence    string
	RawValueStr string
}

// ProcessedSignal is a structured quantitative statement extracted from text.
// (SourceOrigin, SourceURL, ContextSentence) is unique in the store.
type ProcessedSignal struct {
	ID              uuid.UUID  `json:"id"`
	SourceType      SourceType `json:"source_type"`
	SourceOrigin    string     `json:"source_origin"`
	SourceURL       string     `json:"source_url"`
	Topic           string     `json:"topic"`
	Entity          string     `json:"entity"`
	Metric          string     `json:"metric"`
	ValueNow        float64    `json:"value_now"`
	ValueBefore     *float64   `json:"value_before,omitempty"`
	Unit            string     `json:"unit"`
	TimeRef         string     `json:"time_ref"`
	ContextSentence string     `json:"context_sentence"`
	ModelUsed       string     `json:"model_used"`
	Confidence      float64    `json:"confidence"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SignalKey is the deduplication key of a signal.
type SignalKey struct {
	SourceOrigin    string
	SourceURL       string
	ContextSentence string
}

func (s *ProcessedSignal) Key() SignalKey {
	return SignalKey{SourceOrigin: s.SourceOrigin, SourceURL: s.SourceURL, ContextSentence: s.ContextSentence}
}

// Insight summarizes a topic group of signals.
// WindowStart/WindowEnd are the min/max CreatedAt of the contributing
// signals, not the requested aggregation window.
type Insight struct {
	ID             uuid.UUID   `json:"id"`
	Topic          string      `json:"topic"`
	Title          string      `json:"title"`
	Summary        string      `json:"summary"`
	Implication    string      `json:"implication"`
	TargetAudience string      `json:"target_audience"`
	SignalIDs      []uuid.UUID `json:"signal_ids"`
	WindowStart    time.Time   `json:"window_start"`
	WindowEnd      time.Time   `json:"window_end"`
	CreatedAt      time.Time   `json:"created_at"`
}

// EnrichResult reports the funnel of one enrichment run.
type EnrichResult struct {
	Documents  int `json:"documents"`
	Total      int `json:"total"`
	Biased     int `json:"biased"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}
