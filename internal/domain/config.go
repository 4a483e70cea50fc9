package domain

import (
	"encoding/json"
	"time"
)

// TopicConfig maps a topic name to the phrases that indicate it.
type TopicConfig map[string][]string

// BiasRule excludes topics and keywords for a single source.
type BiasRule struct {
	Source          string   `json:"source"`
	Reason          string   `json:"reason"`
	ExcludeTopics   []string `json:"exclude_topics"`
	ExcludeKeywords []string `json:"exclude_keywords"`
}

// FeedConfig describes one feed the ingestion job reads.
type FeedConfig struct {
	Source  string `json:"source"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	Keyword string `json:"keyword,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// IsEnabled treats an absent enabled flag as true.
func (f FeedConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// ConfigType names a stored configuration document.
type ConfigType string

const (
	ConfigTopics    ConfigType = "topics"
	ConfigBiasRules ConfigType = "bias_rules"
	ConfigFeeds     ConfigType = "feeds"
)

// ConfigDocument is the active stored version of one configuration type.
type ConfigDocument struct {
	Type      ConfigType
	Version   int
	Payload   json.RawMessage
	Active    bool
	UpdatedAt time.Time
	UpdatedBy string
}

// ConfigStats summarizes the effective configuration.
type ConfigStats struct {
	Feeds struct {
		Total   int `json:"total"`
		Enabled int `json:"enabled"`
	} `json:"feeds"`
	Topics struct {
		Total   int `json:"total"`
		Phrases int `json:"phrases"`
	} `json:"topics"`
	BiasRules struct {
		Total int `json:"total"`
	} `json:"bias_rules"`
}
