package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"quietly-stated/internal/domain"
)

const (
	TopicsFile    = "topics.json"
	BiasRulesFile = "bias_rules.json"
	FeedsFile     = "feeds.json"
)

// RulesFiles reads the JSON rule files from a directory.
// A missing file yields an empty value; a malformed file is an error.
type RulesFiles struct {
	dir string
}

func NewRulesFiles(dir string) *RulesFiles {
	return &RulesFiles{dir: dir}
}

// Dir returns the directory the files are read from.
func (r *RulesFiles) Dir() string { return r.dir }

// LoadTopics reads topics.json: {"topic": ["phrase", ...]}.
func (r *RulesFiles) LoadTopics() (domain.TopicConfig, bool, error) {
	var topics domain.TopicConfig
	found, err := r.read(TopicsFile, &topics)
	if err != nil || !found {
		return domain.TopicConfig{}, found, err
	}
	if topics == nil {
		topics = domain.TopicConfig{}
	}
	return topics, true, nil
}

// LoadBiasRules reads bias_rules.json: {"rules": [...]}.
func (r *RulesFiles) LoadBiasRules() ([]domain.BiasRule, bool, error) {
	var file struct {
		Rules []domain.BiasRule `json:"rules"`
	}
	found, err := r.read(BiasRulesFile, &file)
	if err != nil || !found {
		return nil, found, err
	}
	return file.Rules, true, nil
}

// LoadFeeds reads feeds.json: {"feeds": [...]}.
func (r *RulesFiles) LoadFeeds() ([]domain.FeedConfig, bool, error) {
	var file struct {
		Feeds []domain.FeedConfig `json:"feeds"`
	}
	found, err := r.read(FeedsFile, &file)
	if err != nil || !found {
		return nil, found, err
	}
	return file.Feeds, true, nil
}

func (r *RulesFiles) read(name string, dst any) (bool, error) {
	path := filepath.Join(r.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}
