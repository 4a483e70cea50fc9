package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra/logger"
)

const seedUpdatedBy = "seed"

// RulesSource reads rule files. found is false when a file does not exist.
type RulesSource interface {
	LoadTopics() (topics domain.TopicConfig, found bool, err error)
	LoadBiasRules() (rules []domain.BiasRule, found bool, err error)
	LoadFeeds() (feeds []domain.FeedConfig, found bool, err error)
}

// SeedResult reports which rule files were written to the store.
type SeedResult struct {
	Topics    bool `json:"topics"`
	BiasRules bool `json:"bias_rules"`
	Feeds     bool `json:"feeds"`
}

// RulesUsecase resolves topics, bias rules and feeds. The active stored
// document wins over the rule file; results are cached until ClearCache.
type RulesUsecase interface {
	Topics(ctx context.Context) (domain.TopicConfig, error)
	BiasRules(ctx context.Context) ([]domain.BiasRule, error)
	Feeds(ctx context.Context) ([]domain.FeedConfig, error)
	Seed(ctx context.Context) (*SeedResult, error)
	// AddFeed returns false when no feeds document is stored yet.
	AddFeed(ctx context.Context, feed domain.FeedConfig) (bool, error)
	// RemoveFeed returns true only if a feed with source was removed.
	RemoveFeed(ctx context.Context, source string) (bool, error)
	Stats(ctx context.Context) (*domain.ConfigStats, error)
	ClearCache()
}

type rulesUsecase struct {
	configs domain.ConfigRepository
	tx      domain.TransactionManager
	files   RulesSource
	log     *logger.ContextLogger

	mu    sync.Mutex
	cache map[domain.ConfigType]any
}

func NewRulesUsecase(configs domain.ConfigRepository, tx domain.TransactionManager, files RulesSource, log *slog.Logger) RulesUsecase {
	return &rulesUsecase{
		configs: configs,
		tx:      tx,
		files:   files,
		log:     logger.NewContextLogger(log),
		cache:   make(map[domain.ConfigType]any),
	}
}

func (u *rulesUsecase) Topics(ctx context.Context) (domain.TopicConfig, error) {
	return resolveRules(ctx, u, domain.ConfigTopics, func() (domain.TopicConfig, bool, error) {
		topics, found, err := u.files.LoadTopics()
		if topics == nil {
			topics = domain.TopicConfig{}
		}
		return topics, found, err
	})
}

func (u *rulesUsecase) BiasRules(ctx context.Context) ([]domain.BiasRule, error) {
	return resolveRules(ctx, u, domain.ConfigBiasRules, u.files.LoadBiasRules)
}

func (u *rulesUsecase) Feeds(ctx context.Context) ([]domain.FeedConfig, error) {
	return resolveRules(ctx, u, domain.ConfigFeeds, u.files.LoadFeeds)
}

func resolveRules[T any](ctx context.Context, u *rulesUsecase, configType domain.ConfigType, fromFile func() (T, bool, error)) (T, error) {
	var zero T

	u.mu.Lock()
	cached, ok := u.cache[configType]
	u.mu.Unlock()
	if ok {
		return cached.(T), nil
	}

	// 1. Active stored document
	doc, err := u.configs.GetActive(ctx, configType)
	if err != nil {
		return zero, fmt.Errorf("failed to load %s config: %w", configType, err)
	}

	var value T
	if doc != nil {
		if err := json.Unmarshal(doc.Payload, &value); err != nil {
			return zero, fmt.Errorf("failed to decode %s config: %w", configType, err)
		}
	} else {
		// 2. Rule file
		var found bool
		value, found, err = fromFile()
		if err != nil {
			return zero, err
		}
		if !found {
			u.log.WithContext(ctx).Warn("config file not found, using empty config", "config_type", configType)
		}
	}

	u.mu.Lock()
	u.cache[configType] = value
	u.mu.Unlock()
	return value, nil
}

func (u *rulesUsecase) ClearCache() {
	u.mu.Lock()
	defer u.mu.Unlock()
	clear(u.cache)
}

func (u *rulesUsecase) Seed(ctx context.Context) (*SeedResult, error) {
	topics, _, err := u.files.LoadTopics()
	if err != nil {
		return nil, err
	}
	rules, _, err := u.files.LoadBiasRules()
	if err != nil {
		return nil, err
	}
	feeds, _, err := u.files.LoadFeeds()
	if err != nil {
		return nil, err
	}

	result := &SeedResult{}
	err = u.tx.RunInTx(ctx, func(ctx context.Context) error {
		if len(topics) > 0 {
			if err := u.store(ctx, domain.ConfigTopics, topics, 1, seedUpdatedBy); err != nil {
				return err
			}
			result.Topics = true
		}
		if len(rules) > 0 {
			if err := u.store(ctx, domain.ConfigBiasRules, rules, 1, seedUpdatedBy); err != nil {
				return err
			}
			result.BiasRules = true
		}
		if len(feeds) > 0 {
			if err := u.store(ctx, domain.ConfigFeeds, feeds, 1, seedUpdatedBy); err != nil {
				return err
			}
			result.Feeds = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed config: %w", err)
	}

	u.ClearCache()
	u.log.WithContext(ctx).Info("config seeded",
		"topics", result.Topics,
		"bias_rules", result.BiasRules,
		"feeds", result.Feeds)
	return result, nil
}

func (u *rulesUsecase) AddFeed(ctx context.Context, feed domain.FeedConfig) (bool, error) {
	if feed.Source == "" || feed.URL == "" {
		return false, fmt.Errorf("feed source and url are required")
	}
	if feed.Type == "" {
		feed.Type = "rss"
	}
	if feed.Enabled == nil {
		enabled := true
		feed.Enabled = &enabled
	}

	added := false
	err := u.tx.RunInTx(ctx, func(ctx context.Context) error {
		doc, feeds, err := u.activeFeeds(ctx)
		if err != nil || doc == nil {
			return err
		}
		feeds = append(feeds, feed)
		if err := u.store(ctx, domain.ConfigFeeds, feeds, doc.Version+1, doc.UpdatedBy); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to add feed: %w", err)
	}

	u.ClearCache()
	return added, nil
}

func (u *rulesUsecase) RemoveFeed(ctx context.Context, source string) (bool, error) {
	removed := false
	err := u.tx.RunInTx(ctx, func(ctx context.Context) error {
		doc, feeds, err := u.activeFeeds(ctx)
		if err != nil || doc == nil {
			return err
		}
		kept := make([]domain.FeedConfig, 0, len(feeds))
		for _, f := range feeds {
			if f.Source != source {
				kept = append(kept, f)
			}
		}
		if len(kept) == len(feeds) {
			return nil
		}
		if err := u.store(ctx, domain.ConfigFeeds, kept, doc.Version+1, doc.UpdatedBy); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove feed: %w", err)
	}

	u.ClearCache()
	return removed, nil
}

func (u *rulesUsecase) Stats(ctx context.Context) (*domain.ConfigStats, error) {
	feeds, err := u.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	topics, err := u.Topics(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := u.BiasRules(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.ConfigStats{}
	stats.Feeds.Total = len(feeds)
	for _, f := range feeds {
		if f.IsEnabled() {
			stats.Feeds.Enabled++
		}
	}
	stats.Topics.Total = len(topics)
	for _, phrases := range topics {
		stats.Topics.Phrases += len(phrases)
	}
	stats.BiasRules.Total = len(rules)
	return stats, nil
}

func (u *rulesUsecase) activeFeeds(ctx context.Context) (*domain.ConfigDocument, []domain.FeedConfig, error) {
	doc, err := u.configs.GetActive(ctx, domain.ConfigFeeds)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load feeds config: %w", err)
	}
	if doc == nil {
		return nil, nil, nil
	}
	var feeds []domain.FeedConfig
	if err := json.Unmarshal(doc.Payload, &feeds); err != nil {
		return nil, nil, fmt.Errorf("failed to decode feeds config: %w", err)
	}
	return doc, feeds, nil
}

func (u *rulesUsecase) store(ctx context.Context, configType domain.ConfigType, value any, version int, updatedBy string) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s config: %w", configType, err)
	}
	doc := &domain.ConfigDocument{
		Type:      configType,
		Version:   version,
		Payload:   payload,
		Active:    true,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: updatedBy,
	}
	if err := u.configs.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to store %s config: %w", configType, err)
	}
	return nil
}
