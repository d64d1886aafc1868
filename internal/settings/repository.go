package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"backend/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// 最近搜索保留条数
const maxRecentSearches = 10

// Settings 用户级界面设置，按 (组织, 用户) 存取
type Settings struct {
	RecentSearches []string        `json:"recent_searches"`
	SearchMode     string          `json:"search_mode"`
	Onboarding     map[string]bool `json:"onboarding"`
}

// NewSettings 默认设置
func NewSettings() *Settings {
	return &Settings{
		RecentSearches: []string{},
		SearchMode:     "all",
		Onboarding:     map[string]bool{},
	}
}

// PushRecentSearch 记录一次搜索：去重、置顶、截断
func (s *Settings) PushRecentSearch(term string) {
	if term == "" {
		return
	}
	result := []string{term}
	for _, existing := range s.RecentSearches {
		if existing != term {
			result = append(result, existing)
		}
	}
	if len(result) > maxRecentSearches {
		result = result[:maxRecentSearches]
	}
	s.RecentSearches = result
}

// Repository 设置仓库接口
type Repository interface {
	Get(ctx context.Context, tenantID, userID string) (*Settings, error)
	Set(ctx context.Context, tenantID, userID string, settings *Settings) error
}

func settingsKey(tenantID, userID string) string {
	return fmt.Sprintf("settings:%s:%s", tenantID, userID)
}

// RedisRepository Redis 实现
type RedisRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRepository 创建 Redis 设置仓库，ttl 为 0 表示不过期
func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Get 读取设置，不存在时返回默认值
func (r *RedisRepository) Get(ctx context.Context, tenantID, userID string) (*Settings, error) {
	start := time.Now()
	raw, err := r.client.Get(ctx, settingsKey(tenantID, userID)).Result()
	metrics.CacheOperationDuration.WithLabelValues("settings", "get").Observe(time.Since(start).Seconds())
	if err == redis.Nil {
		metrics.CacheMissesTotal.WithLabelValues("settings").Inc()
		return NewSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取设置失败: %w", err)
	}
	metrics.CacheHitsTotal.WithLabelValues("settings").Inc()

	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("解析设置失败: %w", err)
	}
	return &settings, nil
}

// Set 写入设置
func (r *RedisRepository) Set(ctx context.Context, tenantID, userID string, settings *Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("序列化设置失败: %w", err)
	}
	start := time.Now()
	err = r.client.Set(ctx, settingsKey(tenantID, userID), raw, r.ttl).Err()
	metrics.CacheOperationDuration.WithLabelValues("settings", "set").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("写入设置失败: %w", err)
	}
	return nil
}

// MemoryRepository 内存实现，Redis 不可用时的退路
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]*Settings
}

// NewMemoryRepository 创建内存设置仓库
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]*Settings)}
}

// Get 读取设置，不存在时返回默认值
func (r *MemoryRepository) Get(_ context.Context, tenantID, userID string) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings, ok := r.data[settingsKey(tenantID, userID)]
	if !ok {
		return NewSettings(), nil
	}
	// 返回副本，避免调用方改动共享状态
	clone := *settings
	clone.RecentSearches = append([]string{}, settings.RecentSearches...)
	clone.Onboarding = make(map[string]bool, len(settings.Onboarding))
	for k, v := range settings.Onboarding {
		clone.Onboarding[k] = v
	}
	return &clone, nil
}

// Set 写入设置
func (r *MemoryRepository) Set(_ context.Context, tenantID, userID string, settings *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *settings
	r.data[settingsKey(tenantID, userID)] = &clone
	return nil
}
