package settings

import (
	"context"
	"testing"
)

func TestMemoryRepositoryGetReturnsDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	got, err := repo.Get(ctx, "org-1", "user-1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got.SearchMode != "all" || len(got.RecentSearches) != 0 {
		t.Fatalf("默认设置不正确: %+v", got)
	}
}

func TestMemoryRepositorySetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	settings := NewSettings()
	settings.SearchMode = "assets"
	settings.Onboarding["studio_tour"] = true
	settings.PushRecentSearch("logo")

	if err := repo.Set(ctx, "org-1", "user-1", settings); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	got, err := repo.Get(ctx, "org-1", "user-1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got.SearchMode != "assets" || !got.Onboarding["studio_tour"] {
		t.Fatalf("读回设置不正确: %+v", got)
	}

	// 不同用户互不可见
	other, err := repo.Get(ctx, "org-1", "user-2")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if other.SearchMode != "all" {
		t.Fatalf("用户隔离失效: %+v", other)
	}

	// 返回的是副本
	got.Onboarding["studio_tour"] = false
	again, _ := repo.Get(ctx, "org-1", "user-1")
	if !again.Onboarding["studio_tour"] {
		t.Fatalf("Get 应返回副本")
	}
}

func TestPushRecentSearch(t *testing.T) {
	s := NewSettings()

	s.PushRecentSearch("")
	if len(s.RecentSearches) != 0 {
		t.Fatalf("空搜索词不应记录")
	}

	s.PushRecentSearch("logo")
	s.PushRecentSearch("banner")
	s.PushRecentSearch("logo")
	if len(s.RecentSearches) != 2 || s.RecentSearches[0] != "logo" || s.RecentSearches[1] != "banner" {
		t.Fatalf("去重置顶不正确: %+v", s.RecentSearches)
	}

	for i := 0; i < 20; i++ {
		s.PushRecentSearch(string(rune('a' + i)))
	}
	if len(s.RecentSearches) != maxRecentSearches {
		t.Fatalf("应截断到 %d 条: %+v", maxRecentSearches, s.RecentSearches)
	}
}
