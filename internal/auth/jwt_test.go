package auth

import (
	"context"
	"testing"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key", "asset-studio-test", nil)
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair("user-1", "org-1", []string{"admin"})
	if err != nil {
		t.Fatalf("生成令牌对失败: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("令牌对不完整: %+v", pair)
	}
	if pair.TokenType != "Bearer" {
		t.Fatalf("令牌类型应为 Bearer: %s", pair.TokenType)
	}

	claims, err := svc.ValidateToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("验证访问令牌失败: %v", err)
	}
	if claims.UserID != "user-1" || claims.TenantID != "org-1" {
		t.Fatalf("声明不正确: %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Fatalf("访问令牌类型不正确: %s", claims.TokenType)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Fatalf("角色不正确: %+v", claims.Roles)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := newTestJWTService()
	other := NewJWTService("another-secret", "asset-studio-test", nil)
	ctx := context.Background()

	pair, err := other.GenerateTokenPair("user-1", "org-1", nil)
	if err != nil {
		t.Fatalf("生成令牌对失败: %v", err)
	}

	if _, err := svc.ValidateToken(ctx, pair.AccessToken); err == nil {
		t.Fatalf("不同密钥签发的令牌应验证失败")
	}
	if _, err := svc.ValidateToken(ctx, "not-a-token"); err == nil {
		t.Fatalf("非法令牌应验证失败")
	}
}

func TestRefreshAccessToken(t *testing.T) {
	svc := newTestJWTService()
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair("user-1", "org-1", []string{"member"})
	if err != nil {
		t.Fatalf("生成令牌对失败: %v", err)
	}

	// 用访问令牌刷新应失败
	if _, err := svc.RefreshAccessToken(ctx, pair.AccessToken); err == nil {
		t.Fatalf("访问令牌不应能用于刷新")
	}

	refreshed, err := svc.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("刷新令牌失败: %v", err)
	}
	claims, err := svc.ValidateToken(ctx, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("验证新访问令牌失败: %v", err)
	}
	if claims.UserID != "user-1" || claims.TenantID != "org-1" {
		t.Fatalf("刷新后的声明不正确: %+v", claims)
	}
}

func TestExtractTokenFromBearer(t *testing.T) {
	if got := ExtractTokenFromBearer("Bearer abc123"); got != "abc123" {
		t.Fatalf("提取失败: %s", got)
	}
	if got := ExtractTokenFromBearer("abc123"); got != "abc123" {
		t.Fatalf("无前缀应原样返回: %s", got)
	}
}
