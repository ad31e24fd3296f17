package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"shift-handover/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("100001", "admin", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.EmployeeCode != "100001" {
		t.Errorf("期望 EmployeeCode=100001，实际=%s", claims.EmployeeCode)
	}
	if claims.Role != "admin" {
		t.Errorf("期望 Role=admin，实际=%s", claims.Role)
	}
	if claims.Issuer != "shift-handover" {
		t.Errorf("期望 Issuer=shift-handover，实际=%s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}
	if ttl := claims.RemainingTTL(); ttl <= 14*time.Minute || ttl > 15*time.Minute {
		t.Errorf("剩余有效期异常: %v", ttl)
	}
}

func TestGenerateAccessToken_CustomTTL(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("100001", "admin", 2*time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	if claims.RemainingTTL() <= time.Hour {
		t.Errorf("期望自定义有效期生效，实际剩余=%v", claims.RemainingTTL())
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -time.Minute,
	})

	token, err := m.GenerateAccessToken("100001", "admin", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	_, err = m.ParseToken(token)
	if err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际=%v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	token, _ := m.GenerateAccessToken("100001", "admin", 0)

	other := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-for-testing-26",
		AccessTokenTTL: 15 * time.Minute,
	})
	if _, err := other.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	m := newTestManager()
	claims := Claims{
		EmployeeCode: "100001",
		Role:         "admin",
		RegisteredClaims: jwtv5.RegisteredClaims{
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Minute)),
			Issuer:    "someone-else",
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}
	if _, err := m.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	m := newTestManager()
	if _, err := m.ParseToken("not-a-jwt"); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}
