package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.CreateAccess(Identity{
		Subject:  "user-1",
		Email:    "alice@example.com",
		Category: "BUSINESS",
		Role:     "business",
	})
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Category != "BUSINESS" || claims.Role != "business" {
		t.Fatalf("category/role lost: %+v", claims)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("typ = %q", claims.TokenType)
	}
	if claims.Issuer != "test" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, jti, err := m.CreateRefresh("user-1")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}
	if jti == "" {
		t.Fatal("expected a jti")
	}

	claims, err := m.ParseRefresh(token)
	if err != nil {
		t.Fatalf("ParseRefresh: %v", err)
	}
	if claims.ID != jti {
		t.Fatalf("jti %q != %q", claims.ID, jti)
	}
	if claims.TokenType != TypeRefresh {
		t.Fatalf("typ = %q", claims.TokenType)
	}

	// Every refresh token gets its own jti.
	_, jti2, err := m.CreateRefresh("user-1")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}
	if jti2 == jti {
		t.Fatal("jti reused across tokens")
	}
}

func TestTokenTypeCrossCheck(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	access, err := m.CreateAccess(Identity{Subject: "user-1"})
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	refresh, _, err := m.CreateRefresh("user-1")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}

	if _, err := m.ParseRefresh(access); err == nil {
		t.Fatal("access token must not parse as refresh")
	}
	if _, err := m.ParseAccess(refresh); err == nil {
		t.Fatal("refresh token must not parse as access")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := hs256Config()
	cfg.AccessTTL = time.Millisecond
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.CreateAccess(Identity{Subject: "user-1"})
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expired token parsed")
	}
}

func TestWrongKeyRejected(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := m.CreateAccess(Identity{Subject: "user-1"})
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	other := hs256Config()
	other.PrivateKey = []byte("ffffffffffffffffffffffffffffffff")
	m2, err := NewManager(other)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m2.ParseAccess(token); err == nil {
		t.Fatal("token verified under a different key")
	}
}

func TestWrongIssuerRejected(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := m.CreateAccess(Identity{Subject: "user-1"})
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	other := hs256Config()
	other.Issuer = "someone-else"
	m2, err := NewManager(other)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m2.ParseAccess(token); err == nil {
		t.Fatal("token accepted under a different issuer")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "test",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.CreateAccess(Identity{Subject: "user-1", Role: "user"})
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"excessive leeway", func(c *Config) { c.Leeway = 3 * time.Minute }},
		{"missing key", func(c *Config) { c.PrivateKey = nil }},
		{"unknown method", func(c *Config) { c.SigningMethod = "rs256" }},
		{"bad ed25519 keys", func(c *Config) {
			c.SigningMethod = MethodEd25519
			c.PrivateKey = []byte("short")
			c.PublicKey = []byte("short")
		}},
	}

	for _, tc := range cases {
		cfg := hs256Config()
		tc.mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
}
