package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestRefreshReissuesTokens(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, _, _, mailer := newTestEngine(t, rdb, testEngineOpts{})

	ctx := context.Background()
	seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	result, err := engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("expected a fresh token pair")
	}
	if result.User.ID != login.User.ID {
		t.Fatalf("refresh switched users: %s vs %s", result.User.ID, login.User.ID)
	}

	claims, err := engine.VerifyAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("new access token should verify: %v", err)
	}
	if claims.Subject != login.User.ID {
		t.Fatalf("claims subject %q", claims.Subject)
	}
}

func TestRefreshPicksUpCategoryChange(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, store, _, mailer := newTestEngine(t, rdb, testEngineOpts{})

	ctx := context.Background()
	seeded := seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	before, err := engine.VerifyAccessToken(login.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if before.Role != RoleUser {
		t.Fatalf("fresh account should carry role %q, got %q", RoleUser, before.Role)
	}

	// Onboarding upgrades the account to BUSINESS; the next refresh must
	// reflect it.
	user := store.get(seeded.ID)
	user.Category = CategoryBusiness
	store.put(user)

	result, err := engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	after, err := engine.VerifyAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if after.Role != RoleBusiness {
		t.Fatalf("expected role %q after category change, got %q", RoleBusiness, after.Role)
	}
	if after.Category != string(CategoryBusiness) {
		t.Fatalf("expected category claim %q, got %q", CategoryBusiness, after.Category)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, _, _, _ := newTestEngine(t, rdb, testEngineOpts{})

	for _, token := range []string{"", "not-a-jwt", "aa.bb.cc"} {
		if _, err := engine.Refresh(context.Background(), token); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("token %q: expected ErrRefreshInvalid, got %v", token, err)
		}
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, _, _, mailer := newTestEngine(t, rdb, testEngineOpts{})

	ctx := context.Background()
	seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// An access token is well signed but has the wrong typ claim.
	if _, err := engine.Refresh(ctx, login.Tokens.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for access token, got %v", err)
	}
}

func TestRefreshMissingUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, store, _, mailer := newTestEngine(t, rdb, testEngineOpts{})

	ctx := context.Background()
	seeded := seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	store.mu.Lock()
	delete(store.users, seeded.ID)
	store.mu.Unlock()

	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshDisabledUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, store, _, mailer := newTestEngine(t, rdb, testEngineOpts{})

	ctx := context.Background()
	seeded := seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user := store.get(seeded.ID)
	user.IsActive = false
	store.put(user)

	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestRefreshRotationDetectsReuse(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnforceRefreshRotation = true
	engine, _, _, mailer := newTestEngine(t, rdb, testEngineOpts{config: cfg})

	ctx := context.Background()
	seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	first, err := engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse on replay, got %v", err)
	}

	// The rotated-in token is still good for one use.
	if _, err := engine.Refresh(ctx, first.Tokens.RefreshToken); err != nil {
		t.Fatalf("rotated token should work once: %v", err)
	}
}

func TestRefreshWithoutRotationAllowsReuse(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, _, _, mailer := newTestEngine(t, rdb, testEngineOpts{})

	ctx := context.Background()
	seedAccount(t, engine, mailer, "alice@example.com", "correct-horse-battery")
	login, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); err != nil {
			t.Fatalf("refresh %d without rotation: %v", i+1, err)
		}
	}
}
