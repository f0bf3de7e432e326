package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pagelinkhq/authcore/jwt"
)

const (
	// RoleBusiness is granted to BUSINESS-category accounts only.
	RoleBusiness = "business"
	// RoleUser is every other account, guests included.
	RoleUser = "user"
)

// roleForCategory derives the token role from the account category. The role
// is computed at issue time from the current category, never stored, so a
// category change takes effect on the next token.
func roleForCategory(c Category) string {
	if c == CategoryBusiness {
		return RoleBusiness
	}
	return RoleUser
}

// issueTokens mints the access/refresh pair for a user.
func (e *Engine) issueTokens(user *User) (AuthTokens, error) {
	access, err := e.jwtManager.CreateAccess(jwt.Identity{
		Subject:  user.ID,
		Email:    user.Email,
		Category: string(user.Category),
		Role:     roleForCategory(user.Category),
	})
	if err != nil {
		return AuthTokens{}, fmt.Errorf("access token: %v", err)
	}

	refresh, _, err := e.jwtManager.CreateRefresh(user.ID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("refresh token: %v", err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(e.config.JWT.AccessTTL.Seconds()),
	}, nil
}

func (e *Engine) authResult(user *User, tokens AuthTokens) *AuthResult {
	return &AuthResult{
		Tokens:             tokens,
		User:               user,
		RequiresOnboarding: user.RequiresOnboarding(),
	}
}

// Refresh exchanges a valid refresh token for a fresh token pair. Claims are
// rebuilt from the current user row, so category and role changes made since
// the last issue are picked up. With rotation enforcement on, each refresh
// token works exactly once and a replay returns [ErrRefreshReuse].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e.jwtManager == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrRefreshInvalid
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	}

	if e.config.Security.EnforceRefreshRotation && claims.ID != "" {
		ttl := time.Until(claims.ExpiresAt.Time)
		firstUse, err := e.refreshGuard.Use(ctx, claims.ID, ttl)
		if err != nil {
			return nil, err
		}
		if !firstUse {
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.Subject, "", ErrRefreshReuse, nil)
			return nil, ErrRefreshReuse
		}
	}

	user, err := e.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, "", ErrUnauthorized, nil)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if !user.IsActive {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.ID, user.Email, ErrUserDisabled, nil)
		return nil, ErrUserDisabled
	}

	tokens, err := e.issueTokens(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, user.Email, nil, nil)

	return e.authResult(user, tokens), nil
}

// VerifyAccessToken validates an access token and returns its claims.
// Offered so resource servers embedding the engine do not need their own
// parser wiring.
func (e *Engine) VerifyAccessToken(tokenStr string) (*jwt.Claims, error) {
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
