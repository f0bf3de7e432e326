package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagelinkhq/authcore/internal"
)

// CheckUsername validates a candidate and reports availability. Validation
// failures are collected rather than short-circuited so the whole rule set
// surfaces in one call. Taken names come back with suggestions.
func (e *Engine) CheckUsername(ctx context.Context, name string) (*UsernameCheck, error) {
	if e.users == nil {
		return nil, ErrEngineNotReady
	}

	name = strings.ToLower(strings.TrimSpace(name))

	if problems := e.validateUsername(name); len(problems) > 0 {
		return &UsernameCheck{
			IsValid: false,
			Errors:  problems,
		}, nil
	}

	taken, err := e.usernameTaken(ctx, name)
	if err != nil {
		return nil, err
	}
	if !taken {
		return &UsernameCheck{
			IsValid:     true,
			IsAvailable: true,
		}, nil
	}

	suggestions, err := e.SuggestUsernames(ctx, name)
	if err != nil {
		// Suggestions are garnish; the availability verdict still stands.
		suggestions = nil
	}

	return &UsernameCheck{
		IsValid:     true,
		IsAvailable: false,
		Suggestions: suggestions,
	}, nil
}

// usernameTaken consults the cache first. Only a positive hit is trusted; on
// a miss the durable store decides and a taken verdict is written back. A
// name inside its redirect window counts as taken: the redirect belongs to
// the account that abandoned it until the window runs out.
func (e *Engine) usernameTaken(ctx context.Context, name string) (bool, error) {
	if e.nameCache.IsTaken(ctx, name) {
		e.metricInc(MetricUsernameCacheHit)
		return true, nil
	}
	e.metricInc(MetricUsernameCacheMiss)

	exists, err := e.users.UsernameExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if exists {
		e.nameCache.MarkTaken(ctx, name)
		return true, nil
	}

	entry, err := e.users.GetUsernameHistory(ctx, name)
	if err != nil {
		if errors.Is(err, ErrUsernameNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if time.Now().After(entry.ExpiresAt) {
		return false, nil
	}
	e.nameCache.MarkTaken(ctx, name)
	return true, nil
}

// ClaimUsername assigns a validated name to the user. Exclusivity comes from
// the store's unique constraint, not from any pre-check: two racing claims
// resolve to one winner and one [ErrUsernameTaken]. The loser's availability
// pre-check having passed moments earlier is expected.
func (e *Engine) ClaimUsername(ctx context.Context, userID, name string) error {
	if e.users == nil {
		return ErrEngineNotReady
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if problems := e.validateUsername(name); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrUsernameInvalid, strings.Join(problems, "; "))
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if user.Username == name {
		return nil
	}

	// The store's unique index guards current names only. A name still inside
	// its redirect window is off limits too, except to the account the
	// redirect already points at, which may take its old handle back.
	entry, histErr := e.users.GetUsernameHistory(ctx, name)
	if histErr == nil && entry.UserID != userID && time.Now().Before(entry.ExpiresAt) {
		e.nameCache.MarkTaken(ctx, name)
		e.metricInc(MetricUsernameConflict)
		e.emitAudit(ctx, auditEventUsernameConflict, false, userID, user.Email, ErrUsernameTaken, func() map[string]string {
			return map[string]string{
				"username": name,
			}
		})
		return ErrUsernameTaken
	}
	if histErr != nil && !errors.Is(histErr, ErrUsernameNotFound) {
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, histErr)
	}

	if err := e.users.ClaimUsername(ctx, userID, name); err != nil {
		if errors.Is(err, ErrDuplicate) {
			e.nameCache.MarkTaken(ctx, name)
			e.metricInc(MetricUsernameConflict)
			e.emitAudit(ctx, auditEventUsernameConflict, false, userID, user.Email, ErrUsernameTaken, func() map[string]string {
				return map[string]string{
					"username": name,
				}
			})
			return ErrUsernameTaken
		}
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	// The old handle keeps redirecting to this account for the history
	// window. Archiving after the claim means a failed claim leaves no
	// stray redirect.
	if user.Username != "" {
		entry := UsernameHistory{
			OldUsername: user.Username,
			UserID:      userID,
			ExpiresAt:   time.Now().Add(e.config.Username.HistoryTTL),
		}
		if err := e.users.ArchiveUsername(ctx, entry); err != nil {
			return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
		e.nameCache.Invalidate(ctx, user.Username)
	}
	e.nameCache.MarkTaken(ctx, name)

	e.metricInc(MetricUsernameClaimed)
	e.emitAudit(ctx, auditEventUsernameClaimed, true, userID, user.Email, nil, func() map[string]string {
		m := map[string]string{
			"username": name,
		}
		if user.Username != "" {
			m["previous"] = user.Username
		}
		return m
	})

	return nil
}

// ResolveUsername maps a handle to its current owner. Current names resolve
// directly; names inside their history window redirect to the account that
// abandoned them. Expired history entries do not resolve.
func (e *Engine) ResolveUsername(ctx context.Context, name string) (*User, error) {
	if e.users == nil {
		return nil, ErrEngineNotReady
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrUsernameNotFound
	}

	user, err := e.users.GetUserByUsername(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	entry, err := e.users.GetUsernameHistory(ctx, name)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUsernameNotFound) {
			return nil, ErrUsernameNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, ErrUsernameNotFound
	}

	user, err = e.users.GetUserByID(ctx, entry.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUsernameNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	return user, nil
}

// SuggestUsernames proposes available variants of a base name. The fixed
// suffix list runs first, then random two-digit variants up to the retry
// cap, then a deterministic hash fragment so the result is never empty for
// want of luck.
func (e *Engine) SuggestUsernames(ctx context.Context, base string) ([]string, error) {
	if e.users == nil {
		return nil, ErrEngineNotReady
	}

	base = sanitizeAlnum(base)
	if base == "" {
		base = "user"
	}

	want := e.config.Username.SuggestionCount
	suggestions := make([]string, 0, want)
	seen := make(map[string]struct{})

	consider := func(candidate string) (bool, error) {
		if len(candidate) < e.config.Username.MinLength {
			return false, nil
		}
		if _, dup := seen[candidate]; dup {
			return false, nil
		}
		seen[candidate] = struct{}{}
		if _, reserved := e.reserved[candidate]; reserved {
			return false, nil
		}

		taken, err := e.usernameTaken(ctx, candidate)
		if err != nil {
			return false, err
		}
		if taken {
			return false, nil
		}
		suggestions = append(suggestions, candidate)
		return len(suggestions) >= want, nil
	}

	for _, suffix := range e.suffixes {
		stem := trimToLength(base, e.config.Username.MaxLength-len(suffix))
		done, err := consider(stem + suffix)
		if err != nil {
			return nil, err
		}
		if done {
			return suggestions, nil
		}
	}

	for i := 0; i < e.config.Username.MaxSuggestionRetries; i++ {
		suffix, err := internal.TwoDigitSuffix()
		if err != nil {
			return nil, fmt.Errorf("suggestion generation: %v", err)
		}
		stem := trimToLength(base, e.config.Username.MaxLength-len(suffix))
		done, err := consider(stem + suffix)
		if err != nil {
			return nil, err
		}
		if done {
			return suggestions, nil
		}
	}

	if len(suggestions) < want {
		suffix := hashFragment(base)
		stem := trimToLength(base, e.config.Username.MaxLength-len(suffix))
		if _, err := consider(stem + suffix); err != nil {
			return nil, err
		}
	}

	return suggestions, nil
}
