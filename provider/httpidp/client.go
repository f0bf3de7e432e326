// Package httpidp implements the engine's IdentityProvider against a remote
// HTTP identity service. Provider outcomes are translated to the engine's
// sentinel errors at this boundary; response bodies are never surfaced to
// callers.
package httpidp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	authcore "github.com/pagelinkhq/authcore"
)

// Config holds the identity service connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the identity service. Safe for concurrent use.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

type accountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID string `json:"id"`
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("httpidp: base URL required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{
		http:   client,
		logger: logger,
	}, nil
}

// CreateAccount registers the credentials and returns the provider's subject
// id. A 409 means the email already has an identity.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (string, error) {
	var out accountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(accountRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/v1/accounts")
	if err != nil {
		c.logger.Warn("identity create request failed", zap.Error(err))
		return "", fmt.Errorf("identity create: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusCreated, http.StatusOK:
		if out.ID == "" {
			return "", errors.New("identity create: empty subject id")
		}
		return out.ID, nil
	case http.StatusConflict:
		return "", authcore.ErrIdentityExists
	default:
		c.logger.Warn("identity create unexpected status",
			zap.Int("status", resp.StatusCode()))
		return "", fmt.Errorf("identity create: status %d", resp.StatusCode())
	}
}

// Authenticate checks the credentials and returns the subject id. A 401
// maps to [authcore.ErrInvalidCredentials].
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	var out accountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(accountRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/v1/authenticate")
	if err != nil {
		c.logger.Warn("identity authenticate request failed", zap.Error(err))
		return "", fmt.Errorf("identity authenticate: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		if out.ID == "" {
			return "", errors.New("identity authenticate: empty subject id")
		}
		return out.ID, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", authcore.ErrInvalidCredentials
	default:
		c.logger.Warn("identity authenticate unexpected status",
			zap.Int("status", resp.StatusCode()))
		return "", fmt.Errorf("identity authenticate: status %d", resp.StatusCode())
	}
}
