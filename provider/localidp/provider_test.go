package localidp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	authcore "github.com/pagelinkhq/authcore"
)

func TestCreateAndAuthenticate(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	id, err := p.CreateAccount(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := p.Authenticate(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)
	require.Equal(t, id, got)

	// Email comparison is case-insensitive.
	got, err = p.Authenticate(ctx, "ALICE@Example.com", "correct-horse-battery")
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestCreateDuplicate(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.CreateAccount(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)

	_, err = p.CreateAccount(ctx, "Alice@example.com", "another-password")
	require.ErrorIs(t, err, authcore.ErrIdentityExists)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.CreateAccount(ctx, "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)

	_, err = p.Authenticate(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, authcore.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), "nobody@example.com", "whatever-pass")
	require.ErrorIs(t, err, authcore.ErrInvalidCredentials)
}
