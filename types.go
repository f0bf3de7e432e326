package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/pagelinkhq/authcore/internal/audit"
)

// Category is the account category chosen during onboarding.
type Category string

const (
	// CategoryNone marks an account that has not chosen a category yet.
	CategoryNone Category = ""
	// CategoryCreator is the creator/landing-page account category.
	CategoryCreator Category = "CREATOR"
	// CategoryBusiness is the business account category.
	CategoryBusiness Category = "BUSINESS"
)

// OTPPurpose scopes a one-time code to the flow that requested it.
type OTPPurpose string

const (
	// PurposeSignup is the account-creation OTP flow.
	PurposeSignup OTPPurpose = "signup"
	// PurposeLogin is the passwordless login OTP flow.
	PurposeLogin OTPPurpose = "login"
	// PurposeGuestWiFi is the captive-portal guest access OTP flow.
	PurposeGuestWiFi OTPPurpose = "guest_wifi"
)

func validPurpose(p OTPPurpose) bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposeGuestWiFi:
		return true
	}
	return false
}

// OnboardingComplete is the final onboarding step value.
const OnboardingComplete = 4

// User is the local account snapshot. User.ID equals the external identity
// provider's subject id for password-owning accounts; guest accounts carry a
// locally generated id.
type User struct {
	ID             string
	Email          string
	Username       string
	EmailVerified  bool
	OnboardingStep int
	Category       Category
	IsActive       bool
	LastLoginAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RequiresOnboarding reports whether the user has not finished onboarding.
func (u *User) RequiresOnboarding() bool {
	return u.OnboardingStep < OnboardingComplete
}

// UsernameHistory records a previously held username so legacy links keep
// resolving during its validity window. Rows are superseded, never updated.
type UsernameHistory struct {
	OldUsername string
	UserID      string
	ExpiresAt   time.Time
}

// UserStore is the durable-store interface callers must implement. Unique
// constraints on email, username, and old_username are the actual exclusivity
// enforcers; implementations report violations as [ErrDuplicate].
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	// ClaimUsername sets the user's username relying on the store's unique
	// constraint for exclusivity.
	ClaimUsername(ctx context.Context, userID, username string) error
	ArchiveUsername(ctx context.Context, entry UsernameHistory) error
	GetUsernameHistory(ctx context.Context, oldUsername string) (*UsernameHistory, error)
}

// IdentityProvider owns password credentials out of process. The engine keeps
// local User.ID equal to the subject id returned here.
type IdentityProvider interface {
	// CreateAccount returns the new subject id, or [ErrIdentityExists].
	CreateAccount(ctx context.Context, email, password string) (string, error)
	// Authenticate returns the subject id, or [ErrInvalidCredentials].
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// MailSender delivers one-time codes. Send failures propagate to RequestOTP
// callers but never invalidate the stored code.
type MailSender interface {
	SendOTP(ctx context.Context, email, code string, purpose OTPPurpose) error
}

// OTPRequestInput is the input for [Engine.RequestOTP]. Password is required
// for [PurposeSignup] only; it is held in the pending-signup cache until the
// provider account exists and is never stored durably.
type OTPRequestInput struct {
	Purpose  OTPPurpose
	Email    string
	Password string
}

// OTPRequest is returned by [Engine.RequestOTP]. When a prior code is still
// inside its resend cooldown, Sent is false and CooldownSeconds carries the
// remaining wait.
type OTPRequest struct {
	Sent            bool
	CooldownSeconds int
}

// AuthTokens is a freshly minted access/refresh token pair.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// AuthResult is returned by the signup, login, guest, and refresh flows.
type AuthResult struct {
	Tokens             AuthTokens
	User               *User
	RequiresOnboarding bool
}

// UsernameCheck is returned by [Engine.CheckUsername].
type UsernameCheck struct {
	IsValid     bool
	IsAvailable bool
	Errors      []string
	Suggestions []string
}

// AuditEvent is a structured audit/compliance record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events, one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
