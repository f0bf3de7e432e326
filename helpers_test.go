package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

// mockUserStore is an in-memory UserStore with the same duplicate semantics
// as the real one: unique email and username, reported as ErrDuplicate.
type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]*User
	history map[string]UsernameHistory

	failAll bool
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:   make(map[string]*User),
		history: make(map[string]UsernameHistory),
	}
}

func (s *mockUserStore) put(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *user
	s.users[user.ID] = &clone
}

func (s *mockUserStore) get(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone
	}
	return nil
}

func (s *mockUserStore) GetUserByID(_ context.Context, id string) (*User, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrUserNotFound
}

func (s *mockUserStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *mockUserStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *mockUserStore) CreateUser(_ context.Context, user *User) error {
	if s.failAll {
		return errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicate
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *mockUserStore) UpdateUser(_ context.Context, user *User) error {
	if s.failAll {
		return errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; !exists {
		return ErrUserNotFound
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *mockUserStore) UsernameExists(_ context.Context, username string) (bool, error) {
	if s.failAll {
		return false, errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *mockUserStore) ClaimUsername(_ context.Context, userID, username string) error {
	if s.failAll {
		return errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username && id != userID {
			return ErrDuplicate
		}
	}
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Username = username
	return nil
}

func (s *mockUserStore) ArchiveUsername(_ context.Context, entry UsernameHistory) error {
	if s.failAll {
		return errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.OldUsername] = entry
	return nil
}

func (s *mockUserStore) GetUsernameHistory(_ context.Context, oldUsername string) (*UsernameHistory, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.history[oldUsername]; ok {
		return &entry, nil
	}
	return nil, ErrUsernameNotFound
}

var errStoreDown = &mockError{"store down"}

type mockError struct{ msg string }

func (e *mockError) Error() string { return e.msg }

// mockIdentityProvider keeps email->password in a map and hands out fixed
// subject ids.
type mockIdentityProvider struct {
	mu        sync.Mutex
	passwords map[string]string
	subjects  map[string]string
	nextID    int

	failCreate bool
	failAuth   bool
}

func newMockIdentityProvider() *mockIdentityProvider {
	return &mockIdentityProvider{
		passwords: make(map[string]string),
		subjects:  make(map[string]string),
	}
}

func (p *mockIdentityProvider) CreateAccount(_ context.Context, email, password string) (string, error) {
	if p.failCreate {
		return "", errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.passwords[email]; exists {
		return "", ErrIdentityExists
	}
	p.nextID++
	id := "idp-" + itoa(p.nextID)
	p.passwords[email] = password
	p.subjects[email] = id
	return id, nil
}

func (p *mockIdentityProvider) Authenticate(_ context.Context, email, password string) (string, error) {
	if p.failAuth {
		return "", errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	stored, exists := p.passwords[email]
	if !exists || stored != password {
		return "", ErrInvalidCredentials
	}
	return p.subjects[email], nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// mockMailSender records sent codes; the last one is what tests verify with.
type mockMailSender struct {
	mu    sync.Mutex
	sent  []string
	codes map[string]string

	failSend bool
}

func newMockMailSender() *mockMailSender {
	return &mockMailSender{
		codes: make(map[string]string),
	}
}

func (m *mockMailSender) SendOTP(_ context.Context, email, code string, _ OTPPurpose) error {
	if m.failSend {
		return errStoreDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	m.codes[email] = code
	return nil
}

func (m *mockMailSender) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *mockMailSender) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "test"
	return cfg
}

type testEngineOpts struct {
	config Config
	store  *mockUserStore
	idp    *mockIdentityProvider
	mailer *mockMailSender
	sink   AuditSink
}

func newTestEngine(t *testing.T, rdb *redis.Client, opts testEngineOpts) (*Engine, *mockUserStore, *mockIdentityProvider, *mockMailSender) {
	t.Helper()

	if opts.store == nil {
		opts.store = newMockUserStore()
	}
	if opts.idp == nil {
		opts.idp = newMockIdentityProvider()
	}
	if opts.mailer == nil {
		opts.mailer = newMockMailSender()
	}
	if opts.config.OTP.Digits == 0 {
		opts.config = testConfig()
	}

	builder := New().
		WithConfig(opts.config).
		WithRedis(rdb).
		WithUserStore(opts.store).
		WithIdentityProvider(opts.idp).
		WithMailSender(opts.mailer)
	if opts.sink != nil {
		builder = builder.WithAuditSink(opts.sink)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, opts.store, opts.idp, opts.mailer
}

func requestAndFetchCode(t *testing.T, engine *Engine, mailer *mockMailSender, input OTPRequestInput) string {
	t.Helper()

	out, err := engine.RequestOTP(context.Background(), input)
	if err != nil {
		t.Fatalf("RequestOTP failed: %v", err)
	}
	if !out.Sent {
		t.Fatalf("expected code to be sent, got cooldown %d", out.CooldownSeconds)
	}

	code := mailer.lastCode(normalizeEmail(input.Email))
	if code == "" {
		t.Fatal("no code captured by mailer")
	}
	return code
}

func advanceCooldown(t *testing.T, mr *miniredis.Miniredis, d time.Duration) {
	t.Helper()
	mr.FastForward(d)
}
