package password

import (
	"strings"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	hash, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected encoding: %q", hash)
	}

	ok, err := hasher.Verify("correct-horse-battery", hash)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}

	ok, err = hasher.Verify("wrong-password-here", hash)
	if err != nil {
		t.Fatalf("Verify(wrong): %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	a, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	hasher, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	if _, err := hasher.Hash("short"); err == nil {
		t.Fatal("expected an error for a 5-byte password")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	cases := []string{
		"",
		"not-a-phc-string",
		"$argon2i$v=19$m=65536,t=2,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=2,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=2$!!$aGFzaA",
	}
	for _, hash := range cases {
		if _, err := hasher.Verify("whatever-pass", hash); err == nil {
			t.Fatalf("hash %q: expected a parse error", hash)
		}
	}
}

func TestVerifyTamperedHashFails(t *testing.T) {
	hasher, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	// Flip a character inside the encoded key.
	tampered := []byte(hash)
	last := len(tampered) - 2
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	ok, err := hasher.Verify("correct-horse-battery", string(tampered))
	if err == nil && ok {
		t.Fatal("tampered hash verified")
	}
}

func TestNewHasherValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"low memory", func(c *Config) { c.Memory = 1024 }},
		{"zero time", func(c *Config) { c.Time = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"short salt", func(c *Config) { c.SaltLength = 8 }},
		{"short key", func(c *Config) { c.KeyLength = 8 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
}
