package authcore

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix     = "aotp"
	pendingKeyPrefix = "apnd"
	otpRecordV1      = 1
	pendingRecordV1  = 1
)

var (
	errOTPNotFound         = errors.New("otp entry not found")
	errOTPMismatch         = errors.New("otp code mismatch")
	errOTPRedisUnavailable = errors.New("otp redis unavailable")
	errPendingNotFound     = errors.New("pending signup not found")
)

// otpRecord is the cached form of a live code. Only the SHA-256 of the code
// is stored; ExpiresAt doubles as the cooldown anchor (creation time is
// ExpiresAt minus the fixed TTL).
type otpRecord struct {
	CodeHash  [32]byte
	ExpiresAt int64
}

type otpStore struct {
	redis  *redis.Client
	prefix string
}

func newOTPStore(client *redis.Client) *otpStore {
	return &otpStore{
		redis:  client,
		prefix: otpKeyPrefix,
	}
}

func (s *otpStore) key(purpose OTPPurpose, email, venue string) string {
	k := s.prefix + ":" + string(purpose) + ":" + email
	if venue != "" {
		k += ":" + venue
	}
	return k
}

func (s *otpStore) Save(ctx context.Context, purpose OTPPurpose, email, venue string, record *otpRecord, ttl time.Duration) error {
	encoded := encodeOTPRecord(record)
	if err := s.redis.Set(ctx, s.key(purpose, email, venue), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	return nil
}

// Get peeks at a live entry without consuming it. Used only for the resend
// cooldown check.
func (s *otpStore) Get(ctx context.Context, purpose OTPPurpose, email, venue string) (*otpRecord, error) {
	data, err := s.redis.Get(ctx, s.key(purpose, email, venue)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errOTPNotFound
		}
		return nil, fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	record, err := decodeOTPRecord(data)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Consume performs the atomic read-compare-delete. On a hash match the entry
// is deleted inside a WATCH transaction before success is reported, so
// concurrent verifications for one key admit exactly one winner. A mismatch
// leaves the entry untouched; absent and expired entries fail identically to
// a mismatch at the caller's error boundary.
func (s *otpStore) Consume(ctx context.Context, purpose OTPPurpose, email, venue string, providedHash [32]byte) error {
	const maxRetries = 4
	key := s.key(purpose, email, venue)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeOTPRecord(data)
			if err != nil {
				return err
			}

			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errOTPNotFound
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
				// Entry stays put so the caller may retry within the
				// code's lifetime.
				return errOTPMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return errOTPNotFound
			case errors.Is(err, errOTPNotFound), errors.Is(err, errOTPMismatch):
				return err
			default:
				return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
			}
		}
		return nil
	}

	return errOTPNotFound
}

func (s *otpStore) Delete(ctx context.Context, purpose OTPPurpose, email, venue string) error {
	if err := s.redis.Del(ctx, s.key(purpose, email, venue)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	return nil
}

func encodeOTPRecord(record *otpRecord) []byte {
	var buf bytes.Buffer
	buf.WriteByte(otpRecordV1)
	_ = binary.Write(&buf, binary.BigEndian, record.ExpiresAt)
	buf.Write(record.CodeHash[:])
	return buf.Bytes()
}

func decodeOTPRecord(data []byte) (*otpRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != otpRecordV1 {
		return nil, errors.New("invalid otp record version")
	}

	record := &otpRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}
	return record, nil
}

// pendingSignupRecord carries the signup password between initiate and
// verify. Cache-only by invariant: it is written with the same TTL as its
// paired OTP and never touches the durable store.
type pendingSignupRecord struct {
	Email    string
	Password string
}

type pendingSignupStore struct {
	redis  *redis.Client
	prefix string
}

func newPendingSignupStore(client *redis.Client) *pendingSignupStore {
	return &pendingSignupStore{
		redis:  client,
		prefix: pendingKeyPrefix,
	}
}

func (s *pendingSignupStore) key(email string) string {
	return s.prefix + ":" + email
}

func (s *pendingSignupStore) Save(ctx context.Context, email string, record *pendingSignupRecord, ttl time.Duration) error {
	encoded, err := encodePendingSignupRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	return nil
}

// Take atomically fetches and deletes the pending signup, so the password is
// gone from the cache the moment the verify step picks it up.
func (s *pendingSignupStore) Take(ctx context.Context, email string) (*pendingSignupRecord, error) {
	data, err := s.redis.GetDel(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errPendingNotFound
		}
		return nil, fmt.Errorf("%w: %v", errOTPRedisUnavailable, err)
	}
	return decodePendingSignupRecord(data)
}

func encodePendingSignupRecord(record *pendingSignupRecord) ([]byte, error) {
	if len(record.Email) > 65535 || len(record.Password) > 65535 {
		return nil, errors.New("pending signup field too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(pendingRecordV1)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(record.Email)))
	buf.WriteString(record.Email)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(record.Password)))
	buf.WriteString(record.Password)
	return buf.Bytes(), nil
}

func decodePendingSignupRecord(data []byte) (*pendingSignupRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pendingRecordV1 {
		return nil, errors.New("invalid pending signup record version")
	}

	record := &pendingSignupRecord{}

	var emailLen uint16
	if err := binary.Read(reader, binary.BigEndian, &emailLen); err != nil {
		return nil, err
	}
	email := make([]byte, emailLen)
	if _, err := io.ReadFull(reader, email); err != nil {
		return nil, err
	}
	record.Email = string(email)

	var passwordLen uint16
	if err := binary.Read(reader, binary.BigEndian, &passwordLen); err != nil {
		return nil, err
	}
	password := make([]byte, passwordLen)
	if _, err := io.ReadFull(reader, password); err != nil {
		return nil, err
	}
	record.Password = string(password)

	return record, nil
}
