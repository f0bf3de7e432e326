// Package internal holds small helpers shared across the module. Nothing in
// here is part of the public API.
package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"strconv"
)

// NewOTP returns a numeric one-time code of the requested length. Leading
// zeros are valid, so the code is built digit by digit rather than from a
// single bounded integer.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("otp digits must be between 6 and 10")
	}

	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// HashBytes returns the SHA-256 of s.
func HashBytes(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

// TwoDigitSuffix returns a random string in "00".."99".
func TwoDigitSuffix() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return "", err
	}
	v := n.Int64()
	return string([]byte{byte('0' + v/10), byte('0' + v%10)}), nil
}

// Base36 renders a non-negative integer in base 36. Negative input clamps to
// zero.
func Base36(n int64) string {
	if n < 0 {
		n = 0
	}
	return strconv.FormatInt(n, 36)
}

// Base36Timestamp renders a unix timestamp in base 36. Compact enough to fit
// inside generated usernames.
func Base36Timestamp(unix int64) string {
	return Base36(unix)
}
