package authcore

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/pagelinkhq/authcore/internal"
)

// usernamePattern admits lowercase letters, digits, underscore, and hyphen,
// with alphanumeric first and last characters. Single-character names never
// match; the length floor is enforced separately anyway.
var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*[a-z0-9]$`)

const tempUsernameMaxLen = 24

// validateUsername returns every rule the candidate breaks, not just the
// first, so a form can show all problems at once. The candidate is expected
// to be pre-lowercased.
func (e *Engine) validateUsername(name string) []string {
	var problems []string

	if len(name) < e.config.Username.MinLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", e.config.Username.MinLength))
	}
	if len(name) > e.config.Username.MaxLength {
		problems = append(problems, fmt.Sprintf("must be at most %d characters", e.config.Username.MaxLength))
	}
	if name != "" && !usernamePattern.MatchString(name) {
		problems = append(problems, "may only contain lowercase letters, digits, underscore, and hyphen, and must start and end with a letter or digit")
	}
	if _, ok := e.reserved[name]; ok {
		problems = append(problems, "this name is reserved")
	}

	return problems
}

// generateTempUsername builds a placeholder handle from the email local part
// plus a base36 timestamp, unique enough for the signup moment and always
// within the 24-character ceiling. Callers still go through the store's
// unique constraint.
func generateTempUsername(email string, unix int64) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}

	base := sanitizeAlnum(local)
	if base == "" {
		base = "user"
	}

	suffix := internal.Base36Timestamp(unix)
	maxBase := tempUsernameMaxLen - len(suffix)
	if maxBase > 16 {
		maxBase = 16
	}
	if len(base) > maxBase {
		base = base[:maxBase]
	}

	return base + suffix
}

// retryTempUsername derives a second candidate after a temp-username
// collision, folding in a random two-digit suffix while staying inside the
// 24-character ceiling.
func retryTempUsername(email string, unix int64) (string, error) {
	suffix, err := internal.TwoDigitSuffix()
	if err != nil {
		return "", err
	}
	name := generateTempUsername(email, unix)
	if len(name)+len(suffix) > tempUsernameMaxLen {
		name = trimToLength(name, tempUsernameMaxLen-len(suffix))
	}
	return name + suffix, nil
}

// sanitizeAlnum keeps lowercase letters and digits only, lowercasing as it
// goes.
func sanitizeAlnum(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// hashFragment derives a short stable suffix from a name. Used as the
// deterministic last resort when suggestion retries are exhausted.
func hashFragment(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return internal.Base36(int64(h.Sum32() % 46656)) // 3 base36 chars max
}

// trimToLength cuts a candidate down so an appended suffix stays within the
// configured maximum.
func trimToLength(name string, max int) string {
	if len(name) <= max {
		return name
	}
	trimmed := name[:max]
	trimmed = strings.TrimRight(trimmed, "_-")
	return trimmed
}
