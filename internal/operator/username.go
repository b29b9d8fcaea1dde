package operator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Username length bounds (DNS label rules).
const (
	MinUsernameLength = 3
	MaxUsernameLength = 63
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

var lower = cases.Lower(language.Und)

// NormalizeUsername trims and lowercases input and validates it as a
// DNS-like label: 3..63 characters of [a-z0-9-], starting and ending
// alphanumeric, with no "--".
func NormalizeUsername(input string) (string, error) {
	id := lower.String(strings.TrimSpace(input))

	if n := utf8.RuneCountInString(id); n < MinUsernameLength || n > MaxUsernameLength {
		return "", &ValidationError{
			Code:    ErrCodeInvalidUsername,
			Message: fmt.Sprintf("invalid username length: %d, expected %d..%d characters", n, MinUsernameLength, MaxUsernameLength),
			Details: map[string]string{"input": input},
		}
	}
	if !usernamePattern.MatchString(id) {
		return "", &ValidationError{
			Code:    ErrCodeInvalidUsername,
			Message: fmt.Sprintf("invalid username %q: use only [a-z0-9-] and start/end with [a-z0-9]", input),
			Details: map[string]string{"input": input},
		}
	}
	if strings.Contains(id, "--") {
		return "", &ValidationError{
			Code:    ErrCodeInvalidUsername,
			Message: fmt.Sprintf("invalid username %q: \"--\" is not allowed", input),
			Details: map[string]string{"input": input},
		}
	}
	return id, nil
}
