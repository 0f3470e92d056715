package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// PasswordMinLength and PasswordMaxLength bound accepted passwords.
	// The upper bound matches bcrypt's input limit.
	PasswordMinLength = 8
	PasswordMaxLength = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if an email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// EvaluatePassword checks a candidate password against the policy and
// returns every violated rule as a human-readable reason. An empty slice
// means the password is acceptable. Pure function, no I/O.
func EvaluatePassword(password, accountEmail string) []string {
	var reasons []string

	if strings.TrimSpace(password) == "" {
		reasons = append(reasons, "password must not be empty or whitespace only")
	}
	if len(password) < PasswordMinLength {
		reasons = append(reasons, fmt.Sprintf("password must be at least %d characters long", PasswordMinLength))
	}
	if len(password) > PasswordMaxLength {
		reasons = append(reasons, fmt.Sprintf("password must be at most %d characters long", PasswordMaxLength))
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	distinct := make(map[rune]struct{})
	runeCount := 0
	for _, char := range password {
		runeCount++
		distinct[char] = struct{}{}
		switch {
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsDigit(char):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	var missing []string
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if !hasSymbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		reasons = append(reasons, "password must contain a lowercase letter, an uppercase letter, a digit and a symbol (missing: "+strings.Join(missing, ", ")+")")
	}

	if runeCount >= PasswordMinLength && len(distinct) <= 2 {
		reasons = append(reasons, "password must not be built from one or two repeated characters")
	}

	if accountEmail != "" {
		lowered := strings.ToLower(password)
		email := strings.ToLower(strings.TrimSpace(accountEmail))
		localPart := email
		if at := strings.IndexByte(email, '@'); at >= 0 {
			localPart = email[:at]
		}
		// Short local parts like "jo" would flag too many honest passwords.
		if strings.Contains(lowered, email) || (len(localPart) >= 3 && strings.Contains(lowered, localPart)) {
			reasons = append(reasons, "password must not contain your email address")
		}
	}

	return reasons
}
