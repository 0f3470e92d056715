package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatePasswordAccepts(t *testing.T) {
	tests := []struct {
		name     string
		password string
		email    string
	}{
		{"minimum length all classes", "aB3!efgh", "user@example.com"},
		{"long mixed password", "Tr0ub4dor&3-horse-battery", "user@example.com"},
		{"short local part not matched", "jo!X29abc", "jo@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, EvaluatePassword(tt.password, tt.email))
		})
	}
}

func TestEvaluatePasswordRejects(t *testing.T) {
	tests := []struct {
		name     string
		password string
		email    string
		contains string
	}{
		{"too short", "aB3!e", "user@example.com", "at least 8"},
		{"too long", strings.Repeat("aB3!", 19), "user@example.com", "at most 72"},
		{"missing symbol", "aB3defgh", "user@example.com", "missing: a symbol"},
		{"missing upper and digit", "abcd!efg", "user@example.com", "an uppercase letter, a digit"},
		{"contains full email", "User@example.com1!A", "user@example.com", "email"},
		{"contains local part", "xxuserXX3!", "user@example.com", "email"},
		{"single repeated character", "aaaaaaaa", "user@example.com", "repeated"},
		{"two distinct characters", "aBaBaBaB", "user@example.com", "repeated"},
		{"all whitespace", "        ", "user@example.com", "whitespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := EvaluatePassword(tt.password, tt.email)
			assert.NotEmpty(t, reasons)
			found := false
			for _, r := range reasons {
				if strings.Contains(r, tt.contains) {
					found = true
				}
			}
			assert.True(t, found, "expected a reason containing %q, got %v", tt.contains, reasons)
		})
	}
}

func TestEvaluatePasswordMissingClassReasonNamesAllFour(t *testing.T) {
	reasons := EvaluatePassword("aB3defgh", "user@example.com")
	assert.Len(t, reasons, 1)
	for _, category := range []string{"lowercase", "uppercase", "digit", "symbol"} {
		assert.Contains(t, reasons[0], category)
	}
}

func TestEvaluatePasswordAggregatesAllViolations(t *testing.T) {
	// Short, single class, repeated character.
	reasons := EvaluatePassword("aaaa", "user@example.com")
	assert.GreaterOrEqual(t, len(reasons), 2)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("first.last+tag@sub.example.co"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("user@"))
	assert.False(t, ValidateEmail("@example.com"))
}
