package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("researcher@example.edu"))
	assert.True(t, ValidateEmail("first.last+tag@sub.example.org"))
	assert.False(t, ValidateEmail("not-an-address"))
	assert.False(t, ValidateEmail("missing@tld"))
}

func TestValidatePassword(t *testing.T) {
	ok, msg := ValidatePassword("short1")
	assert.False(t, ok)
	assert.Contains(t, msg, "at least 8 characters")

	ok, msg = ValidatePassword("lettersonly")
	assert.False(t, ok)
	assert.Contains(t, msg, "one letter and one digit")

	ok, msg = ValidatePassword("12345678")
	assert.False(t, ok)
	assert.Contains(t, msg, "one letter and one digit")

	ok, msg = ValidatePassword("research2026")
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "title", SanitizeInput("  title  "))
	assert.Equal(t, "ab", SanitizeInput("a\x00b"))
}
