package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("alice@example.com"))
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("alice"))
	assert.False(t, ValidateEmail("Alice <alice@example.com>"))
	assert.False(t, ValidateEmail("alice@localhost"))
}

func TestValidateUsername(t *testing.T) {
	assert.True(t, ValidateUsername("alice"))
	assert.True(t, ValidateUsername("a.b-c_d"))
	assert.False(t, ValidateUsername("ab"))
	assert.False(t, ValidateUsername(strings.Repeat("a", 51)))
	assert.False(t, ValidateUsername("alice@example.com"))
	assert.False(t, ValidateUsername("al ice"))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("secret"))
	assert.False(t, ValidatePassword("short"))
}
