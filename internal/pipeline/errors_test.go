package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	t.Run("missing field", func(t *testing.T) {
		err := NewConfigurationError("design_file_key", nil)
		assert.Equal(t, "configuration invalid: missing design_file_key", err.Error())
	})

	t.Run("wraps cause", func(t *testing.T) {
		cause := errors.New("file not found")
		err := NewConfigurationError("profile", cause)
		assert.Contains(t, err.Error(), "profile")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("detected through wrapping", func(t *testing.T) {
		err := fmt.Errorf("run aborted: %w", NewConfigurationError("api_key", nil))
		assert.True(t, IsConfiguration(err))
		assert.False(t, IsValidation(err))
		assert.False(t, IsExternalService(err))
	})
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(PhaseValidation, []string{
		"unbalanced <section markers: 3 open, 2 close",
		"markup is 120 characters, below the 500 minimum",
	})
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "3 open, 2 close")
	assert.True(t, IsValidation(err))
}

func TestExternalServiceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExternalServiceError("cms", "create page", cause)
	assert.Equal(t, "cms: failed to create page: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsExternalService(err))
	assert.False(t, IsConfiguration(err))
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected end of input")
	err := &ParseError{Expected: "generation envelope", Err: cause}
	assert.Contains(t, err.Error(), "generation envelope")
	assert.ErrorIs(t, err, cause)
}
