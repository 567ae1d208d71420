package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	root := errors.New("connection reset")
	err := Wrap(root, CodeInternal, "failed to load badge")

	require.Error(t, err)
	assert.True(t, Is(err, root))
	assert.True(t, HasCode(err, CodeInternal))
	assert.Equal(t, "failed to load badge: connection reset", err.Error())
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeConflict, "badge already active"))

	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestValidationCarriesAllViolations(t *testing.T) {
	err := Validation("invalid claim", "nin must be 11 digits", "gender is invalid")

	assert.True(t, HasCode(err, CodeValidation))
	assert.Equal(t, []string{"nin must be 11 digits", "gender is invalid"}, Violations(err))
	assert.Nil(t, Violations(errors.New("plain")))
}

func TestUpstreamRetryable(t *testing.T) {
	retryable := Upstream(errors.New("503"), "service_unavailable", true, "verification provider unavailable")
	terminal := Upstream(nil, "nin_not_found", false, "nin not found")

	assert.True(t, IsRetryable(retryable))
	assert.False(t, IsRetryable(terminal))
	assert.True(t, IsRetryable(New(CodeTimeout, "deadline exceeded")))
	assert.False(t, IsRetryable(errors.New("plain")))

	de, ok := As(terminal)
	require.True(t, ok)
	assert.Equal(t, "nin_not_found", de.Reason)
}
