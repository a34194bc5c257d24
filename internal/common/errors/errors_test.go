package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublic_HidesBackendFailures(t *testing.T) {
	cause := stderrors.New("dial tcp 10.0.0.5:6379: connection refused")
	err := NewStorageUnavailableError("find user", cause).WithRequestID("req-1")

	pub := err.Public()

	assert.Equal(t, ErrCodeStorageUnavailable, pub.Code)
	assert.Equal(t, SessionRetryMessage, pub.Message)
	assert.Nil(t, pub.Details)
	assert.Nil(t, pub.Cause)
	assert.Equal(t, "req-1", pub.RequestID)
	assert.NotContains(t, pub.Error(), "10.0.0.5")
}

func TestPublic_InternalCollapses(t *testing.T) {
	pub := Wrap(stderrors.New("boom"), ErrCodeTelegramAPI, "send failed").Public()

	assert.Equal(t, ErrCodeInternal, pub.Code)
	assert.Equal(t, "Internal server error", pub.Message)
}

func TestPublic_ValidationKeepsDetails(t *testing.T) {
	pub := NewValidationError("city", "required").Public()

	assert.Equal(t, "city", pub.Details["field"])
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("bootstrap: %w", NewUnknownIdentityError("missing user"))

	assert.True(t, HasCode(err, ErrCodeUnknownIdentity))
	assert.False(t, HasCode(err, ErrCodeStorageUnavailable))
	assert.True(t, stderrors.Is(err, New(ErrCodeUnknownIdentity, "")))
}
