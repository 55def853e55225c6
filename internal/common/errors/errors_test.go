package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Error(t *testing.T) {
	err := NewBankTimeoutError("BANK_A", 30*time.Second)
	assert.Equal(t, "StandardError[BANK_TIMEOUT]: Bank request timed out", err.Error())
	assert.Contains(t, err.Details, "BANK_A")
	assert.True(t, err.Retryable)
	assert.False(t, err.Timestamp.IsZero())
}

func TestStandardError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewProviderUnavailableError("credit_bureau", cause)

	assert.True(t, stderrors.Is(err, cause))

	wrapped := fmt.Errorf("generate: %w", err)
	var stdErr *StandardError
	require.True(t, stderrors.As(wrapped, &stdErr))
	assert.Equal(t, ErrCodeProviderUnavailable, stdErr.Code)
}

func TestNewIntentValidationError(t *testing.T) {
	violations := []string{"amount too small", "duration too long"}
	err := NewIntentValidationError(violations)

	assert.Equal(t, ErrCodeIntentValidationFailed, err.Code)
	assert.False(t, err.Retryable)
	assert.Equal(t, "amount too small; duration too long", err.Details)
	assert.Equal(t, violations, err.Metadata["violations"])
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeDiscoveryFailed, 3},
		{ErrCodeOfferStoreFailed, 3},
		{ErrCodeNarrativeFailed, 2},
		{ErrCodeBankTimeout, 1},
		{ErrCodeIntentValidationFailed, 0},
		{ErrCodeIdentityVerificationFailed, 0},
		{ErrorCode("SOMETHING_ELSE"), 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable keeps retry budget", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewDiscoveryFailedError(stderrors.New("es down")))
		assert.Equal(t, "DISCOVERY_FAILED", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		assert.Equal(t, "DISCOVERY_FAILED", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("non-retryable zeroes retries and carries metadata", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewIntentValidationError([]string{"bad"}))
		assert.Equal(t, 0, bpmn.Retries)

		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "INTENT_VALIDATION_FAILED", vars["errorCode"])
		assert.Equal(t, []string{"bad"}, vars["violations"])
		assert.Equal(t, false, vars["retryable"])
	})
}

func TestNormalize(t *testing.T) {
	std := NewCacheError("append", stderrors.New("redis gone"))
	assert.Same(t, std, Normalize(fmt.Errorf("wrapped: %w", std)))

	plain := Normalize(stderrors.New("plain"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), plain.Code)
	assert.Equal(t, "plain", plain.Details)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeIntentValidationFailed:     "VALIDATION",
		ErrCodeInputParseFailed:           "VALIDATION",
		ErrCodeIdentityVerificationFailed: "IDENTITY",
		ErrCodeBankTimeout:                "MARKETPLACE",
		ErrCodeDiscoveryFailed:            "MARKETPLACE",
		ErrCodeNarrativeFailed:            "UPSTREAM",
		ErrCodeCacheFailed:                "STORAGE",
		ErrCodeNotificationSendFailed:     "NOTIFICATION",
		ErrorCode("X"):                    "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), code)
	}
}
