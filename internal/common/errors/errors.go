// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputParseFailed       ErrorCode = "INPUT_PARSE_FAILED"
	ErrCodeIntentValidationFailed ErrorCode = "INTENT_VALIDATION_FAILED"
	ErrCodeIntentNotFound         ErrorCode = "INTENT_NOT_FOUND"

	ErrCodeIdentityVerificationFailed ErrorCode = "IDENTITY_VERIFICATION_FAILED"
	ErrCodeBankConfigMissing          ErrorCode = "BANK_CONFIG_MISSING"

	ErrCodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	ErrCodeBankUnavailable ErrorCode = "BANK_UNAVAILABLE"
	ErrCodeBankTimeout     ErrorCode = "BANK_TIMEOUT"
	ErrCodeMalformedOffer  ErrorCode = "MALFORMED_OFFER"

	ErrCodeNarrativeFailed     ErrorCode = "NARRATIVE_FAILED"
	ErrCodeNarrativeTimeout    ErrorCode = "NARRATIVE_TIMEOUT"
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"

	ErrCodeOfferStoreFailed ErrorCode = "OFFER_STORE_FAILED"
	ErrCodeCacheFailed      ErrorCode = "CACHE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInputParseError is returned when job variables cannot be decoded.
func NewInputParseError(err error) *StandardError {
	return newError(ErrCodeInputParseFailed, "Job variables could not be parsed", err.Error(), false, err)
}

// NewIntentValidationError carries every violated rule in Metadata["violations"].
func NewIntentValidationError(violations []string) *StandardError {
	e := newError(ErrCodeIntentValidationFailed, "Credit intent failed validation", strings.Join(violations, "; "), false, nil)
	return e.WithMetadata("violations", violations)
}

// NewIntentNotFoundError creates a non-retryable missing-intent error.
func NewIntentNotFoundError(intentID string) *StandardError {
	return newError(ErrCodeIntentNotFound, "Credit intent not found", fmt.Sprintf("intentId: %s", intentID), false, nil)
}

// NewIdentityVerificationError is fatal to a single bank's offer.
func NewIdentityVerificationError(companyID string, err error) *StandardError {
	details := fmt.Sprintf("companyId: %s", companyID)
	if err != nil {
		details = fmt.Sprintf("%s, error: %s", details, err.Error())
	}
	return newError(ErrCodeIdentityVerificationFailed, "Company identity verification failed", details, false, err)
}

// NewBankConfigMissingError is returned when a job names an unknown bank.
func NewBankConfigMissingError(bankID string) *StandardError {
	return newError(ErrCodeBankConfigMissing, "No configuration for bank", fmt.Sprintf("bankId: %s", bankID), false, nil)
}

// NewDiscoveryFailedError creates a retryable discovery error.
func NewDiscoveryFailedError(err error) *StandardError {
	return newError(ErrCodeDiscoveryFailed, "Bank discovery failed", err.Error(), true, err)
}

// NewBankUnavailableError records a transport or status failure from one bank.
func NewBankUnavailableError(bankID string, err error) *StandardError {
	return newError(ErrCodeBankUnavailable, "Bank did not return an offer", fmt.Sprintf("bankId: %s, error: %v", bankID, err), true, err)
}

// NewBankTimeoutError records a bank that did not answer within its window.
func NewBankTimeoutError(bankID string, timeout time.Duration) *StandardError {
	return newError(ErrCodeBankTimeout, "Bank request timed out", fmt.Sprintf("bankId: %s, timeout: %s", bankID, timeout), true, nil)
}

// NewMalformedOfferError records a response that could not be used as an offer.
func NewMalformedOfferError(bankID, details string) *StandardError {
	return newError(ErrCodeMalformedOffer, "Bank returned a malformed offer", fmt.Sprintf("bankId: %s, %s", bankID, details), false, nil)
}

// NewNarrativeFailedError creates a retryable narrative service error.
func NewNarrativeFailedError(err error) *StandardError {
	return newError(ErrCodeNarrativeFailed, "Narrative generation failed", err.Error(), true, err)
}

// NewNarrativeTimeoutError creates a retryable narrative timeout error.
func NewNarrativeTimeoutError() *StandardError {
	return newError(ErrCodeNarrativeTimeout, "Narrative generation timed out", "", true, nil)
}

// NewProviderUnavailableError wraps a third-party data feed failure.
func NewProviderUnavailableError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderUnavailable, "Data provider unavailable", fmt.Sprintf("provider: %s, error: %v", provider, err), true, err)
}

// NewOfferStoreError wraps an audit-store failure.
func NewOfferStoreError(op string, err error) *StandardError {
	return newError(ErrCodeOfferStoreFailed, "Offer store operation failed", fmt.Sprintf("op: %s, error: %v", op, err), true, err)
}

// NewCacheError wraps an intent cache failure.
func NewCacheError(op string, err error) *StandardError {
	return newError(ErrCodeCacheFailed, "Intent cache operation failed", fmt.Sprintf("op: %s, error: %v", op, err), true, err)
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", fmt.Sprintf("channel: %s, error: %v", channel, err), true, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDiscoveryFailed,
		ErrCodeOfferStoreFailed,
		ErrCodeCacheFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeProviderUnavailable:
		return 3

	case ErrCodeNarrativeFailed,
		ErrCodeBankUnavailable:
		return 2

	case ErrCodeNarrativeTimeout,
		ErrCodeBankTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "INPUT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "IDENTITY"):
		return "IDENTITY"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "BANK") || strings.Contains(codeStr, "DISCOVERY") || strings.Contains(codeStr, "OFFER"):
		return "MARKETPLACE"
	case strings.Contains(codeStr, "NARRATIVE") || strings.Contains(codeStr, "PROVIDER"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
