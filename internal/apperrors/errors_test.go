package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigurationError
		expected string
	}{
		{
			name:     "without cause",
			err:      &ConfigurationError{Setting: "zaim.consumer_key", Reason: "must be set"},
			expected: "configuration error for zaim.consumer_key: must be set",
		},
		{
			name:     "with cause",
			err:      &ConfigurationError{Setting: "zaim.token_file", Reason: "cannot read", Err: errors.New("permission denied")},
			expected: "configuration error for zaim.token_file: cannot read: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSubmissionError(t *testing.T) {
	tests := []struct {
		name     string
		err      *SubmissionError
		expected string
	}{
		{
			name:     "transport failure",
			err:      &SubmissionError{MessageID: "m1", Err: errors.New("connection refused")},
			expected: "submission of m1 failed: connection refused",
		},
		{
			name:     "non-success status",
			err:      &SubmissionError{MessageID: "m1", StatusCode: 400, Body: `{"error":true}`},
			expected: `submission of m1 rejected with status 400: {"error":true}`,
		},
		{
			name:     "status with cause",
			err:      &SubmissionError{MessageID: "m1", StatusCode: 200, Err: errors.New("invalid json")},
			expected: "submission of m1 failed with status 200: invalid json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestLedgerIOError_Unwrap(t *testing.T) {
	originalErr := errors.New("disk full")
	ledgerErr := &LedgerIOError{Path: "processed_emails.txt", Op: "append", Err: originalErr}

	assert.Equal(t, "ledger append failed for 'processed_emails.txt': disk full", ledgerErr.Error())
	assert.True(t, errors.Is(ledgerErr, originalErr))
}

func TestMailStoreError_Unwrap(t *testing.T) {
	originalErr := errors.New("i/o timeout")
	mailErr := &MailStoreError{Op: "login", Err: originalErr}

	assert.Equal(t, "mail store login failed: i/o timeout", mailErr.Error())
	assert.True(t, errors.Is(mailErr, originalErr))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&ConfigurationError{Setting: "x", Reason: "y"}))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", &LedgerIOError{Op: "load", Err: errors.New("x")})))
	assert.True(t, IsFatal(&MailStoreError{Op: "search", Err: errors.New("x")}))
	assert.False(t, IsFatal(&SubmissionError{MessageID: "m", StatusCode: 500}))
	assert.False(t, IsFatal(errors.New("plain")))
}
