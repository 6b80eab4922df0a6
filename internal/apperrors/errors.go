// Package apperrors defines the error taxonomy shared by the registration pipeline.
//
// Extraction never fails and a merchant without a mapping entry is not an error,
// so neither has a type here.
package apperrors

import (
	"errors"
	"fmt"
)

// ConfigurationError represents missing or invalid settings or credentials.
// It aborts a run before any message is processed.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %s: %s: %v", e.Setting, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// SubmissionError represents a failed or rejected payment submission.
// It is recovered per message: the message stays eligible for the next run.
type SubmissionError struct {
	MessageID  string
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("submission of %s failed with status %d: %v", e.MessageID, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("submission of %s failed: %v", e.MessageID, e.Err)
	default:
		return fmt.Sprintf("submission of %s rejected with status %d: %s", e.MessageID, e.StatusCode, e.Body)
	}
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// LedgerIOError represents a failure to read or append the processed-message ledger.
// Retry semantics depend on the ledger, so it aborts the run.
type LedgerIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *LedgerIOError) Error() string {
	return fmt.Sprintf("ledger %s failed for '%s': %v", e.Op, e.Path, e.Err)
}

func (e *LedgerIOError) Unwrap() error {
	return e.Err
}

// MailStoreError represents a connectivity or protocol failure talking to the mail store.
type MailStoreError struct {
	Op  string
	Err error
}

func (e *MailStoreError) Error() string {
	return fmt.Sprintf("mail store %s failed: %v", e.Op, e.Err)
}

func (e *MailStoreError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the whole run rather than a single message.
func IsFatal(err error) bool {
	var cfgErr *ConfigurationError
	var ledgerErr *LedgerIOError
	var mailErr *MailStoreError
	return errors.As(err, &cfgErr) || errors.As(err, &ledgerErr) || errors.As(err, &mailErr)
}
