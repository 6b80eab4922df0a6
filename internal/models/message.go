// Package models provides the data structures used throughout the application.
package models

import (
	"strings"
	"time"
)

// RawMessage is a source mail as handed over by the mail store.
// ID is the dedup key and must be stable across repeated fetches of the same message.
type RawMessage struct {
	ID      string
	UID     uint32
	From    string
	Subject string
	Date    *time.Time
	// Raw holds the full RFC 5322 message (headers and body).
	Raw []byte
}

// TransactionCandidate is the structured result of extracting one RawMessage.
// Amount and Merchant are independently nullable.
type TransactionCandidate struct {
	MessageID       string
	Subject         string
	ReceivedAt      *time.Time
	Amount          *int64
	Merchant        *string
	TransactionTime *time.Time
	// Relevant reports whether the message passed the sender/subject filter.
	Relevant bool
}

// IsValid reports whether the candidate carries everything needed for registration.
func (c TransactionCandidate) IsValid() bool {
	return c.Amount != nil && c.Merchant != nil
}

// MerchantName returns the extracted merchant or an empty string.
func (c TransactionCandidate) MerchantName() string {
	if c.Merchant == nil {
		return ""
	}
	return *c.Merchant
}

// AmountValue returns the extracted amount or zero.
func (c TransactionCandidate) AmountValue() int64 {
	if c.Amount == nil {
		return 0
	}
	return *c.Amount
}

// MerchantMappingEntry maps a merchant key pattern to a display name and classification.
type MerchantMappingEntry struct {
	Key        string `yaml:"-"`
	Merchant   string `yaml:"merchant"`
	GenreID    int    `yaml:"genre_id"`
	CategoryID int    `yaml:"category_id"`
}

// DisplayName returns the mapped merchant name, or raw when the entry has none.
func (e MerchantMappingEntry) DisplayName(raw string) string {
	if strings.TrimSpace(e.Merchant) == "" {
		return raw
	}
	return e.Merchant
}

// PaymentRecord is the outbound structure submitted to the ledger service.
type PaymentRecord struct {
	MessageID     string
	Amount        int64
	Date          string
	GenreID       int
	CategoryID    int
	Place         string
	Name          string
	Comment       string
	FromAccountID *int
}
