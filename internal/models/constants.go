package models

// Ledger-service classification used when no mapping entry matches.
const (
	DefaultGenreID    = 19905 // 未分類
	DefaultCategoryID = 199   // 共通

	// FallbackCategoryID is applied by the ledger client when a record carries no category.
	FallbackCategoryID = 101
)

// Outcome statuses recorded for each processed message.
const (
	StatusRegistered = "registered"
	StatusInvalid    = "invalid"
	StatusFailed     = "failed"
	StatusDryRun     = "dry_run"
)
