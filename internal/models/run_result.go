package models

import (
	"fjacquet/anapay2zaim/internal/logging"
)

// RunResult tracks the aggregate counts of one registration run.
// Messages already present in the dedup ledger are never counted.
type RunResult struct {
	Processed  int // Messages that went through extraction
	Registered int // Messages submitted successfully
	Errors     int // Invalid candidates and failed submissions

	Outcomes []Outcome
}

// Outcome describes what happened to a single message during a run.
type Outcome struct {
	MessageID  string `csv:"message_id" json:"message_id"`
	Subject    string `csv:"subject" json:"subject"`
	Date       string `csv:"date" json:"date"`
	Amount     int64  `csv:"amount" json:"amount"`
	Merchant   string `csv:"merchant" json:"merchant"`
	Place      string `csv:"place" json:"place"`
	GenreID    int    `csv:"genre_id" json:"genre_id"`
	CategoryID int    `csv:"category_id" json:"category_id"`
	Status     string `csv:"status" json:"status"`
	Error      string `csv:"error" json:"error,omitempty"`
}

// LogSummary logs a summary of the run counts
func (r RunResult) LogSummary(logger logging.Logger) {
	if logger == nil {
		return
	}

	logger.Info("Processing summary",
		logging.Field{Key: logging.FieldProcessed, Value: r.Processed},
		logging.Field{Key: logging.FieldRegistered, Value: r.Registered},
		logging.Field{Key: logging.FieldErrors, Value: r.Errors},
		logging.Field{Key: "success_rate", Value: r.GetSuccessRate()},
	)
}

// GetSuccessRate calculates the share of processed messages that were registered, as a percentage
func (r RunResult) GetSuccessRate() float64 {
	if r.Processed == 0 {
		return 0.0
	}
	return float64(r.Registered) / float64(r.Processed) * 100.0
}

// RecordRegistered counts a successful submission.
func (r *RunResult) RecordRegistered(o Outcome) {
	r.Processed++
	r.Registered++
	o.Status = StatusRegistered
	r.Outcomes = append(r.Outcomes, o)
}

// RecordError counts an invalid candidate or a failed submission.
func (r *RunResult) RecordError(o Outcome, status string, err error) {
	r.Processed++
	r.Errors++
	o.Status = status
	if err != nil {
		o.Error = err.Error()
	}
	r.Outcomes = append(r.Outcomes, o)
}

// RecordDryRun counts a message that would have been submitted.
func (r *RunResult) RecordDryRun(o Outcome) {
	r.Processed++
	o.Status = StatusDryRun
	r.Outcomes = append(r.Outcomes, o)
}
