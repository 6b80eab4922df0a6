// Package coordinator drives one registration run: fetch, deduplicate, extract,
// resolve, submit and record.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/dateutils"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"
	"fjacquet/anapay2zaim/internal/resolver"
)

// MailSource searches the mail store for candidate messages.
type MailSource interface {
	Search(ctx context.Context, from string, since time.Time) ([]models.RawMessage, error)
}

// PaymentSubmitter registers one payment with the ledger service.
// Any returned error means the payment was not accepted.
type PaymentSubmitter interface {
	SubmitPayment(ctx context.Context, record models.PaymentRecord) error
}

// Extractor turns a raw message into a candidate.
type Extractor interface {
	Extract(msg models.RawMessage) models.TransactionCandidate
}

// Resolver assigns a display name, genre and category to a raw merchant.
type Resolver interface {
	Apply(raw string) resolver.Assignment
}

// Ledger is the durable set of registered message ids.
type Ledger interface {
	Contains(id string) bool
	Record(id string) error
}

// Options tunes a run.
type Options struct {
	// FromAddress is the sender the mail store is searched for.
	FromAddress string
	// CommentPrefix is prepended to the raw merchant in the payment comment.
	CommentPrefix string
	FromAccountID *int
	// Location is the zone used to format payment dates.
	Location *time.Location
	// DryRun resolves and logs payments without submitting or recording them.
	DryRun bool
	// Clock returns the current time; nil uses time.Now.
	Clock func() time.Time
}

// Coordinator runs the registration pipeline sequentially.
type Coordinator struct {
	source    MailSource
	submitter PaymentSubmitter
	extractor Extractor
	resolver  Resolver
	ledger    Ledger
	opts      Options
	logger    logging.Logger
}

// New creates a Coordinator. The ledger must already be loaded.
func New(source MailSource, submitter PaymentSubmitter, extractor Extractor, resolver Resolver, ledger Ledger, opts Options, logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Coordinator{
		source:    source,
		submitter: submitter,
		extractor: extractor,
		resolver:  resolver,
		ledger:    ledger,
		opts:      opts,
		logger:    logger,
	}
}

// Run processes every message received since the given time and returns the
// counts. Per-message failures are counted; a mail store or ledger failure
// aborts the run and is returned together with the counts so far.
func (c *Coordinator) Run(ctx context.Context, since time.Time) (models.RunResult, error) {
	var result models.RunResult

	msgs, err := c.source.Search(ctx, c.opts.FromAddress, since)
	if err != nil {
		return result, err
	}
	c.logger.Info("Fetched candidate messages",
		logging.F(logging.FieldCount, len(msgs)),
		logging.F(logging.FieldSince, dateutils.ToISODate(since, c.opts.Location)))

	seen := make(map[string]struct{}, len(msgs))
	skipped := 0
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := strings.TrimSpace(msg.ID)
		if id != "" && c.alreadyHandled(id, seen) {
			skipped++
			continue
		}

		candidate := c.extractor.Extract(msg)
		if id == "" {
			id = strings.TrimSpace(candidate.MessageID)
			if id == "" {
				c.logger.Warn("Skipping message without identifier",
					logging.F(logging.FieldSubject, candidate.Subject))
				continue
			}
			if c.alreadyHandled(id, seen) {
				skipped++
				continue
			}
		}
		candidate.MessageID = id
		seen[id] = struct{}{}

		if !candidate.Relevant {
			c.logger.Debug("Skipping unrelated message",
				logging.F(logging.FieldMessageID, id),
				logging.F(logging.FieldSubject, candidate.Subject))
			continue
		}

		if err := c.process(ctx, candidate, &result); err != nil {
			return result, err
		}
	}

	c.logger.Info("Run finished",
		logging.F(logging.FieldProcessed, result.Processed),
		logging.F(logging.FieldRegistered, result.Registered),
		logging.F(logging.FieldErrors, result.Errors),
		logging.F("skipped", skipped))
	return result, nil
}

func (c *Coordinator) alreadyHandled(id string, seen map[string]struct{}) bool {
	if _, ok := seen[id]; ok {
		return true
	}
	if c.ledger.Contains(id) {
		c.logger.Debug("Skipping already registered message", logging.F(logging.FieldMessageID, id))
		return true
	}
	return false
}

// process handles one relevant candidate. Only ledger failures are returned.
func (c *Coordinator) process(ctx context.Context, candidate models.TransactionCandidate, result *models.RunResult) error {
	logger := c.logger.WithFields(logging.F(logging.FieldMessageID, candidate.MessageID))
	outcome := models.Outcome{
		MessageID: candidate.MessageID,
		Subject:   candidate.Subject,
		Amount:    candidate.AmountValue(),
		Merchant:  candidate.MerchantName(),
	}

	if !candidate.IsValid() {
		logger.Warn("Message lacks amount or merchant, not submitted",
			logging.F(logging.FieldAmount, candidate.Amount != nil),
			logging.F(logging.FieldMerchant, candidate.Merchant != nil))
		result.RecordError(outcome, models.StatusInvalid, nil)
		return nil
	}

	record := c.buildRecord(candidate)
	outcome.Date = record.Date
	outcome.Place = record.Place
	outcome.GenreID = record.GenreID
	outcome.CategoryID = record.CategoryID

	logger = logger.WithFields(
		logging.F(logging.FieldAmount, record.Amount),
		logging.F(logging.FieldPlace, record.Place),
		logging.F(logging.FieldDate, record.Date))

	if c.opts.DryRun {
		logger.Info("Dry run, payment not submitted",
			logging.F(logging.FieldGenreID, record.GenreID),
			logging.F(logging.FieldCategoryID, record.CategoryID))
		result.RecordDryRun(outcome)
		return nil
	}

	if err := c.submitter.SubmitPayment(ctx, record); err != nil {
		fields := []logging.Field{}
		var subErr *apperrors.SubmissionError
		if errors.As(err, &subErr) && subErr.StatusCode != 0 {
			fields = append(fields, logging.F(logging.FieldStatusCode, subErr.StatusCode))
		}
		logger.WithError(err).Error("Payment submission failed", fields...)
		result.RecordError(outcome, models.StatusFailed, err)
		return nil
	}

	if err := c.ledger.Record(candidate.MessageID); err != nil {
		// The payment exists but is not recorded; the next run may duplicate it.
		result.RecordRegistered(outcome)
		logger.WithError(err).Error("Payment registered but ledger update failed")
		return err
	}

	result.RecordRegistered(outcome)
	logger.Info("Payment registered")
	return nil
}

// buildRecord resolves the merchant and assembles the outbound payment.
func (c *Coordinator) buildRecord(candidate models.TransactionCandidate) models.PaymentRecord {
	raw := candidate.MerchantName()
	assignment := c.resolver.Apply(raw)

	date := dateutils.FirstDate(c.opts.Clock(), candidate.TransactionTime, candidate.ReceivedAt)

	return models.PaymentRecord{
		MessageID:     candidate.MessageID,
		Amount:        candidate.AmountValue(),
		Date:          dateutils.ToISODate(date, c.opts.Location),
		GenreID:       assignment.GenreID,
		CategoryID:    assignment.CategoryID,
		Place:         assignment.Name,
		Name:          assignment.Name,
		Comment:       c.opts.CommentPrefix + raw,
		FromAccountID: c.opts.FromAccountID,
	}
}
