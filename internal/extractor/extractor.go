// Package extractor turns raw payment-notification mails into transaction candidates.
package extractor

import (
	"bytes"
	"math"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"fjacquet/anapay2zaim/internal/dateutils"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

// Options configures an Extractor.
type Options struct {
	// SenderDomain is matched case-insensitively against the sender address.
	SenderDomain string
	// SubjectMarkers are matched against the decoded subject.
	SubjectMarkers []string
	// Location is used to interpret transaction times, which carry no zone.
	Location *time.Location
	Logger   logging.Logger
}

// Extractor decodes and parses messages. It is safe for concurrent use.
type Extractor struct {
	senderDomain   string
	subjectMarkers []string
	loc            *time.Location
	logger         logging.Logger
}

// Fields is the result of running the body rules over decoded text.
type Fields struct {
	Amount          *int64
	Merchant        *string
	TransactionTime *time.Time
}

// New creates an Extractor from opts.
func New(opts Options) *Extractor {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	markers := make([]string, 0, len(opts.SubjectMarkers))
	for _, m := range opts.SubjectMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	return &Extractor{
		senderDomain:   strings.ToLower(strings.TrimSpace(opts.SenderDomain)),
		subjectMarkers: markers,
		loc:            loc,
		logger:         logger,
	}
}

// Extract produces a candidate for msg. Malformed input never fails: any field
// that cannot be recovered is left nil.
func (e *Extractor) Extract(msg models.RawMessage) models.TransactionCandidate {
	header, body := splitMessage(msg.Raw)

	from := msg.From
	if v := header.Get("From"); v != "" {
		from = v
	}
	subject := msg.Subject
	if v := header.Get("Subject"); v != "" {
		subject = v
	}
	subject = DecodeSubject(subject)

	id := msg.ID
	if id == "" {
		id = strings.Trim(strings.TrimSpace(header.Get("Message-Id")), "<>")
	}

	received := msg.Date
	if received == nil {
		if t, err := dateutils.ParseMessageDate(header.Get("Date")); err == nil {
			received = &t
		}
	}

	text := pickText(decodeEntity(header, bytes.NewReader(body), 0))
	fields := e.ExtractFields(text)

	candidate := models.TransactionCandidate{
		MessageID:       id,
		Subject:         subject,
		ReceivedAt:      received,
		Amount:          fields.Amount,
		Merchant:        fields.Merchant,
		TransactionTime: fields.TransactionTime,
		Relevant:        e.IsRelevant(from, subject),
	}

	e.logger.Debug("Extracted message",
		logging.F(logging.FieldMessageID, id),
		logging.F(logging.FieldSubject, subject),
		logging.F(logging.FieldAmount, candidate.AmountValue()),
		logging.F(logging.FieldMerchant, candidate.MerchantName()))

	return candidate
}

// ExtractFields runs the amount, merchant and date rules over already decoded text.
func (e *Extractor) ExtractFields(text string) Fields {
	var f Fields

	if raw, ok := AmountRule.Find(text); ok {
		if amount, ok := parseAmount(raw); ok {
			f.Amount = &amount
		}
	}

	if merchant, rule, ok := MerchantRules.First(text); ok {
		f.Merchant = &merchant
		e.logger.Debug("Merchant matched",
			logging.F(logging.FieldRule, rule),
			logging.F(logging.FieldMerchant, merchant))
	}

	if raw, ok := DateRule.Find(text); ok {
		if t, err := dateutils.ParseTransactionTime(raw, e.loc); err == nil {
			f.TransactionTime = &t
		}
	}

	return f
}

// IsRelevant reports whether a message is an ANA Pay notification: the sender
// matches the configured domain, or the subject carries one of the markers.
func (e *Extractor) IsRelevant(from, subject string) bool {
	if e.senderDomain != "" {
		addr := from
		if parsed, err := mail.ParseAddress(from); err == nil {
			addr = parsed.Address
		}
		if strings.Contains(strings.ToLower(addr), e.senderDomain) {
			return true
		}
	}
	for _, marker := range e.subjectMarkers {
		if strings.Contains(subject, marker) {
			return true
		}
	}
	return false
}

// splitMessage separates headers from body. Raw content that is not a parseable
// message is treated as a headerless text body.
func splitMessage(raw []byte) (textproto.MIMEHeader, []byte) {
	if len(raw) == 0 {
		return textproto.MIMEHeader{}, nil
	}
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return textproto.MIMEHeader{}, raw
	}
	body := new(bytes.Buffer)
	if _, err := body.ReadFrom(m.Body); err != nil && body.Len() == 0 {
		return textproto.MIMEHeader(m.Header), nil
	}
	return textproto.MIMEHeader(m.Header), body.Bytes()
}

// parseAmount converts "1,234円"-style digits, possibly full-width, to an integer
// amount. Fractional digits are truncated; values beyond int64 are rejected.
func parseAmount(raw string) (int64, bool) {
	s := width.Narrow.String(raw)
	s = strings.NewReplacer(",", "", "，", "").Replace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		whole, _, _ := strings.Cut(s, ".")
		d, err = decimal.NewFromString(whole)
		if err != nil {
			return 0, false
		}
	}
	if d.GreaterThan(maxAmount) {
		return 0, false
	}
	return d.IntPart(), true
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)
