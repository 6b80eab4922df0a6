// Package mailstore fetches payment notifications from an IMAP mailbox.
package mailstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Session is the subset of an IMAP client used by IMAPSource.
// *client.Client satisfies it.
type Session interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

// Dialer opens an unauthenticated session.
type Dialer func(addr string, useTLS bool, timeout time.Duration) (Session, error)

// Options configures an IMAPSource.
type Options struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
	Mailbox  string
	Timeout  time.Duration
	Logger   logging.Logger
	// Dial overrides how sessions are opened; nil uses DialIMAP.
	Dial Dialer
}

// IMAPSource searches a mailbox and returns fully fetched messages.
// Each Search opens and closes its own session.
type IMAPSource struct {
	opts   Options
	logger logging.Logger
}

// NewIMAPSource creates a source. Connection happens lazily in Search.
func NewIMAPSource(opts Options) *IMAPSource {
	if opts.Mailbox == "" {
		opts.Mailbox = "INBOX"
	}
	if opts.Port == 0 {
		opts.Port = 993
	}
	if opts.Dial == nil {
		opts.Dial = DialIMAP
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &IMAPSource{opts: opts, logger: logger}
}

// DialIMAP connects with go-imap, over TLS when useTLS is set.
func DialIMAP(addr string, useTLS bool, timeout time.Duration) (Session, error) {
	dialer := &net.Dialer{Timeout: timeout}
	var (
		c   *client.Client
		err error
	)
	if useTLS {
		host, _, _ := net.SplitHostPort(addr)
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, err
	}
	c.Timeout = timeout
	return c, nil
}

// Search returns every message from the given sender received on or after since,
// in mailbox order. The mailbox is opened read-only and messages are fetched
// with BODY.PEEK so their seen flag is untouched.
func (s *IMAPSource) Search(ctx context.Context, from string, since time.Time) ([]models.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	logger := s.logger.WithFields(
		logging.F(logging.FieldMailbox, s.opts.Mailbox),
		logging.F(logging.FieldFromAddress, from))

	session, err := s.opts.Dial(addr, s.opts.SSL, s.opts.Timeout)
	if err != nil {
		return nil, &apperrors.MailStoreError{Op: "connect to " + addr, Err: err}
	}
	defer func() {
		if err := session.Logout(); err != nil {
			logger.WithError(err).Debug("IMAP logout failed")
		}
	}()

	if err := session.Login(s.opts.Username, s.opts.Password); err != nil {
		return nil, &apperrors.MailStoreError{Op: "login", Err: err}
	}

	status, err := session.Select(s.opts.Mailbox, true)
	if err != nil {
		return nil, &apperrors.MailStoreError{Op: "select " + s.opts.Mailbox, Err: err}
	}

	criteria := imap.NewSearchCriteria()
	if from != "" {
		criteria.Header.Add("From", from)
	}
	criteria.Since = since

	uids, err := session.UidSearch(criteria)
	if err != nil {
		return nil, &apperrors.MailStoreError{Op: "search", Err: err}
	}
	logger.Info("Mailbox searched",
		logging.F(logging.FieldSince, since.Format("2006-01-02")),
		logging.F(logging.FieldCount, len(uids)))
	if len(uids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages, err := s.fetch(session, uids, status)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *IMAPSource) fetch(session Session, uids []uint32, status *imap.MailboxStatus) ([]models.RawMessage, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- session.UidFetch(seqset, items, ch)
	}()

	var uidValidity uint32
	if status != nil {
		uidValidity = status.UidValidity
	}

	var out []models.RawMessage
	for msg := range ch {
		raw, err := readBody(msg, section)
		if err != nil {
			s.logger.WithError(err).Warn("Skipping message with unreadable body",
				logging.F("uid", msg.Uid))
			continue
		}
		out = append(out, s.toRawMessage(msg, raw, uidValidity))
	}
	if err := <-done; err != nil {
		return nil, &apperrors.MailStoreError{Op: "fetch", Err: err}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func readBody(msg *imap.Message, section *imap.BodySectionName) ([]byte, error) {
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("server returned no body")
	}
	return io.ReadAll(body)
}

func (s *IMAPSource) toRawMessage(msg *imap.Message, raw []byte, uidValidity uint32) models.RawMessage {
	rm := models.RawMessage{UID: msg.Uid, Raw: raw}

	if env := msg.Envelope; env != nil {
		rm.ID = strings.Trim(strings.TrimSpace(env.MessageId), "<>")
		rm.Subject = env.Subject
		if !env.Date.IsZero() {
			d := env.Date
			rm.Date = &d
		}
		if len(env.From) > 0 && env.From[0] != nil {
			rm.From = formatAddress(env.From[0])
		}
	}

	if rm.ID == "" {
		rm.ID = fmt.Sprintf("uid:%s:%d:%d", s.opts.Mailbox, uidValidity, msg.Uid)
	}
	return rm
}

func formatAddress(a *imap.Address) string {
	addr := a.MailboxName
	if a.HostName != "" {
		addr += "@" + a.HostName
	}
	if a.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", a.PersonalName, addr)
	}
	return addr
}
