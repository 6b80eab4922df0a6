// Package ledger keeps the durable set of message identifiers that were
// successfully registered.
//
// The backing file is a flat list, one identifier per line, and is only ever
// appended to. Concurrent processes must not share a ledger file.
package ledger

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/logging"
)

// Ledger is an append-only set of processed message identifiers.
type Ledger struct {
	path   string
	logger logging.Logger

	mu  sync.RWMutex
	ids map[string]struct{}
}

// New creates an empty Ledger bound to path. Call Load to read existing records.
func New(path string, logger logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Ledger{
		path:   path,
		logger: logger,
		ids:    make(map[string]struct{}),
	}
}

// Open creates a Ledger for path and loads it.
func Open(path string, logger logging.Logger) (*Ledger, error) {
	l := New(path, logger)
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Load reads every recorded identifier into memory. A missing file is an
// empty ledger. Blank lines and surrounding whitespace are ignored.
func (l *Ledger) Load() error {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Debug("Ledger file not found, starting empty",
				logging.F(logging.FieldFile, l.path))
			return nil
		}
		return &apperrors.LedgerIOError{Path: l.path, Op: "open", Err: err}
	}
	defer f.Close()

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return &apperrors.LedgerIOError{Path: l.path, Op: "read", Err: err}
	}

	l.mu.Lock()
	l.ids = ids
	l.mu.Unlock()

	l.logger.Debug("Loaded ledger",
		logging.F(logging.FieldFile, l.path),
		logging.F(logging.FieldCount, len(ids)))
	return nil
}

// Contains reports whether id was already recorded.
func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of recorded identifiers.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Record appends id to the ledger file, syncs it, then adds it to the set.
// It must only be called after the payment was accepted. Recording an id that
// is already present does nothing.
func (l *Ledger) Record(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &apperrors.LedgerIOError{Path: l.path, Op: "record", Err: errors.New("empty message id")}
	}
	if strings.ContainsAny(id, "\r\n") {
		return &apperrors.LedgerIOError{Path: l.path, Op: "record", Err: errors.New("message id contains a line break")}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[id]; ok {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &apperrors.LedgerIOError{Path: l.path, Op: "mkdir", Err: err}
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &apperrors.LedgerIOError{Path: l.path, Op: "open", Err: err}
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		_ = f.Close()
		return &apperrors.LedgerIOError{Path: l.path, Op: "append", Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &apperrors.LedgerIOError{Path: l.path, Op: "sync", Err: err}
	}
	if err := f.Close(); err != nil {
		return &apperrors.LedgerIOError{Path: l.path, Op: "close", Err: err}
	}

	l.ids[id] = struct{}{}
	l.logger.Debug("Recorded message in ledger", logging.F(logging.FieldMessageID, id))
	return nil
}
