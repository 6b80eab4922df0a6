// Package resolver maps raw merchant strings to genre/category assignments.
package resolver

import (
	"sort"
	"strings"

	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"

	"golang.org/x/text/unicode/norm"
)

// Match modes.
const (
	MatchPrefix    = "prefix"
	MatchSubstring = "substring"
)

// MappingSource provides the mapping table. It is satisfied by store.MappingStore.
type MappingSource interface {
	LoadMappings() ([]models.MerchantMappingEntry, error)
}

// Options configures a Resolver.
type Options struct {
	// MatchMode is MatchPrefix (default) or MatchSubstring.
	MatchMode     string
	CaseSensitive bool
	// DefaultGenreID and DefaultCategoryID are used by Apply on a miss.
	DefaultGenreID    int
	DefaultCategoryID int
}

// Assignment is the outcome of applying the mapping table to a merchant.
type Assignment struct {
	// Name is the display name sent as place and name.
	Name       string
	GenreID    int
	CategoryID int
	// MappingKey is the key of the matched entry; empty on a miss.
	MappingKey string
}

// Matched reports whether a mapping entry was used.
func (a Assignment) Matched() bool {
	return a.MappingKey != ""
}

type keyedEntry struct {
	entry models.MerchantMappingEntry
	key   string
}

// Resolver selects the longest matching key from the mapping table.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	entries []keyedEntry
	opts    Options
	logger  logging.Logger
}

// New builds a Resolver over entries. Entries with blank keys are ignored.
func New(entries []models.MerchantMappingEntry, opts Options, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.MatchMode == "" {
		opts.MatchMode = MatchPrefix
	}
	if opts.DefaultGenreID == 0 {
		opts.DefaultGenreID = models.DefaultGenreID
	}
	if opts.DefaultCategoryID == 0 {
		opts.DefaultCategoryID = models.DefaultCategoryID
	}

	r := &Resolver{opts: opts, logger: logger}
	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" {
			continue
		}
		r.entries = append(r.entries, keyedEntry{entry: e, key: r.normalize(e.Key)})
	}

	// Longest key first, then lexical, so the first hit is the winner.
	sort.SliceStable(r.entries, func(i, j int) bool {
		li, lj := len([]rune(r.entries[i].key)), len([]rune(r.entries[j].key))
		if li != lj {
			return li > lj
		}
		return r.entries[i].entry.Key < r.entries[j].entry.Key
	})

	logger.Debug("Merchant resolver ready",
		logging.F(logging.FieldCount, len(r.entries)),
		logging.F("match_mode", opts.MatchMode))
	return r
}

// NewFromSource loads the table from src and builds a Resolver.
func NewFromSource(src MappingSource, opts Options, logger logging.Logger) (*Resolver, error) {
	entries, err := src.LoadMappings()
	if err != nil {
		return nil, err
	}
	return New(entries, opts, logger), nil
}

// Len returns the number of usable entries.
func (r *Resolver) Len() int {
	return len(r.entries)
}

// normalize folds full-width and compatibility forms (NFKC) so that
// "ＰＡＹＰＡＹ" matches a "PAYPAY" key, then lowercases unless matching is
// case-sensitive.
func (r *Resolver) normalize(s string) string {
	s = norm.NFKC.String(s)
	if r.opts.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

func (r *Resolver) matches(raw, key string) bool {
	if r.opts.MatchMode == MatchSubstring {
		return strings.Contains(raw, key)
	}
	return strings.HasPrefix(raw, key)
}

// Resolve returns the entry with the longest key matching raw. A blank merchant
// never matches.
func (r *Resolver) Resolve(raw string) (models.MerchantMappingEntry, bool) {
	if strings.TrimSpace(raw) == "" {
		return models.MerchantMappingEntry{}, false
	}
	candidate := r.normalize(strings.TrimSpace(raw))
	for _, e := range r.entries {
		if r.matches(candidate, e.key) {
			return e.entry, true
		}
	}
	return models.MerchantMappingEntry{}, false
}

// Apply resolves raw and returns the assignment to submit. On a miss the
// defaults are used and raw is kept as the display name.
func (r *Resolver) Apply(raw string) Assignment {
	entry, ok := r.Resolve(raw)
	if !ok {
		r.logger.Debug("No merchant mapping, using defaults",
			logging.F(logging.FieldMerchant, raw),
			logging.F(logging.FieldGenreID, r.opts.DefaultGenreID),
			logging.F(logging.FieldCategoryID, r.opts.DefaultCategoryID))
		return Assignment{
			Name:       raw,
			GenreID:    r.opts.DefaultGenreID,
			CategoryID: r.opts.DefaultCategoryID,
		}
	}

	a := Assignment{
		Name:       entry.DisplayName(raw),
		GenreID:    entry.GenreID,
		CategoryID: entry.CategoryID,
		MappingKey: entry.Key,
	}
	if a.GenreID == 0 {
		a.GenreID = r.opts.DefaultGenreID
	}
	if a.CategoryID == 0 {
		a.CategoryID = r.opts.DefaultCategoryID
	}

	r.logger.Debug("Merchant mapped",
		logging.F(logging.FieldMerchant, raw),
		logging.F(logging.FieldMappingKey, entry.Key),
		logging.F(logging.FieldGenreID, a.GenreID),
		logging.F(logging.FieldCategoryID, a.CategoryID))
	return a
}
