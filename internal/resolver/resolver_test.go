package resolver

import (
	"errors"
	"testing"

	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"
	"fjacquet/anapay2zaim/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []models.MerchantMappingEntry {
	return []models.MerchantMappingEntry{
		{Key: "ANA", Merchant: "ANA", GenreID: 10501, CategoryID: 105},
		{Key: "ANA DOMESTIC", Merchant: "ANA国内線", GenreID: 10502, CategoryID: 105},
		{Key: "PAYPAY", Merchant: "PayPay", GenreID: 10101, CategoryID: 101},
		{Key: "  ", Merchant: "ignored"},
	}
}

func TestResolve(t *testing.T) {
	r := New(testEntries(), Options{CaseSensitive: true}, &logging.MockLogger{})

	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantOK  bool
	}{
		{"longest key wins", "ANA DOMESTIC SHOP", "ANA DOMESTIC", true},
		{"shorter prefix", "ANA FESTA", "ANA", true},
		{"partial prefix", "PAYPAY*DUMMY", "PAYPAY", true},
		{"exact key", "PAYPAY", "PAYPAY", true},
		{"surrounding whitespace", "  PAYPAY*X  ", "PAYPAY", true},
		{"no match", "LAWSON", "", false},
		{"not a prefix", "MY ANA SHOP", "", false},
		{"case sensitive miss", "paypay*dummy", "", false},
		{"empty merchant", "", "", false},
		{"blank merchant", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}

func TestResolve_EmptyMerchantWithCatchAllTable(t *testing.T) {
	r := New([]models.MerchantMappingEntry{{Key: "A"}}, Options{MatchMode: MatchSubstring}, nil)

	_, ok := r.Resolve("")
	assert.False(t, ok)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	r := New(testEntries(), Options{CaseSensitive: false}, nil)

	got, ok := r.Resolve("paypay*dummy")
	require.True(t, ok)
	assert.Equal(t, "PAYPAY", got.Key)

	got, ok = r.Resolve("Ana Domestic 羽田")
	require.True(t, ok)
	assert.Equal(t, "ANA DOMESTIC", got.Key)
}

func TestResolve_FullWidthMerchant(t *testing.T) {
	tests := []struct {
		name          string
		caseSensitive bool
		raw           string
		wantKey       string
	}{
		{"full-width letters", true, "ＰＡＹＰＡＹ＊ＤＵＭＭＹ", "PAYPAY"},
		{"full-width lower case folded", false, "ｐａｙｐａｙ＊ｄｕｍｍｙ", "PAYPAY"},
		{"ideographic space", true, "ＡＮＡ　ＤＯＭＥＳＴＩＣ", "ANA DOMESTIC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testEntries(), Options{CaseSensitive: tt.caseSensitive}, nil)
			got, ok := r.Resolve(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}

func TestResolve_FullWidthKey(t *testing.T) {
	entries := []models.MerchantMappingEntry{{Key: "ｾﾌﾞﾝ", GenreID: 1}}
	r := New(entries, Options{CaseSensitive: true}, nil)

	got, ok := r.Resolve("セブン-イレブン羽田")
	require.True(t, ok)
	assert.Equal(t, 1, got.GenreID)
}

func TestResolve_SubstringMode(t *testing.T) {
	r := New(testEntries(), Options{MatchMode: MatchSubstring, CaseSensitive: true}, nil)

	got, ok := r.Resolve("MY ANA SHOP")
	require.True(t, ok)
	assert.Equal(t, "ANA", got.Key)

	got, ok = r.Resolve("VIA ANA DOMESTIC")
	require.True(t, ok)
	assert.Equal(t, "ANA DOMESTIC", got.Key)
}

func TestResolve_TieBrokenLexically(t *testing.T) {
	entries := []models.MerchantMappingEntry{
		{Key: "SHOP", GenreID: 2},
		{Key: "ABCD", GenreID: 1},
	}
	r := New(entries, Options{MatchMode: MatchSubstring, CaseSensitive: true}, nil)

	got, ok := r.Resolve("ABCD SHOP")
	require.True(t, ok)
	assert.Equal(t, "ABCD", got.Key)
}

func TestResolve_MultibyteKeyLength(t *testing.T) {
	entries := []models.MerchantMappingEntry{
		{Key: "ローソン", GenreID: 1},
		{Key: "ローソン羽田", GenreID: 2},
	}
	r := New(entries, Options{CaseSensitive: true}, nil)

	got, ok := r.Resolve("ローソン羽田空港店")
	require.True(t, ok)
	assert.Equal(t, 2, got.GenreID)
}

func TestApply(t *testing.T) {
	logger := &logging.MockLogger{}
	r := New(testEntries(), Options{CaseSensitive: true}, logger)

	hit := r.Apply("PAYPAY*DUMMY")
	assert.Equal(t, Assignment{Name: "PayPay", GenreID: 10101, CategoryID: 101, MappingKey: "PAYPAY"}, hit)
	assert.True(t, hit.Matched())

	miss := r.Apply("Test Merchant")
	assert.Equal(t, Assignment{Name: "Test Merchant", GenreID: models.DefaultGenreID, CategoryID: models.DefaultCategoryID}, miss)
	assert.False(t, miss.Matched())
	assert.True(t, logger.HasEntry("DEBUG", "No merchant mapping, using defaults"))
}

func TestApply_EntryWithoutNameOrIDs(t *testing.T) {
	r := New([]models.MerchantMappingEntry{{Key: "LAWSON"}}, Options{
		CaseSensitive:     true,
		DefaultGenreID:    1,
		DefaultCategoryID: 2,
	}, nil)

	got := r.Apply("LAWSON 羽田")
	assert.Equal(t, "LAWSON 羽田", got.Name)
	assert.Equal(t, 1, got.GenreID)
	assert.Equal(t, 2, got.CategoryID)
	assert.Equal(t, "LAWSON", got.MappingKey)
}

func TestNewFromSource(t *testing.T) {
	src := &store.MockMappingStore{Mappings: testEntries()}
	r, err := NewFromSource(src, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	src.LoadMappingsError = errors.New("unreadable")
	_, err = NewFromSource(src, Options{}, nil)
	assert.EqualError(t, err, "unreadable")
}
