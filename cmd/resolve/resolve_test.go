package resolve_test

import (
	"bytes"
	"strings"
	"testing"

	"fjacquet/anapay2zaim/cmd/resolve"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"
	"fjacquet/anapay2zaim/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCommand_Metadata(t *testing.T) {
	assert.True(t, strings.HasPrefix(resolve.Cmd.Use, "resolve"))
	assert.Contains(t, resolve.Cmd.Short, "mapping table")
	assert.NotNil(t, resolve.Cmd.RunE)
	assert.Error(t, resolve.Cmd.Args(resolve.Cmd, nil))
	assert.NoError(t, resolve.Cmd.Args(resolve.Cmd, []string{"ANA"}))
}

func TestPrint(t *testing.T) {
	r := resolver.New([]models.MerchantMappingEntry{
		{Key: "ANA", Merchant: "ANA", GenreID: 10101, CategoryID: 101},
		{Key: "ANA DOMESTIC", Merchant: "ANA Domestic", GenreID: 10102, CategoryID: 101},
	}, resolver.Options{CaseSensitive: true, DefaultGenreID: 19905, DefaultCategoryID: 199}, nil)

	var out bytes.Buffer
	logger := &logging.MockLogger{}
	resolve.Print(&out, r, []string{"ANA DOMESTIC FLIGHT", "LAWSON"}, logger)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ANA DOMESTIC FLIGHT\tANA Domestic\tgenre=10102\tcategory=101\tkey=ANA DOMESTIC", lines[0])
	assert.Equal(t, "LAWSON\tLAWSON\tgenre=19905\tcategory=199\tkey=(default)", lines[1])
	assert.Len(t, logger.GetEntriesByLevel("DEBUG"), 2)
}
