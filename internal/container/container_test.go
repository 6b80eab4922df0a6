package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/config"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/mailstore"
	"fjacquet/anapay2zaim/internal/zaim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Log: config.LogConfig{Level: "info", Format: "text"},
		Mail: config.MailConfig{
			Port:           993,
			SSL:            true,
			Mailbox:        "INBOX",
			FromAddress:    "payinfo@121.ana.co.jp",
			SenderDomain:   "ana.co.jp",
			SubjectMarkers: []string{"ANA Pay"},
			LookbackDays:   7,
			TimeoutSeconds: 5,
		},
		Zaim: config.ZaimConfig{
			TokenFile:     filepath.Join(dir, "zaim_tokens.json"),
			CommentPrefix: "ANA Pay transaction: ",
		},
		Mapping: config.MappingConfig{
			File:              filepath.Join(dir, "merchant_mappings.yaml"),
			MatchMode:         config.MatchPrefix,
			CaseSensitive:     true,
			DefaultGenreID:    19905,
			DefaultCategoryID: 199,
		},
		Ledger:     config.LedgerConfig{File: filepath.Join(dir, "processed_emails.txt")},
		Extraction: config.ExtractionConfig{TimeZone: "Asia/Tokyo"},
	}
}

func withMailCredentials(cfg *config.Config) {
	cfg.Mail.Host = "imap.example.com"
	cfg.Mail.Username = "me@example.com"
	cfg.Mail.Password = "secret"
}

func TestNewContainer_NilConfig(t *testing.T) {
	c, err := NewContainer(nil)
	assert.Nil(t, c)
	assert.EqualError(t, err, "configuration cannot be nil")
}

func TestNewContainer_WiresOfflineComponents(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Mapping.File, []byte(`mappings:
  "ANA":
    merchant: "ANA"
    genre_id: 10101
    category_id: 101
  "ANA DOMESTIC":
    merchant: "ANA Domestic"
    genre_id: 10102
    category_id: 101
`), 0o644))

	logger := &logging.MockLogger{}
	c, err := NewContainer(cfg, WithLogger(logger))
	require.NoError(t, err)

	assert.Same(t, cfg, c.GetConfig())
	assert.Same(t, logger, c.GetLogger())
	assert.Equal(t, "Asia/Tokyo", c.GetLocation().String())
	assert.NotNil(t, c.GetExtractor())
	assert.NotNil(t, c.GetReportGenerator())

	assert.Equal(t, 2, c.GetResolver().Len())
	got := c.GetResolver().Apply("ANA DOMESTIC FLIGHT")
	assert.Equal(t, "ANA Domestic", got.Name)
	assert.Equal(t, 10102, got.GenreID)

	assert.True(t, c.GetExtractor().IsRelevant("payinfo@121.ana.co.jp", "hello"))
	assert.NoError(t, c.Close())
}

func TestNewContainer_MissingMappingsUsesDefaults(t *testing.T) {
	cfg := testConfig(t)
	logger := &logging.MockLogger{}

	c, err := NewContainer(cfg, WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, 0, c.GetResolver().Len())
	got := c.GetResolver().Apply("SOMEWHERE")
	assert.Equal(t, "SOMEWHERE", got.Name)
	assert.Equal(t, 19905, got.GenreID)
	assert.Equal(t, 199, got.CategoryID)
	assert.True(t, logger.HasEntry("WARN", "Merchant mappings file not found, using defaults only"))
}

func TestNewContainer_MalformedMappings(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Mapping.File, []byte("mappings: [unclosed"), 0o644))

	_, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load merchant mappings")
}

func TestNewContainer_BadTimeZone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.TimeZone = "Nowhere/Atlantis"

	_, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere/Atlantis")
}

func TestNewMailSource_RequiresCredentials(t *testing.T) {
	c, err := NewContainer(testConfig(t), WithLogger(&logging.MockLogger{}))
	require.NoError(t, err)

	_, err = c.NewMailSource()
	var cfgErr *apperrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "mail.host", cfgErr.Setting)
}

func TestNewZaimClient(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
	require.NoError(t, err)

	t.Run("missing consumer credentials", func(t *testing.T) {
		_, err := c.NewZaimClient()
		var cfgErr *apperrors.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	cfg.Zaim.ConsumerKey = "key"
	cfg.Zaim.ConsumerSecret = "secret"

	t.Run("missing token file", func(t *testing.T) {
		_, err := c.NewZaimClient()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth")
	})

	t.Run("stored tokens", func(t *testing.T) {
		require.NoError(t, zaim.SaveTokens(cfg.Zaim.TokenFile, zaim.Tokens{AccessToken: "at", AccessTokenSecret: "ats"}))
		client, err := c.NewZaimClient()
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("token file readable by others", func(t *testing.T) {
		logger := &logging.MockLogger{}
		c, err := NewContainer(cfg, WithLogger(logger))
		require.NoError(t, err)
		require.NoError(t, os.Chmod(cfg.Zaim.TokenFile, 0o644))

		_, err = c.NewZaimClient()
		require.NoError(t, err)
		assert.True(t, logger.HasEntry("WARN", "Token file is readable by other users"))
	})
}

func TestNewAuthorizer(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
	require.NoError(t, err)

	_, err = c.NewAuthorizer()
	assert.Error(t, err)

	cfg.Zaim.ConsumerKey = "key"
	cfg.Zaim.ConsumerSecret = "secret"
	auth, err := c.NewAuthorizer()
	require.NoError(t, err)
	assert.NotNil(t, auth)
}

func TestOpenLedger(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Ledger.File, []byte("a@x\nb@x\n"), 0o644))

	c, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
	require.NoError(t, err)

	l, err := c.OpenLedger()
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains("a@x"))
}

func TestNewCoordinator_DryRunNeedsNoZaimCredentials(t *testing.T) {
	cfg := testConfig(t)
	withMailCredentials(cfg)

	var dialedAddr string
	dial := mailstore.Dialer(func(addr string, useTLS bool, timeout time.Duration) (mailstore.Session, error) {
		dialedAddr = addr
		assert.True(t, useTLS)
		assert.Equal(t, 5*time.Second, timeout)
		return nil, errors.New("refused")
	})

	c, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}), WithDialer(dial))
	require.NoError(t, err)

	coord, err := c.NewCoordinator(RunOptions{DryRun: true})
	require.NoError(t, err)

	_, err = coord.Run(context.Background(), time.Now())
	var mailErr *apperrors.MailStoreError
	require.True(t, errors.As(err, &mailErr))
	assert.Equal(t, "imap.example.com:993", dialedAddr)
}

func TestNewCoordinator_Errors(t *testing.T) {
	t.Run("mail credentials", func(t *testing.T) {
		c, err := NewContainer(testConfig(t), WithLogger(&logging.MockLogger{}))
		require.NoError(t, err)
		_, err = c.NewCoordinator(RunOptions{DryRun: true})
		assert.Error(t, err)
	})

	t.Run("zaim credentials", func(t *testing.T) {
		cfg := testConfig(t)
		withMailCredentials(cfg)
		c, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
		require.NoError(t, err)
		_, err = c.NewCoordinator(RunOptions{})
		var cfgErr *apperrors.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("unreadable ledger", func(t *testing.T) {
		cfg := testConfig(t)
		withMailCredentials(cfg)
		cfg.Ledger.File = t.TempDir()
		c, err := NewContainer(cfg, WithLogger(&logging.MockLogger{}))
		require.NoError(t, err)
		_, err = c.NewCoordinator(RunOptions{DryRun: true})
		var ledgerErr *apperrors.LedgerIOError
		assert.True(t, errors.As(err, &ledgerErr))
	})
}
