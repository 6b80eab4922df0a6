// Package container provides dependency injection for the anapay2zaim application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
//
// Offline components (mapping table, resolver, extractor, report generator)
// are built eagerly. Components that need credentials or touch the network are
// built on demand so that commands such as resolve work without them.
package container

import (
	"fmt"
	"time"

	"fjacquet/anapay2zaim/internal/config"
	"fjacquet/anapay2zaim/internal/coordinator"
	"fjacquet/anapay2zaim/internal/extractor"
	"fjacquet/anapay2zaim/internal/ledger"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/mailstore"
	"fjacquet/anapay2zaim/internal/report"
	"fjacquet/anapay2zaim/internal/resolver"
	"fjacquet/anapay2zaim/internal/store"
	"fjacquet/anapay2zaim/internal/validation"
	"fjacquet/anapay2zaim/internal/zaim"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation: all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	location  *time.Location
	resolver  *resolver.Resolver
	extractor *extractor.Extractor
	reporter  *report.Generator

	// dial overrides how IMAP sessions are opened; nil uses the real client.
	dial mailstore.Dialer
}

// Option customizes a Container at creation time.
type Option func(*Container)

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithDialer replaces the IMAP dialer.
func WithDialer(dial mailstore.Dialer) Option {
	return func(c *Container) {
		c.dial = dial
	}
}

// NewContainer creates and wires the offline dependencies.
// The merchant mapping table is loaded here; a missing file yields an empty
// table, a malformed one is an error.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = cfg.NewLogger()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.Extraction.TimeZone, err)
	}
	c.location = loc

	mappings := store.NewMappingStore(cfg.Mapping.File, c.logger)
	c.resolver, err = resolver.NewFromSource(mappings, resolver.Options{
		MatchMode:         cfg.Mapping.MatchMode,
		CaseSensitive:     cfg.Mapping.CaseSensitive,
		DefaultGenreID:    cfg.Mapping.DefaultGenreID,
		DefaultCategoryID: cfg.Mapping.DefaultCategoryID,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant mappings: %w", err)
	}

	c.extractor = extractor.New(extractor.Options{
		SenderDomain:   cfg.Mail.SenderDomain,
		SubjectMarkers: cfg.Mail.SubjectMarkers,
		Location:       loc,
		Logger:         c.logger,
	})

	c.reporter = report.NewGenerator(c.logger)
	c.reporter.SetDelimiter(cfg.ReportDelimiter())

	c.logger.Debug("Container initialized",
		logging.F("mappings_count", c.resolver.Len()),
		logging.F("match_mode", cfg.Mapping.MatchMode))

	return c, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLocation returns the zone used for transaction times and payment dates.
func (c *Container) GetLocation() *time.Location {
	return c.location
}

// GetResolver returns the merchant resolver built from the mapping table.
func (c *Container) GetResolver() *resolver.Resolver {
	return c.resolver
}

// GetExtractor returns the notification extractor.
func (c *Container) GetExtractor() *extractor.Extractor {
	return c.extractor
}

// GetReportGenerator returns the run report generator.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.reporter
}

// NewMailSource builds the IMAP source. Mail credentials are required.
func (c *Container) NewMailSource() (*mailstore.IMAPSource, error) {
	if err := c.config.RequireMailCredentials(); err != nil {
		return nil, err
	}
	m := c.config.Mail
	return mailstore.NewIMAPSource(mailstore.Options{
		Host:     m.Host,
		Port:     m.Port,
		SSL:      m.SSL,
		Username: m.Username,
		Password: m.Password,
		Mailbox:  m.Mailbox,
		Timeout:  seconds(m.TimeoutSeconds),
		Logger:   c.logger,
		Dial:     c.dial,
	}), nil
}

// NewZaimClient builds a signed API client from the consumer credentials and
// the stored access tokens.
func (c *Container) NewZaimClient() (*zaim.Client, error) {
	if err := c.config.RequireZaimCredentials(); err != nil {
		return nil, err
	}
	tokens, err := zaim.LoadTokens(c.config.Zaim.TokenFile)
	if err != nil {
		return nil, err
	}
	if err := validation.IsPrivateFile(c.config.Zaim.TokenFile); err != nil {
		c.logger.Warn("Token file is readable by other users",
			logging.F(logging.FieldFile, c.config.Zaim.TokenFile),
			logging.F(logging.FieldError, err.Error()))
	}
	z := c.config.Zaim
	return zaim.NewClient(zaim.Options{
		ConsumerKey:       z.ConsumerKey,
		ConsumerSecret:    z.ConsumerSecret,
		Tokens:            tokens,
		BaseURL:           z.APIBaseURL,
		Timeout:           seconds(z.TimeoutSeconds),
		RequestsPerMinute: z.RequestsPerMinute,
		Logger:            c.logger,
	})
}

// NewAuthorizer builds the OAuth flow used by the auth command.
func (c *Container) NewAuthorizer() (*zaim.Authorizer, error) {
	if err := c.config.RequireZaimCredentials(); err != nil {
		return nil, err
	}
	z := c.config.Zaim
	return zaim.NewAuthorizer(z.ConsumerKey, z.ConsumerSecret, z.APIBaseURL, z.AuthorizeURL)
}

// OpenLedger loads the processed-message ledger.
func (c *Container) OpenLedger() (*ledger.Ledger, error) {
	return ledger.Open(c.config.Ledger.File, c.logger)
}

// RunOptions are the per-invocation settings of a sync run.
type RunOptions struct {
	DryRun bool
	// Logger overrides the container logger, typically to carry a run id.
	Logger logging.Logger
}

// NewCoordinator wires a full registration pipeline. A dry run needs no
// ledger-service credentials and never submits.
func (c *Container) NewCoordinator(opts RunOptions) (*coordinator.Coordinator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = c.logger
	}

	source, err := c.NewMailSource()
	if err != nil {
		return nil, err
	}

	var submitter coordinator.PaymentSubmitter
	if !opts.DryRun {
		client, err := c.NewZaimClient()
		if err != nil {
			return nil, err
		}
		submitter = client
	}

	processed, err := c.OpenLedger()
	if err != nil {
		return nil, err
	}
	logger.Debug("Ledger loaded",
		logging.F(logging.FieldFile, processed.Path()),
		logging.F(logging.FieldCount, processed.Len()))

	return coordinator.New(source, submitter, c.extractor, c.resolver, processed, coordinator.Options{
		FromAddress:   c.config.Mail.FromAddress,
		CommentPrefix: c.config.Zaim.CommentPrefix,
		FromAccountID: c.config.FromAccount(),
		Location:      c.location,
		DryRun:        opts.DryRun,
	}, logger), nil
}

// Close performs cleanup of container resources.
func (c *Container) Close() error {
	c.logger.Debug("Container closed")
	return nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
