// Package sync runs one registration pass over recent payment notifications
package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/anapay2zaim/cmd/root"
	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/container"
	"fjacquet/anapay2zaim/internal/dateutils"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/validation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// Days overrides mail.lookback_days when positive
	Days int
	// DryRun resolves payments without submitting or recording them
	DryRun bool
	// ReportPath receives the per-message outcome (.csv or .json)
	ReportPath string
)

// Cmd represents the sync command
var Cmd = &cobra.Command{
	Use:   "sync",
	Short: "Register recent ANA Pay payments in Zaim",
	Long: `Search the mailbox for ANA Pay notifications received in the lookback window,
register every payment that is not in the ledger yet and print a summary.`,
	Args: cobra.NoArgs,
	RunE: syncFunc,
}

func init() {
	Cmd.Flags().IntVarP(&Days, "days", "d", 0, "Lookback window in days (default: mail.lookback_days)")
	Cmd.Flags().BoolVarP(&DryRun, "dry-run", "n", false, "Resolve payments without submitting them")
	Cmd.Flags().StringVarP(&ReportPath, "report", "r", "", "Write a per-message report (.csv or .json)")
}

// Options are the settings of one sync invocation.
type Options struct {
	Days       int
	DryRun     bool
	ReportPath string
	// RunID tags every log line of the run; empty generates one.
	RunID string
	// Now returns the current time; nil uses time.Now.
	Now func() time.Time
}

func syncFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Run(ctx, c, Options{
		Days:       Days,
		DryRun:     DryRun,
		ReportPath: ReportPath,
	}, cmd.OutOrStdout())
}

// Run performs one registration pass and prints the summary to out.
// The summary and report are produced even when the run aborts.
func Run(ctx context.Context, c *container.Container, opts Options, out io.Writer) error {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	days := opts.Days
	if days <= 0 {
		days = c.GetConfig().Mail.LookbackDays
	}

	if opts.ReportPath != "" {
		if err := validation.IsValidReportPath(opts.ReportPath); err != nil {
			return err
		}
	}

	logger := c.GetLogger().WithField(logging.FieldRunID, runID)

	coord, err := c.NewCoordinator(container.RunOptions{DryRun: opts.DryRun, Logger: logger})
	if err != nil {
		return err
	}

	since := dateutils.LookbackStart(now(), days, c.GetLocation())
	logger.Info("Starting registration run",
		logging.F(logging.FieldSince, dateutils.ToISODate(since, c.GetLocation())),
		logging.F("dry_run", opts.DryRun))

	result, runErr := coord.Run(ctx, since)

	fmt.Fprintln(out, "Processing Summary:")
	fmt.Fprintf(out, "Processed: %d emails\n", result.Processed)
	fmt.Fprintf(out, "Registered: %d transactions\n", result.Registered)
	fmt.Fprintf(out, "Errors: %d transactions\n", result.Errors)
	result.LogSummary(logger)

	if opts.ReportPath != "" {
		if err := c.GetReportGenerator().WriteFile(opts.ReportPath, runID, result); err != nil {
			if runErr == nil {
				return err
			}
			logger.WithError(err).Error("Failed to write run report")
		}
	}

	switch {
	case runErr == nil:
	case apperrors.IsFatal(runErr):
		logger.WithError(runErr).Error("Registration run aborted")
	default:
		// Cancellation; everything registered so far is in the ledger.
		logger.WithError(runErr).Warn("Registration run interrupted")
	}
	return runErr
}
