package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/logger"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/orchestrator"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newScanCmd(root *rootOptions) *cobra.Command {
	var targetsFile string

	cmd := &cobra.Command{
		Use:   "scan [domain]",
		Short: "Scan one domain, or every domain in --file, and print the JSON report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := resolveTargets(args, targetsFile, root.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reports, err := runScans(ctx, root.cfg, targets)
			if len(reports) > 0 {
				if writeErr := writeReports(cmd.OutOrStdout(), reports, targetsFile != ""); writeErr != nil {
					return writeErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&targetsFile, "file", "f", "", "File with one domain per line")
	return cmd
}

// resolveTargets validates the domain argument or reads the targets file.
// A malformed domain fails before any network activity.
func resolveTargets(args []string, targetsFile string, cfg *config.GlobalConfig) ([]*urlhandler.Target, error) {
	switch {
	case len(args) == 1 && targetsFile != "":
		return nil, common.NewValidationError("file", targetsFile, "pass either a domain or --file, not both")
	case len(args) == 1:
		target, err := urlhandler.NewTarget(args[0])
		if err != nil {
			return nil, err
		}
		return []*urlhandler.Target{target}, nil
	case targetsFile != "":
		bootstrap, err := logger.New(cfg.LogConfig)
		if err != nil {
			return nil, common.WrapError(err, "failed to initialize logger")
		}
		defer bootstrap.Close()
		return urlhandler.ReadTargetsFromFile(targetsFile, *bootstrap.GetZerolog())
	default:
		return nil, common.NewValidationError("domain", "", "Domain is required")
	}
}

// runScans scans targets one after another. Each scan gets its own scan id,
// which names its log directory. Failed scans are logged and reported in the
// returned error; the remaining targets are still scanned.
func runScans(ctx context.Context, cfg *config.GlobalConfig, targets []*urlhandler.Target) ([]*models.ScanReport, error) {
	var (
		reports []*models.ScanReport
		errs    []error
	)

	for _, target := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		scanID := uuid.NewString()
		scanLogger, err := logger.NewWithScanID(cfg.LogConfig, scanID)
		if err != nil {
			return reports, common.WrapError(err, "failed to initialize logger")
		}
		log := *scanLogger.GetZerolog()

		a, err := newApp(cfg, log)
		if err != nil {
			_ = scanLogger.Close()
			return reports, err
		}

		report, err := a.orchestrator.Scan(orchestrator.ContextWithScanID(ctx, scanID), target)
		a.close()
		_ = scanLogger.Close()

		if err != nil {
			errs = append(errs, common.WrapErrorf(err, "scan of %s failed", target.Domain))
			continue
		}
		reports = append(reports, report)
	}

	return reports, common.CombineErrors(errs)
}

// writeReports prints a single report as an object and a file run as an array
func writeReports(w io.Writer, reports []*models.ScanReport, asList bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if asList || len(reports) > 1 {
		return enc.Encode(reports)
	}
	return enc.Encode(reports[0])
}
