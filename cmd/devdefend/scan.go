package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/devdefend"
	"github.com/zero-day-ai/devdefend/finding"
)

// errGateFailed makes the process exit with status 1.
var errGateFailed = errors.New("gate failed")

type scanOptions struct {
	project   string
	threshold int
	format    string
	output    string
	language  string
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [path...]",
		Short: "Scan files or directories and gate on finding severity",
		Long: `Scan classifies every source file under the given paths, attaches a
remediation suggestion to each finding and writes a report.

The command exits with status 1 when the gate fails, that is when any file
has a finding at or above the threshold.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "project name recorded on every session (default: current directory name)")
	cmd.Flags().IntVar(&opts.threshold, "threshold", 0, "severity at or above which the gate fails (default: fail_on_severity)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(finding.FormatJSON), "report format: json, sarif or csv")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.language, "language", "", "treat every file as this language instead of detecting it")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, opts *scanOptions) error {
	format, err := finding.ParseExportFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	project := opts.project
	if project == "" {
		if wd, err := os.Getwd(); err == nil {
			project = filepath.Base(wd)
		}
	}

	files, err := collectFiles(args, project, opts.language, cfg.LanguageAllowed)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no source files found", "paths", args)
		return nil
	}

	engine, err := devdefend.New(
		devdefend.WithConfig(cfg),
		devdefend.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	res, err := engine.ScanBatch(ctx, project, files, opts.threshold, "")
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer devdefend.CloseWithLog(f, logger, "report file")
		out = f
	}
	if err := finding.Export(out, format, res.Reports()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Info("scan complete",
		"project", project,
		"files", len(res.Sessions),
		"findings", res.Gate.TotalCount,
		"high_critical", res.Stats.HighCritical,
		"threshold", res.Gate.Threshold,
		"failed", res.Gate.Failed,
		"tokens", engine.TokenUsage().TotalTokens,
	)

	if res.Gate.Failed {
		for _, fs := range res.Gate.Files {
			if int(fs.MaxSeverity) >= res.Gate.Threshold {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d findings, max severity %d\n", fs.File, fs.Count, fs.MaxSeverity)
			}
		}
		return errGateFailed
	}
	return nil
}
