package coordinator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
)

// Options carries the command-line selections into a run.
type Options struct {
	RoutePath  string
	SuitePath  string
	Parallel   bool
	OutputPath string
	ReportType string
}

// ValidateReportType checks the -reportType flag value.
func ValidateReportType(reportType string) error {
	switch reportType {
	case "json", "md":
		return nil
	default:
		return fmt.Errorf("unsupported report type '%s' (supported: json, md)", reportType)
	}
}

// ValidateInputFile checks that the given path exists and is a regular file.
func ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access '%s': %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("'%s' is a directory, expected a file", path)
	}
	return nil
}

// Run executes the selected route or suite to completion, prints and writes
// reports, and returns the process exit code. A SIGINT/SIGTERM cancels the
// run cooperatively; results collected so far are still reported.
func Run(opts Options) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := make([]*model.TestRun, 0)
	sourceFile := ""

	if opts.RoutePath != "" {
		if err := ValidateInputFile(opts.RoutePath); err != nil {
			logger.Logger.Error("Invalid input file", "error", err)
			return 1
		}
		sourceFile = opts.RoutePath

		coord := NewTestRunCoordinator(TestRunOptions{})
		run, err := coord.StartTestRun(ctx, opts.RoutePath)
		if err != nil {
			logger.Logger.Error("Failed to start test run", "error", err)
			return 1
		}
		coord.WaitTestRun(run.ID)
		results = append(results, run)
	}

	if opts.SuitePath != "" {
		if err := ValidateInputFile(opts.SuitePath); err != nil {
			logger.Logger.Error("Invalid input file", "error", err)
			return 1
		}
		sourceFile = opts.SuitePath

		suites := NewTestSuiteCoordinator(nil)
		suiteRun, err := suites.StartSuiteRun(ctx, opts.SuitePath, opts.Parallel)
		if err != nil {
			logger.Logger.Error("Failed to start suite run", "error", err)
			return 1
		}
		suites.WaitSuiteRun(suiteRun.ID)
		results = append(results, suiteRun.Tests...)
	}

	if err := GenerateReports(results, opts.ReportType, opts.OutputPath, sourceFile); err != nil {
		logger.Logger.Error("Failed to generate reports", "error", err)
		return 1
	}

	if HasFailures(results) {
		return 1
	}
	return 0
}
