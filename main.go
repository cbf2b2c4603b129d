package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Mathih13/botfarm/coordinator"
	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/templates"
	"github.com/Mathih13/botfarm/version"
)

const (
	AppName = "botfarm"
)

func main() {
	routePath := flag.String("f", "", "Path to the route configuration file (YAML)")
	suitePath := flag.String("s", "", "Path to the suite configuration file (YAML)")
	parallel := flag.Bool("parallel", false, "Run suite tests in parallel where dependencies allow")
	outputPath := flag.String("o", "", "Path to the output report file")
	logPath := flag.String("l", "", "Path to the log file (if not set, logs to stdout)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	showVersion := flag.Bool("v", false, "Show version and exit")
	reportType := flag.String("reportType", "json", "Report type (json, md)")

	flag.Parse()

	fmt.Printf("Version: %s\nCommit: %s\nBuildDate: %s\n",
		version.Version, version.Commit, version.BuildDate)
	if *showVersion {
		return
	}

	// Initialize Logger
	logWriter, logFile, err := logger.SetupLogWriter(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	logger.SetupLogger(logWriter, *verbose)
	templates.NewTemplateEngine()
	// Validate input
	if *routePath == "" && *suitePath == "" {
		fmt.Fprintf(os.Stderr, "Error: -f <route-file> or -s <suite-file> is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// Validate report type
	if err := coordinator.ValidateReportType(*reportType); err != nil {
		logger.Logger.Error("Invalid report type", "error", err)
		os.Exit(1)
	}

	logger.Logger.Info("Starting application",
		"app", AppName,
		"route", *routePath,
		"suite", *suitePath,
		"parallel", *parallel,
		"output", *outputPath,
		"logfile", *logPath,
		"verbose", *verbose)

	os.Exit(coordinator.Run(coordinator.Options{
		RoutePath:  *routePath,
		SuitePath:  *suitePath,
		Parallel:   *parallel,
		OutputPath: *outputPath,
		ReportType: *reportType,
	}))
}
