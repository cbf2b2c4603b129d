package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
)

// GenerateReports prints the console report and, when outputPath is set,
// writes the selected report format to disk.
func GenerateReports(results []*model.TestRun, reportType, outputPath, sourceFile string) error {
	if len(results) == 0 {
		return fmt.Errorf("no test results to generate report")
	}

	reporter := model.NewReportGenerator()
	reporter.SourceFile = sourceFile

	fmt.Println("\n" + strings.Repeat("=", 80))
	reporter.GenerateConsoleReport(results)
	PrintTestSummary(results)

	if outputPath == "" {
		return nil
	}

	reportContent := ""
	switch reportType {
	case "json":
		reportContent = reporter.GenerateJSONReport(results)
	case "md":
		reportContent = reporter.GenerateMarkdownReport(results)
	default:
		return fmt.Errorf("unknown report type '%s'", reportType)
	}

	if reportContent == "" {
		return fmt.Errorf("generated report is empty")
	}

	outputDir := filepath.Dir(outputPath)
	if outputDir != "." && outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	err := os.WriteFile(outputPath, []byte(reportContent), logger.FilePermission)
	if err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to verify output file: %w", err)
	}

	logger.Logger.Info("Report generated successfully", "path", outputPath, "size", info.Size())
	return nil
}

// PrintTestSummary prints the suite-wide roll-up after all routes finish.
func PrintTestSummary(results []*model.TestRun) {
	if len(results) == 0 {
		logger.Logger.Info("No tests were run")
		return
	}

	totalTests := len(results)
	passedTests := 0
	failedTests := 0
	totalBots := 0
	botsPassed := 0
	var totalDuration int64

	for _, run := range results {
		if run.Passed() {
			passedTests++
		} else {
			failedTests++
		}
		totalBots += len(run.Bots)
		botsPassed += run.BotsPassed
		totalDuration += run.EndTime.Sub(run.StartTime).Milliseconds()
	}

	passRate := float64(passedTests) / float64(totalTests) * 100
	failRate := float64(failedTests) / float64(totalTests) * 100
	avgDuration := totalDuration / int64(totalTests)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("[Summary] Test Execution Summary")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("  Total Tests:    %d\n", totalTests)
	fmt.Printf("  Passed:         %d (%.1f%%)\n", passedTests, passRate)
	fmt.Printf("  Failed:         %d (%.1f%%)\n", failedTests, failRate)
	fmt.Printf("  Bots Passed:    %d/%d\n", botsPassed, totalBots)
	fmt.Printf("  Total Duration: %dms (avg: %dms per test)\n", totalDuration, avgDuration)
	fmt.Println(strings.Repeat("=", 80))

	logger.Logger.Info("Test execution summary",
		"total_tests", totalTests,
		"passed", passedTests,
		"failed", failedTests,
		"pass_rate", fmt.Sprintf("%.1f%%", passRate),
		"bots_passed", botsPassed,
		"bots_total", totalBots,
		"total_duration_ms", totalDuration,
		"avg_duration_ms", avgDuration)
}

// HasFailures reports whether any run in the set did not pass.
func HasFailures(results []*model.TestRun) bool {
	for _, run := range results {
		if !run.Passed() {
			return true
		}
	}
	return false
}
