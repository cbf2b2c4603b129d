package model

import (
	"fmt"
	"time"

	"github.com/Mathih13/botfarm/version"
	"github.com/bytedance/sonic"
	"github.com/life4/genesis/slices"
)

// ReportGenerator renders completed test runs into the supported report
// formats.
type ReportGenerator struct {
	SourceFile string
}

func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{}
}

// GenerateConsoleReport prints per-run, per-bot results to stdout with
// ANSI colouring.
func (rg *ReportGenerator) GenerateConsoleReport(results []*TestRun) {
	for _, run := range results {
		fmt.Printf("\n%s (%s)\n", run.RouteName, run.CurrentStatus())

		for _, bot := range run.Bots {
			duration := float64(bot.DurationMs) / 1000.0
			if bot.Success {
				fmt.Printf("  ✓ %s [%s] (%.2fs)\n", bot.BotName, bot.Class, duration)
			} else {
				fmt.Printf("  ✗ %s [%s] (%.2fs)\n", bot.BotName, bot.Class, duration)
			}

			for _, tr := range bot.Tasks {
				symbol := "✓"
				color := "\033[32m" // green
				switch tr.Outcome {
				case OutcomeFailed:
					symbol = "✗"
					color = "\033[31m" // red
				case OutcomeSkipped:
					symbol = "-"
					color = "\033[33m" // yellow
				}
				fmt.Printf("    %s%s\033[0m %s (%dms)\n", color, symbol, tr.Name, tr.DurationMs)
				if tr.Error != "" {
					fmt.Printf("      • %s\n", tr.Error)
				}
			}
			fmt.Println()
		}
	}

	passed := countPassed(results)
	failed := len(results) - passed

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("Total: %d | \033[32mPassed: %d\033[0m | \033[31mFailed: %d\033[0m\n",
		len(results), passed, failed)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}

func (rg *ReportGenerator) GenerateMarkdownReport(results []*TestRun) string {
	var md string

	md += "# Test Results\n\n"
	md += fmt.Sprintf("**Botfarm Version:** %s\n", version.Version)
	md += fmt.Sprintf("**Generated:** %s\n\n", time.Now().Format(time.RFC3339))

	passed := countPassed(results)
	failed := len(results) - passed

	md += "## Summary\n\n"
	md += fmt.Sprintf("- **Total:** %d\n", len(results))
	md += fmt.Sprintf("- **Passed:** %d\n", passed)
	md += fmt.Sprintf("- **Failed:** %d\n\n", failed)

	md += "## Test Overview\n\n"
	md += "| Route | Status | Bots Passed | Duration |\n"
	md += "|-------|--------|-------------|----------|\n"
	for _, run := range results {
		status := "✅ PASS"
		if !run.Passed() {
			status = "❌ FAIL"
		}
		md += fmt.Sprintf("| %s | %s | %d/%d | %.2fs |\n",
			run.RouteName,
			status,
			run.BotsPassed,
			run.Harness.BotCount,
			run.EndTime.Sub(run.StartTime).Seconds())
	}
	md += "\n---\n\n"

	md += "## Detailed Test Results\n\n"
	for _, run := range results {
		md += fmt.Sprintf("### %s\n\n", run.RouteName)

		for _, bot := range run.Bots {
			status := "✅"
			if !bot.Success {
				status = "❌"
			}
			md += fmt.Sprintf("#### %s %s \"%s\" [%s]\n\n", status, bot.BotName, bot.CharacterName, bot.Class)
			md += fmt.Sprintf("- **Duration:** %.2fs\n", float64(bot.DurationMs)/1000.0)
			if bot.TimedOut {
				md += "- **Timed out**\n"
			}

			if len(bot.Tasks) > 0 {
				md += "- **Tasks:**\n"
				for _, tr := range bot.Tasks {
					taskStatus := "✅"
					switch tr.Outcome {
					case OutcomeFailed:
						taskStatus = "❌"
					case OutcomeSkipped:
						taskStatus = "⏭️"
					}
					md += fmt.Sprintf("  - %s `%s`", taskStatus, tr.Name)
					if tr.Error != "" {
						md += fmt.Sprintf(": %s", tr.Error)
					}
					md += "\n"
				}
			}

			if len(bot.Log) > 0 {
				md += "- **Log:**\n"
				for _, line := range bot.Log {
					md += fmt.Sprintf("  - %s\n", line)
				}
			}

			md += "\n"
		}
	}

	return md
}

func (rg *ReportGenerator) GenerateJSONReport(results []*TestRun) string {
	reportData := map[string]interface{}{
		"botfarm_version": version.Version,
		"generated_at":    time.Now().Format(time.RFC3339),
		"source_file":     rg.SourceFile,
		"summary": map[string]interface{}{
			"total":  len(results),
			"passed": countPassed(results),
			"failed": len(results) - countPassed(results),
		},
		"detailed_results": results,
	}

	report, err := sonic.MarshalIndent(reportData, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(report)
}

func countPassed(results []*TestRun) int {
	return slices.CountBy(results, func(r *TestRun) bool { return r.Passed() })
}
