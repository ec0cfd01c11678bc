package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/analysis"
	"edgeuncertainty/pkg/results"
)

// console renders progress and result tables unless quiet.
type console struct {
	quiet bool

	bar     *pterm.ProgressbarPrinter
	stage   string
	current int
}

func newConsole(quiet bool) *console {
	return &console{quiet: quiet}
}

// progress implements analysis.ProgressCallback, starting a new bar for
// each stage.
func (c *console) progress(completed, total int, message string) {
	if c.quiet {
		return
	}
	if c.bar == nil || message != c.stage {
		c.stop()
		bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(message).Start()
		if err != nil {
			return
		}
		c.bar, c.stage, c.current = bar, message, 0
	}
	if completed > c.current {
		c.bar.Add(completed - c.current)
		c.current = completed
	}
}

func (c *console) stop() {
	if c.bar != nil {
		c.bar.Stop()
		c.bar = nil
	}
}

// failures lists cases that could not be scored or encoded.
func (c *console) failures(report *analysis.Report) {
	if c.quiet || report == nil || len(report.ScoreFailures)+len(report.EncodeFailures) == 0 {
		return
	}

	pterm.Println()
	pterm.DefaultSection.WithLevel(2).Println("Failed Cases")

	tableData := pterm.TableData{{"Case", "Stage", "Error"}}
	for _, f := range report.ScoreFailures {
		tableData = append(tableData, []string{f.CaseID, string(f.Stage), f.Err.Error()})
	}
	for _, f := range report.EncodeFailures {
		tableData = append(tableData, []string{f.CaseID, fmt.Sprintf("%s %s/%s", f.Stage, f.Metric, f.Group), f.Err.Error()})
	}

	pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithData(tableData).
		Render()
}

// summary prints run statistics and the top cases per metric.
func (c *console) summary(info results.RunInfo, report *analysis.Report) {
	if c.quiet {
		return
	}

	pterm.Println()
	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgGreen)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("Analysis Completed")
	pterm.Println()

	stats := fmt.Sprintf("Duration: %s\n", pterm.Green(info.Elapsed().Round(time.Millisecond).String()))
	stats += fmt.Sprintf("Cases processed: %s\n", pterm.Green(fmt.Sprintf("%d", report.Succeeded())))
	if report.Failed() > 0 {
		stats += fmt.Sprintf("Cases failed: %s\n", pterm.Red(fmt.Sprintf("%d", report.Failed())))
	}
	if n := results.BinaryCount(report.Metrics); n > 0 {
		stats += fmt.Sprintf("Binary masks: %s\n", pterm.Yellow(fmt.Sprintf("%d", n)))
	}
	stats += fmt.Sprintf("Masks written: %s", pterm.Cyan(fmt.Sprintf("%d", len(report.Encoded))))
	if info.RunID != "" {
		stats += fmt.Sprintf("\nRun ID: %s", info.RunID)
	}

	pterm.DefaultBox.
		WithTitle("Run Statistics").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen)).
		Println(stats)

	for _, m := range models.AllMetrics {
		t := report.Ranking.Table(m)
		if t == nil {
			continue
		}
		pterm.Println()
		pterm.DefaultSection.WithLevel(2).Printfln("Most difficult by %s", m)

		tableData := pterm.TableData{{"Rank", "Case", "Value"}}
		n := results.ReportTopCases
		if n > t.Len() {
			n = t.Len()
		}
		for _, row := range t.Rows[:n] {
			tableData = append(tableData, []string{
				fmt.Sprintf("%d", row.Rank),
				row.Case.CaseID,
				fmt.Sprintf("%.6f", row.Value),
			})
		}
		pterm.DefaultTable.
			WithHasHeader().
			WithBoxed().
			WithData(tableData).
			Render()
	}

	c.failures(report)
	pterm.Println()
}
