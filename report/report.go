// Package report renders suite runs for humans: a console summary table and
// a Markdown document. It consumes the runner's records without interpreting
// them further.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/fuchsia74/apiconform/runner"
)

// Summary aggregates one suite run.
type Summary struct {
	Suite    string
	Provider string
	Endpoint string
	Total    int
	Passed   int
	Failed   int
	// Unsupported counts failed cases that produced unsupported-parameter
	// evidence.
	Unsupported int
	Err         error
}

// Summarize tallies one suite run.
func Summarize(run runner.SuiteRun) Summary {
	s := Summary{
		Suite:    run.Suite.Name,
		Provider: run.Suite.Provider,
		Endpoint: run.Suite.Endpoint,
		Total:    len(run.Records),
		Err:      run.Err,
	}
	for _, rec := range run.Records {
		if rec.Status == runner.StatusPass {
			s.Passed++
			continue
		}
		s.Failed++
		if rec.Unsupported != nil {
			s.Unsupported++
		}
	}
	return s
}

// RenderConsole prints a per-case table and totals for each suite run.
func RenderConsole(runs []runner.SuiteRun) {
	RenderConsoleTo(os.Stdout, runs)
}

func RenderConsoleTo(w io.Writer, runs []runner.SuiteRun) {
	for _, run := range runs {
		summary := Summarize(run)

		fmt.Fprintf(w, "\n=== Suite %s · %s %s ===\n\n", summary.Suite, summary.Provider, summary.Endpoint)
		if run.Err != nil {
			fmt.Fprintf(w, "suite did not run: %v\n", run.Err)
			continue
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Case", "Result", "Stage", "Status", "Latency", "Reason"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, rec := range run.Records {
			table.Append([]string{
				rec.Case,
				strings.ToUpper(string(rec.Status)),
				string(rec.FailStage),
				statusCell(rec.Request.StatusCode),
				formatLatency(rec.Request.Latency),
				clamp(rec.Reason, 60),
			})
		}
		table.Render()

		fmt.Fprintf(w, "\nTotals | Cases: %d | Passed: %d | Failed: %d | Unsupported params: %d\n",
			summary.Total, summary.Passed, summary.Failed, summary.Unsupported)
	}
	fmt.Fprintln(w)
}

// RenderMarkdown writes the full run as a Markdown document: summary table,
// per-case matrix, failure details, and gathered unsupported-parameter
// evidence.
func RenderMarkdown(w io.Writer, runs []runner.SuiteRun) error {
	fmt.Fprintf(w, "# API conformance report\n\n")
	fmt.Fprintf(w, "Generated %s\n\n", time.Now().UTC().Format(time.RFC3339))

	fmt.Fprintf(w, "| Suite | Provider | Endpoint | Cases | Passed | Failed |\n")
	fmt.Fprintf(w, "|---|---|---|---:|---:|---:|\n")
	for _, run := range runs {
		s := Summarize(run)
		fmt.Fprintf(w, "| %s | %s | %s | %d | %d | %d |\n",
			s.Suite, s.Provider, s.Endpoint, s.Total, s.Passed, s.Failed)
	}
	fmt.Fprintln(w)

	for _, run := range runs {
		fmt.Fprintf(w, "## %s\n\n", run.Suite.Name)
		if run.Err != nil {
			fmt.Fprintf(w, "Suite did not run: `%v`\n\n", run.Err)
			continue
		}

		fmt.Fprintf(w, "| Case | Result | Stage | HTTP | Latency |\n")
		fmt.Fprintf(w, "|---|---|---|---|---|\n")
		for _, rec := range run.Records {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
				rec.Case,
				strings.ToUpper(string(rec.Status)),
				nonEmpty(string(rec.FailStage)),
				statusCell(rec.Request.StatusCode),
				formatLatency(rec.Request.Latency))
		}
		fmt.Fprintln(w)

		wroteFailures := false
		for _, rec := range run.Records {
			if rec.Status == runner.StatusPass {
				continue
			}
			if !wroteFailures {
				fmt.Fprintf(w, "### Failures\n\n")
				wroteFailures = true
			}
			fmt.Fprintf(w, "- **%s** (`%s`, stage %s): %s\n",
				rec.Case, rec.ReasonCode, rec.FailStage, clamp(rec.Reason, 300))
			if rec.Validation != nil && !rec.Validation.Success {
				for _, field := range rec.Validation.Fields {
					if field.Status == "VALID" || field.Status == "UNEXPECTED" {
						continue
					}
					fmt.Fprintf(w, "  - `%s` %s: expected %s, got %s\n",
						field.Path, field.Status, field.Expected, field.Actual)
				}
			}
		}
		if wroteFailures {
			fmt.Fprintln(w)
		}

		wroteEvidence := false
		for _, rec := range run.Records {
			if rec.Unsupported == nil {
				continue
			}
			if !wroteEvidence {
				fmt.Fprintf(w, "### Unsupported parameters\n\n")
				wroteEvidence = true
			}
			fmt.Fprintf(w, "- `%s = %v`: %s\n",
				rec.Unsupported.Name, rec.Unsupported.Value, clamp(rec.Unsupported.Reason, 300))
		}
		if wroteEvidence {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func statusCell(code int) string {
	if code == 0 {
		return "—"
	}
	return fmt.Sprintf("%d", code)
}

func formatLatency(d time.Duration) string {
	if d == 0 {
		return "—"
	}
	return d.Truncate(time.Millisecond).String()
}

func nonEmpty(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func clamp(text string, limit int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
