package formatter

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/runstore"
)

const dateLayout = "2006-01-02"

// FormatResult renders one AlgorithmResult as a styled schedule table
// followed by any warnings and rollout decisions.
func FormatResult(result domain.AlgorithmResult) string {
	var b strings.Builder

	b.WriteString(Header("Schedule"))
	b.WriteString("\n")

	headers := []string{"TASK", "START", "END", "DAYS", "RESOURCES", "LATE"}
	rows := make([][]string, 0, len(result.ScheduledTasks))
	for _, st := range result.ScheduledTasks {
		late := Dim("no")
		if st.Late {
			late = StyleRed.Render("yes")
		}
		rows = append(rows, []string{
			Bold(st.TaskID),
			st.StartDate.Format(dateLayout),
			st.EndDate.Format(dateLayout),
			fmt.Sprintf("%.1f", st.DurationDays),
			strings.Join(st.Resources, ","),
			late,
		})
	}
	b.WriteString(RenderTable(headers, rows))

	if len(result.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Warnings"))
		b.WriteString("\n")
		for _, w := range result.Warnings {
			line := fmt.Sprintf("%s %s: %s", WarningLabel(string(w.Code)), Bold(w.TaskID), w.Message)
			if w.LatenessDays > 0 {
				line += Dim(fmt.Sprintf(" (%.1f days late)", w.LatenessDays))
			}
			b.WriteString(line + "\n")
		}
	}

	if len(result.RolloutDecisions) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Rollout decisions"))
		b.WriteString("\n")
		drows := make([][]string, 0, len(result.RolloutDecisions))
		for _, d := range result.RolloutDecisions {
			drows = append(drows, []string{
				d.TaskID, d.Decision, d.CompetingID,
				fmt.Sprintf("%.2f", d.ScoreA), fmt.Sprintf("%.2f", d.ScoreB),
			})
		}
		b.WriteString(RenderTable([]string{"TASK", "DECISION", "VS", "SCORE A", "SCORE B"}, drows))
	}

	return b.String()
}

// FormatHistory renders a run-history listing, most recent first.
func FormatHistory(runs []runstore.RunSummary) string {
	headers := []string{"RUN ID", "GENERATED", "ALGORITHM", "BUNDLE"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			Dim(humanize.Time(r.GeneratedAt)),
			r.Algorithm,
			r.BundlePath,
		})
	}
	return RenderTable(headers, rows)
}
