package batch

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

type timelineRow struct {
	start, end int
	machine    string
	instance   string
	detail     string
}

// WriteReport renders the event timeline, the per-instance summary and the
// overall statistics of a run.
func WriteReport(w io.Writer, r Result) error {
	var rows []timelineRow
	for _, e := range r.Events {
		detail := e.Operation.String()
		if e.ToolChanged {
			detail += " [tool change]"
		}
		rows = append(rows, timelineRow{e.Start, e.End, e.Machine, e.InstanceID, detail})
		if pt := e.PassThrough; pt != nil {
			rows = append(rows, timelineRow{pt.Start, pt.End, pt.Machine, e.InstanceID,
				fmt.Sprintf("pass-through to %s", e.Machine)})
		}
	}
	slices.SortStableFunc(rows, func(a, b timelineRow) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.machine, b.machine)
	})

	timeline := newTable("Start", "End", "Machine", "Instance", "Operation")
	for _, row := range rows {
		timeline.Row(strconv.Itoa(row.start), strconv.Itoa(row.end), row.machine, row.instance, row.detail)
	}

	instances := newTable("Instance", "Product", "Due", "Completed", "Tasks", "Status", "Tardiness")
	for _, p := range r.Instances {
		completion := "-"
		if p.Status == InstanceCompleted || p.Status == InstanceLate {
			completion = strconv.Itoa(p.CompletionTime)
		}
		instances.Row(
			p.ID,
			p.ProductType,
			strconv.Itoa(p.DueDate),
			completion,
			fmt.Sprintf("%d/%d", p.CompletedTasks(), len(p.Tasks)),
			string(p.Status),
			strconv.Itoa(p.Tardiness()),
		)
	}

	s := Summarize(r)
	stats := newTable("Metric", "Value")
	stats.Row("Makespan (s)", strconv.Itoa(s.Makespan))
	stats.Row("Instances", strconv.Itoa(s.Total))
	stats.Row("Completed", strconv.Itoa(s.Completed))
	stats.Row("Late", strconv.Itoa(s.Late))
	stats.Row("Incomplete", strconv.Itoa(s.Incomplete))
	stats.Row("No plan", strconv.Itoa(s.NoPlan))
	stats.Row("Weighted tardiness", strconv.FormatFloat(s.WeightedTardiness, 'f', 1, 64))
	if r.Stalled {
		stats.Row("Stalled", "yes")
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Schedule"), timeline.String(),
		titleStyle.Render("Product instances"), instances.String(),
		titleStyle.Render("Statistics"), stats.String(),
	))
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}
