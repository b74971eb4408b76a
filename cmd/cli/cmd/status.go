package cmd

import (
	"fmt"
	"time"

	"mesplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [request_id]",
	Short: "Get status of an online request",
	Long:  `Retrieve a request's current state (processing, completed, failed), its error if any, and every machine reservation committed for it.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMESClient(viper.GetString("url"), viper.GetString("token"))
		req, err := client.GetRequest(args[0])
		if err != nil {
			printAPIError(cmd, "Status", err)
			return
		}
		printStatus(cmd, *req)
	},
}

func printStatus(cmd *cobra.Command, req api.RequestStatusResponse) {
	// Header with status icon
	icon := statusIcon(req.Status)
	cmd.Printf("%s %sRequest Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, req.RequestID)
	cmd.Printf("%sCorrelation:%s %s\n", colorDim, colorReset, req.CorrelationID)
	cmd.Printf("%sProduct:%s     P%d\n", colorDim, colorReset, req.ProductType)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(req.Status))

	if req.Error != nil {
		cmd.Printf("%sError:%s       %s%s%s\n", colorDim, colorReset, colorRed, *req.Error, colorReset)
	}

	cmd.Printf("%sCreated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&req.CreatedAt))
	if req.CompletedAt != nil {
		duration := req.CompletedAt.Sub(req.CreatedAt)
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(req.CompletedAt),
			colorCyan, formatDuration(duration), colorReset)
	} else {
		cmd.Printf("%sFinished:%s    -\n", colorDim, colorReset)
	}

	if len(req.Reservations) == 0 {
		return
	}
	cmd.Printf("\n%sReservations%s\n", colorBold, colorReset)
	for _, r := range req.Reservations {
		line := fmt.Sprintf("  %d. %s -> %s (Tool: %s) on %s [%d-%d]",
			r.Step, r.Operation.From, r.Operation.To, r.Operation.Tool, r.Machine, r.Start, r.End)
		if r.ToolChanged {
			line += " tool change"
		}
		if pt := r.PassThrough; pt != nil {
			line += fmt.Sprintf(", via %s [%d-%d]", pt.Machine, pt.Start, pt.End)
		}
		cmd.Println(line)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "completed":
		return colorGreen + "✓" + colorReset
	case "failed":
		return colorRed + "✗" + colorReset
	case "processing":
		return colorYellow + "⏳" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "completed":
		return icon + " " + colorGreen + status + colorReset
	case "failed":
		return icon + " " + colorRed + status + colorReset
	case "processing":
		return icon + " " + colorYellow + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
