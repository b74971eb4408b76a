package cmd

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "Show the controller's live machine pool",
	Long:  `List every machine with its role, partner, tool magazine, mounted tool and the simulated time it is busy until.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMESClient(viper.GetString("url"), viper.GetString("token"))
		machines, err := client.ListMachines()
		if err != nil {
			printAPIError(cmd, "List machines", err)
			return
		}

		t := table.New().Headers("Machine", "Role", "Partner", "Tools", "Mounted", "Busy until")
		for _, m := range machines {
			partner, mounted := m.Partner, m.CurrentTool
			if partner == "" {
				partner = "-"
			}
			if mounted == "" {
				mounted = "-"
			}
			t.Row(m.Name, m.Role, partner, strings.Join(m.Tools, ","), mounted, strconv.Itoa(m.BusyUntil))
		}
		cmd.Println(t.Render())
	},
}

func init() {
	rootCmd.AddCommand(machinesCmd)
}
