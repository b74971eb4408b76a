package cmd

import (
	"encoding/json"

	"mesplane/internal/batch"
	"mesplane/internal/logger"
	"mesplane/internal/plant"
	"mesplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a batch of orders",
	Long: `Expand every order line into product instances and schedule all of their
operations on a fresh machine pool, earliest due date first.

By default the run happens locally against the plant file. With --remote the
orders are sent to the controller, which schedules them on its own plant.

Example:
  mesctl schedule --orders orders.yaml
  mesctl schedule --orders orders.yaml --json
  mesctl schedule --orders orders.yaml --remote`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		ordersFile, _ := flags.GetString("orders")
		plantFile, _ := flags.GetString("plant")
		asJSON, _ := flags.GetBool("json")
		remote, _ := flags.GetBool("remote")

		if ordersFile == "" {
			cmd.Println("Error: --orders is required")
			return
		}
		orders, err := plant.LoadOrders(ordersFile)
		if err != nil {
			cmd.Printf("Failed to load orders: %v\n", err)
			return
		}

		if remote {
			client := NewMESClient(viper.GetString("url"), viper.GetString("token"))
			resp, err := client.CreateSchedule(api.ScheduleRequest{Orders: ordersToAPI(orders)})
			if err != nil {
				printAPIError(cmd, "Schedule", err)
				return
			}
			printJSON(cmd, resp)
			return
		}

		p, err := plant.Load(plantFile)
		if err != nil {
			cmd.Printf("Failed to load plant: %v\n", err)
			return
		}
		pool, err := p.NewPool()
		if err != nil {
			cmd.Printf("Failed to build machine pool: %v\n", err)
			return
		}

		log := logger.NewWithLevel(cmd.ErrOrStderr(), "warn")
		result := batch.New(p.Network, p.RawMaterials, pool, batch.WithLogger(log)).Schedule(orders)

		if asJSON {
			printJSON(cmd, batch.ToAPI(result))
			return
		}
		if err := batch.WriteReport(cmd.OutOrStdout(), result); err != nil {
			cmd.Printf("Failed to write report: %v\n", err)
		}
	},
}

func ordersToAPI(orders []batch.Order) []api.Order {
	out := make([]api.Order, 0, len(orders))
	for _, o := range orders {
		order := api.Order{OrderID: o.ID, Client: o.Client, NIF: o.NIF}
		for _, l := range o.Lines {
			order.Lines = append(order.Lines, api.OrderLine{
				ProductType: l.ProductType,
				Quantity:    l.Quantity,
				DueDate:     l.DueDate,
				Penalty:     l.Penalty,
			})
		}
		out = append(out, order)
	}
	return out
}

func printJSON(cmd *cobra.Command, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		cmd.Printf("Failed to encode result: %v\n", err)
		return
	}
	cmd.Println(string(data))
}

func init() {
	flags := scheduleCmd.Flags()
	flags.String("orders", "", "Orders file (required)")
	flags.String("plant", "", "Plant file (default: embedded reference plant)")
	flags.Bool("json", false, "Print the result as JSON instead of tables")
	flags.Bool("remote", false, "Schedule on the controller instead of locally")

	rootCmd.AddCommand(scheduleCmd)
}
