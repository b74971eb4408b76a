package cmd

import (
	"errors"
	"strconv"

	"mesplane/internal/plant"
	"mesplane/internal/routing"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [product_type]",
	Short: "Show the shortest manufacturing plan for a product",
	Long: `Compute the cheapest chain of operations from any raw material to the
given product type. The plan is computed locally from the plant file and
nothing is reserved.

Example:
  mesctl plan 6
  mesctl plan 9 --plant plant.yaml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		productType, err := strconv.Atoi(args[0])
		if err != nil {
			cmd.Printf("Error: invalid product type %q\n", args[0])
			return
		}

		plantFile, _ := cmd.Flags().GetString("plant")
		p, err := plant.Load(plantFile)
		if err != nil {
			cmd.Printf("Failed to load plant: %v\n", err)
			return
		}

		plan, err := p.PlanFor(productType)
		if errors.Is(err, routing.ErrRouteNotFound) {
			cmd.Printf("No manufacturing plan found for %s\n", routing.ProductNode(productType))
			return
		}
		if err != nil {
			cmd.Printf("Planning failed: %v\n", err)
			return
		}

		cmd.Printf("%sPlan for %s%s\n", colorBold, plan.Target, colorReset)
		cmd.Println("──────────────────────────────")
		for i, op := range plan.Operations {
			cmd.Printf("  %d. %s, %ds\n", i+1, op, op.Duration)
		}
		cmd.Printf("%sTotal:%s %ds\n", colorDim, colorReset, plan.Total())
	},
}

func init() {
	planCmd.Flags().String("plant", "", "Plant file (default: embedded reference plant)")
	rootCmd.AddCommand(planCmd)
}
