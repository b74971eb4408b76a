package cmd

import (
	"mesplane/pkg/api"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an online production request",
	Long: `Ask the controller to route one product through the plant.

The controller answers immediately and reserves machines in the background;
the outcome is posted to its callback URL and can be read with 'status'.
Request and correlation ids default to fresh UUIDs.

Example:
  mesctl submit --type 5
  mesctl submit --type 9 --request-id req-42 --correlation-id order-7`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		productType, _ := flags.GetInt("type")
		requestID, _ := flags.GetString("request-id")
		correlationID, _ := flags.GetString("correlation-id")

		if productType <= 0 {
			cmd.Println("Error: --type is required")
			return
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		client := NewMESClient(viper.GetString("url"), viper.GetString("token"))
		result, err := client.ProcessStep(api.ProcessStepRequest{
			RequestID:         &requestID,
			CorrelationID:     &correlationID,
			TargetProductType: &productType,
		})
		if err != nil {
			printAPIError(cmd, "Submit", err)
			return
		}

		cmd.Printf("✓ %s\nRequest ID: %s\nCorrelation ID: %s\n", result.Message, requestID, correlationID)
	},
}

func init() {
	flags := submitCmd.Flags()
	flags.Int("type", 0, "Target product type, e.g. 5 for P5 (required)")
	flags.String("request-id", "", "Request id (default: random UUID)")
	flags.String("correlation-id", "", "Correlation id echoed in the callback (default: random UUID)")

	rootCmd.AddCommand(submitCmd)
}
