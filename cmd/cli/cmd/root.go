package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mesctl",
	Short: "Mesctl is a command line tool for the mesplane manufacturing scheduler",
	Long: `mesctl is the command-line interface for mesplane.

mesplane routes products through a plant of tool-carrying machines. It plans
the cheapest chain of operations from a raw material to a product and reserves
machines for each step, either for a batch of orders at once or one request
at a time as requests arrive.

Common workflows:

  Preview the plan for a product:
    mesctl plan 6

  Schedule a batch of orders offline and print the report:
    mesctl schedule --orders orders.yaml

  Submit an online request to the controller:
    mesctl submit --type 5

  Check a request:
    mesctl status <request-id>

  Inspect the live machine pool:
    mesctl machines

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    MESPLANE_URL      Controller endpoint (default: http://localhost:5001)
    MESPLANE_TOKEN    Bearer token, when the controller requires one`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".mesctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".mesctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "MESPLANE_VARNAME"
	viper.SetEnvPrefix("MESPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mesctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:5001", "mesplane controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
