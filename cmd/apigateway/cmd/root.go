// cmd/apigateway/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "apigateway",
	Short: "API gateway for the engagement services",
	Long: `apigateway authenticates bearer tokens against a remote key set, enforces
per-route user type policies and forwards validated requests to internal services.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (settings may also be set as APIGW_* environment variables)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(settingsCmd)
}
