// cmd/apigateway/cmd/settings.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"apigateway/internal/config"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "List the configuration settings and their environment variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENV\tTYPE\tDEFAULT\tDESCRIPTION")
		for _, s := range config.Settings {
			desc := s.Short
			if s.Required {
				desc += " (required)"
			}
			fmt.Fprintf(w, "%s_%s\t%s\t%v\t%s\n", config.EnvPrefix, s.Env, s.Type, s.Default, desc)
		}
		return w.Flush()
	},
}
