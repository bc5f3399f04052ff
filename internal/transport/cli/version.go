package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/carekb/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("carekb version %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
