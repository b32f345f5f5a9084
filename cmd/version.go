package cmd

import (
	"github.com/mcpjungle/toolbridge/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the CLI and the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("CLI version: %s\n", version.GetVersion())

		meta, err := apiClient.GetMetadata()
		if err != nil {
			cmd.Printf("Server version: unknown (%v)\n", err)
			return nil
		}
		cmd.Printf("Server version: %s\n", meta.Version)
		return nil
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "8",
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
