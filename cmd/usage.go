package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mcpjungle/toolbridge/internal/provider"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage <name>",
	Short: "Get usage information for a MCP tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetToolUsage,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runGetToolUsage(cmd *cobra.Command, args []string) error {
	tools, err := apiClient.ListTools()
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	t, ok := provider.FindTool(tools, args[0])
	if !ok {
		return fmt.Errorf("tool '%s' not found", args[0])
	}

	cmd.Println(t.ID)
	cmd.Println(t.Description)

	props := t.InputSchema.Properties()
	if len(props) == 0 {
		cmd.Println("This tool does not require any input parameters.")
		return nil
	}

	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	slices.Sort(names)

	required := t.InputSchema.Required()

	cmd.Println()
	cmd.Println("Input Parameters:")
	for _, k := range names {
		requiredOrOptional := "optional"
		if slices.Contains(required, k) {
			requiredOrOptional = "required"
		}

		boundary := strings.Repeat("=", len(k)+len(requiredOrOptional)+20)

		cmd.Println(boundary)
		cmd.Printf("%s (%s)\n", k, requiredOrOptional)

		j, err := json.MarshalIndent(props[k], "", "  ")
		if err != nil {
			// Simply print the raw object if we fail to marshal it
			cmd.Println(props[k])
		} else {
			cmd.Println(string(j))
		}
		cmd.Println(boundary)

		cmd.Println()
	}

	return nil
}
