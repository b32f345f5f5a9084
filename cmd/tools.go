package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmdProvider string

var listToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to models",
	Long: "List the enabled tools of all active MCP servers.\n\n" +
		"With --provider, the tools are printed as JSON in the tool registration format of that model provider,\n" +
		"ready to be passed to its API. Supported providers are openai-responses, openai-chat, openai-compatible,\n" +
		"anthropic and gemini.",
	Args: cobra.NoArgs,
	RunE: runListTools,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

var enableToolsCmd = &cobra.Command{
	Use:   "enable <server or server__tool>",
	Short: "Enable a tool or all tools of a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetToolsEnabled(cmd, args[0], true)
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "4",
	},
}

var disableToolsCmd = &cobra.Command{
	Use:   "disable <server or server__tool>",
	Short: "Disable a tool or all tools of a server",
	Long:  "Disabled tools are not offered to models and calls to them are not detected.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetToolsEnabled(cmd, args[0], false)
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "5",
	},
}

func init() {
	listToolsCmd.Flags().StringVar(&toolsCmdProvider, "provider", "", "print the tools in this model provider's format")

	rootCmd.AddCommand(listToolsCmd)
	rootCmd.AddCommand(enableToolsCmd)
	rootCmd.AddCommand(disableToolsCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	if toolsCmdProvider != "" {
		raw, err := apiClient.ListProviderTools(toolsCmdProvider)
		if err != nil {
			return fmt.Errorf("failed to list tools for provider '%s': %w", toolsCmdProvider, err)
		}
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return fmt.Errorf("failed to format tools: %w", err)
		}
		cmd.Println(out.String())
		return nil
	}

	tools, err := apiClient.ListTools()
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	if len(tools) == 0 {
		cmd.Println("There are no tools available")
		return nil
	}
	for i, t := range tools {
		cmd.Printf("%d. %s\n", i+1, t.ID)
		if t.Description != "" {
			cmd.Println("   " + t.Description)
		}
	}
	cmd.Println()
	cmd.Println("Run 'toolbridge usage <name>' to see a tool's input parameters.")
	return nil
}

func runSetToolsEnabled(cmd *cobra.Command, entity string, enabled bool) error {
	action, call := "disable", apiClient.DisableTools
	if enabled {
		action, call = "enable", apiClient.EnableTools
	}

	changed, err := call(entity)
	if err != nil {
		return fmt.Errorf("failed to %s '%s': %w", action, entity, err)
	}
	for _, name := range changed {
		cmd.Printf("%sd %s\n", action, name)
	}
	return nil
}
