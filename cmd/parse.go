package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/mcpjungle/toolbridge/internal/config"
	"github.com/mcpjungle/toolbridge/internal/tooluse"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	parseCmdToolsFile  string
	parseCmdStartIndex int
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Detect the tool calls embedded in a model response",
	Long: "Parse a model response for <tool_use> blocks against a tool catalog file, without contacting a server.\n\n" +
		"The catalog is a JSON or YAML list of tools (or an object with a 'tools' list) with at least a name,\n" +
		"and optionally an id, server_name and input_schema. The detected invocations are printed as JSON.\n" +
		"Blocks naming a tool that is not in the catalog are reported on stderr.",
	Args: cobra.ExactArgs(1),
	RunE: runParse,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "6",
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseCmdToolsFile, "tools", "t", "", "tool catalog file")
	parseCmd.Flags().IntVar(&parseCmdStartIndex, "start", 0, "index of the first detected invocation")
	_ = parseCmd.MarkFlagRequired("tools")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	tools, err := config.LoadTools(appFs, parseCmdToolsFile)
	if err != nil {
		return fmt.Errorf("failed to load tool catalog: %w", err)
	}

	text, err := afero.ReadFile(appFs, args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	invocations := tooluse.Parse(string(text), tools, parseCmdStartIndex, func(msg string) {
		cmd.PrintErrln("warning: " + msg)
	})

	out, err := json.MarshalIndent(invocations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode invocations: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
