package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcpjungle/toolbridge/internal/config"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/spf13/cobra"
)

var registerCmdConfigFile string

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register MCP servers with toolbridge",
	Long: "Register MCP servers from a JSON or YAML file.\n\n" +
		"The file holds a single server, a list of servers or an object with a 'servers' list, eg:\n\n" +
		"  name: calculator\n" +
		"  transport: stdio\n" +
		"  command: npx\n" +
		"  args: [\"-y\", \"calculator-mcp\"]\n\n" +
		"Set 'inactive: true' to store a server without connecting to it, and list the tools\n" +
		"that always need the user's confirmation in 'disabled_auto_approve_tools'.",
	Args: cobra.NoArgs,
	RunE: runRegister,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

var listServersCmd = &cobra.Command{
	Use:   "servers",
	Short: "List registered MCP servers",
	Args:  cobra.NoArgs,
	RunE:  runListServers,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister <name>",
	Short: "Remove a MCP server and its tools from toolbridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeregisterServer(args[0]); err != nil {
			return fmt.Errorf("failed to deregister server '%s': %w", args[0], err)
		}
		cmd.Printf("Server %s deregistered\n", args[0])
		return nil
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "1",
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <name>",
	Short: "Connect to an inactive MCP server and make its tools available",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := apiClient.ActivateServer(args[0])
		if err != nil {
			return fmt.Errorf("failed to activate server '%s': %w", args[0], err)
		}
		cmd.Printf("Server %s is active\n", s.Name)
		return nil
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "2",
	},
}

var autoApproveCmdDisabled []string

var autoApproveCmd = &cobra.Command{
	Use:   "auto-approve <server>",
	Short: "Set the tools of a MCP server that need the user's confirmation",
	Long: "Replace the list of tools of a server that are never auto-approved.\n" +
		"Calls to these tools wait until the user confirms or denies them.\n" +
		"Run without --confirm to let all tools of the server run without confirmation.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := apiClient.SetAutoApprove(args[0], autoApproveCmdDisabled)
		if err != nil {
			return fmt.Errorf("failed to set auto-approve for server '%s': %w", args[0], err)
		}
		if len(s.DisabledAutoApproveTools) == 0 {
			cmd.Printf("All tools of %s are auto-approved\n", s.Name)
			return nil
		}
		cmd.Printf("Tools of %s that need confirmation: %s\n", s.Name, strings.Join(s.DisabledAutoApproveTools, ", "))
		return nil
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "3",
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerCmdConfigFile, "conf", "c", "", "JSON or YAML file describing the MCP server(s)")
	_ = registerCmd.MarkFlagRequired("conf")

	autoApproveCmd.Flags().StringSliceVar(
		&autoApproveCmdDisabled,
		"confirm",
		nil,
		"comma-separated tool names that need confirmation",
	)

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(listServersCmd)
	rootCmd.AddCommand(deregisterCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(autoApproveCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	inputs, err := config.LoadServers(appFs, registerCmdConfigFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", registerCmdConfigFile, err)
	}

	var errs []error
	for i := range inputs {
		s, err := apiClient.RegisterServer(&inputs[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to register server '%s': %w", inputs[i].Name, err))
			continue
		}
		cmd.Printf("Server %s registered successfully!\n", s.Name)
		if !s.Active {
			cmd.Printf("It is inactive, run 'toolbridge activate %s' to connect to it\n", s.Name)
		}
	}
	return errors.Join(errs...)
}

func runListServers(cmd *cobra.Command, args []string) error {
	servers, err := apiClient.ListServers()
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}
	if len(servers) == 0 {
		cmd.Println("There are no MCP servers registered")
		return nil
	}

	for i, s := range servers {
		cmd.Printf("%d. %s (%s)%s\n", i+1, s.Name, s.Transport, inactiveSuffix(s))
		if s.Description != "" {
			cmd.Println("   " + s.Description)
		}
		if target := serverTarget(s); target != "" {
			cmd.Println("   " + target)
		}
		if len(s.DisabledAutoApproveTools) > 0 {
			cmd.Println("   needs confirmation: " + strings.Join(s.DisabledAutoApproveTools, ", "))
		}
	}
	return nil
}

func inactiveSuffix(s types.McpServer) string {
	if s.Active {
		return ""
	}
	return " [inactive]"
}

func serverTarget(s types.McpServer) string {
	if s.URL != "" {
		return s.URL
	}
	return strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
}
