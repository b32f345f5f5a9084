package cmd

import (
	"fmt"
	"net/http"
	"os"
	"slices"
	"strconv"

	"github.com/mcpjungle/toolbridge/client"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

const (
	RegistryURLEnvVar  = "TOOLBRIDGE_REGISTRY_URL"
	RegistryURLDefault = "http://127.0.0.1:" + BindPortDefault

	AccessTokenEnvVar = "TOOLBRIDGE_ACCESS_TOKEN"
)

const asciiArt = `
  _              _ _          _     _
 | |_ ___   ___ | | |__  _ __(_) __| | __ _  ___
 | __/ _ \ / _ \| | '_ \| '__| |/ _' |/ _' |/ _ \
 | || (_) | (_) | | |_) | |  | | (_| | (_| |  __/
  \__\___/ \___/|_|_.__/|_|  |_|\__,_|\__, |\___|
                                      |___/
`

var (
	registryServerURL string
	apiClient         *client.Client

	// appFs is the filesystem config and input files are read from.
	appFs afero.Fs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "Bridge LLM tool calls to MCP servers",
	Long: "toolbridge connects language model chat clients to the tools of MCP servers.\n\n" +
		"It offers the tools of registered MCP servers to a model in the model provider's own format,\n" +
		"detects the tool calls in the model's response, asks for the user's confirmation where required,\n" +
		"executes the calls and returns the results as messages the model provider accepts.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		apiClient = client.NewClient(getRegistryURL(), os.Getenv(AccessTokenEnvVar), http.DefaultClient)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&registryServerURL,
		"registry",
		"",
		fmt.Sprintf("base URL of the toolbridge server (overrides env var %s, default %s)", RegistryURLEnvVar, RegistryURLDefault),
	)
	rootCmd.SetHelpFunc(groupedHelp)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// getRegistryURL returns the URL of the toolbridge server the CLI talks to.
// precedence: command line flag > environment variable > default
func getRegistryURL() string {
	u := registryServerURL
	if u == "" {
		u = os.Getenv(RegistryURLEnvVar)
	}
	if u == "" {
		u = RegistryURLDefault
	}
	return u
}

// groupedHelp prints the root help with subcommands listed by their "group" annotation
// and sorted by their "order" annotation. Subcommands get cobra's default help.
func groupedHelp(cmd *cobra.Command, args []string) {
	if cmd != rootCmd {
		cmd.Println(cmd.Long)
		cmd.Println()
		cmd.Print(cmd.UsageString())
		return
	}

	cmd.Println(cmd.Long)
	cmd.Println()
	cmd.Printf("Usage:\n  %s [command]\n", cmd.Name())

	groups := []struct {
		group subCommandGroup
		title string
	}{
		{subCommandGroupBasic, "Basic Commands"},
		{subCommandGroupAdvanced, "Advanced Commands"},
	}
	for _, g := range groups {
		cmds := commandsInGroup(cmd, g.group)
		if len(cmds) == 0 {
			continue
		}
		cmd.Printf("\n%s:\n", g.title)
		for _, c := range cmds {
			cmd.Printf("  %-12s %s\n", c.Name(), c.Short)
		}
	}

	cmd.Println()
	cmd.Println("Flags:")
	cmd.Print(cmd.Flags().FlagUsages())
	cmd.Printf("\nUse \"%s [command] --help\" for more information about a command.\n", cmd.Name())
}

func commandsInGroup(cmd *cobra.Command, group subCommandGroup) []*cobra.Command {
	var cmds []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Annotations["group"] == string(group) && c.IsAvailableCommand() {
			cmds = append(cmds, c)
		}
	}
	slices.SortStableFunc(cmds, func(a, b *cobra.Command) int {
		return commandOrder(a) - commandOrder(b)
	})
	return cmds
}

// commandOrder returns the "order" annotation of c. Commands without one sort last.
func commandOrder(c *cobra.Command) int {
	order, err := strconv.Atoi(c.Annotations["order"])
	if err != nil {
		return 1 << 20
	}
	return order
}
