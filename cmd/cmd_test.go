package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mcpjungle/toolbridge/pkg/testhelpers"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand runs the root command with args against fs and returns what it printed.
func executeCommand(t *testing.T, fs afero.Fs, args ...string) (string, string, error) {
	t.Helper()

	origFs := appFs
	appFs = fs
	t.Cleanup(func() {
		appFs = origFs
		registryServerURL = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores the flags of c and its subcommands to their defaults.
// cobra keeps parsed flag values between executions of the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestCommandStructure(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		group subCommandGroup
		order string
	}{
		{startServerCmd, "start", subCommandGroupBasic, "1"},
		{registerCmd, "register", subCommandGroupBasic, "2"},
		{listServersCmd, "servers", subCommandGroupBasic, "3"},
		{listToolsCmd, "tools", subCommandGroupBasic, "4"},
		{usageCmd, "usage <name>", subCommandGroupBasic, "5"},
		{confirmCmd, "confirm <run> <invocation>", subCommandGroupBasic, "6"},
		{pendingCmd, "pending <run>", subCommandGroupBasic, "7"},
		{deregisterCmd, "deregister <name>", subCommandGroupAdvanced, "1"},
		{activateCmd, "activate <name>", subCommandGroupAdvanced, "2"},
		{autoApproveCmd, "auto-approve <server>", subCommandGroupAdvanced, "3"},
		{enableToolsCmd, "enable <server or server__tool>", subCommandGroupAdvanced, "4"},
		{disableToolsCmd, "disable <server or server__tool>", subCommandGroupAdvanced, "5"},
		{parseCmd, "parse <file>", subCommandGroupAdvanced, "6"},
		{callCmd, "call <file>", subCommandGroupAdvanced, "7"},
		{versionCmd, "version", subCommandGroupAdvanced, "8"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			testhelpers.AssertEqual(t, tt.use, tt.cmd.Use)
			testhelpers.AssertTrue(t, len(tt.cmd.Short) > 0, "Short description should not be empty")
			testhelpers.AssertNotNil(t, tt.cmd.RunE)
			testhelpers.AssertTrue(t, tt.cmd.Parent() == rootCmd, "command should be registered on the root command")

			testhelpers.TestCommandAnnotations(t, tt.cmd.Annotations, []testhelpers.CommandAnnotationTest{
				{Key: "group", Expected: string(tt.group)},
				{Key: "order", Expected: tt.order},
			})
		})
	}
}

func TestCommandFlags(t *testing.T) {
	flags := map[*cobra.Command][]string{
		startServerCmd: {"port", "debug", "config", "access-token", "generate-access-token"},
		registerCmd:    {"conf"},
		listToolsCmd:   {"provider"},
		autoApproveCmd: {"confirm"},
		confirmCmd:     {"deny", "wait"},
		parseCmd:       {"tools", "start"},
		callCmd:        {"provider", "model", "vision", "yes", "confirm-wait"},
	}
	for c, names := range flags {
		for _, name := range names {
			f := c.Flags().Lookup(name)
			testhelpers.AssertNotNil(t, f)
			testhelpers.AssertTrue(t, len(f.Usage) > 0, c.Name()+" --"+name+" should have a usage description")
		}
	}

	registry := rootCmd.PersistentFlags().Lookup("registry")
	testhelpers.AssertNotNil(t, registry)
}

func TestGroupedHelp(t *testing.T) {
	out, _, err := executeCommand(t, afero.NewMemMapFs(), "--help")
	testhelpers.AssertNoError(t, err)

	basic := strings.Index(out, "Basic Commands:")
	advanced := strings.Index(out, "Advanced Commands:")
	testhelpers.AssertTrue(t, basic >= 0 && advanced > basic, "help should list basic commands before advanced ones")

	start := strings.Index(out, "  start ")
	register := strings.Index(out, "  register ")
	testhelpers.AssertTrue(t, start > basic && register > start, "commands should be sorted by their order annotation")
	testhelpers.AssertTrue(t, strings.Index(out, "  parse ") > advanced, "parse is an advanced command")
	testhelpers.AssertTrue(t, strings.Contains(out, "--registry"), "help should show the root flags")
}

func TestGetRegistryURL(t *testing.T) {
	t.Setenv(RegistryURLEnvVar, "")
	testhelpers.AssertEqual(t, RegistryURLDefault, getRegistryURL())

	t.Setenv(RegistryURLEnvVar, "http://env:9000")
	testhelpers.AssertEqual(t, "http://env:9000", getRegistryURL())

	registryServerURL = "http://flag:9001"
	defer func() { registryServerURL = "" }()
	testhelpers.AssertEqual(t, "http://flag:9001", getRegistryURL())
}
