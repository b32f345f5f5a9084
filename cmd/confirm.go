package cmd

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// confirmPollInterval is how often pending confirmations are polled while waiting for an invocation
// to become pending.
const confirmPollInterval = 100 * time.Millisecond

var (
	confirmCmdDeny bool
	confirmCmdWait time.Duration
)

var confirmCmd = &cobra.Command{
	Use:   "confirm <run> <invocation>",
	Short: "Approve or deny a tool call waiting for confirmation",
	Long: "Approve (or with --deny, deny) a tool call of a running tool-calls request.\n" +
		"Approving one call also releases the other waiting calls of the same tool in that run.",
	Args: cobra.ExactArgs(2),
	RunE: runConfirm,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "6",
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending <run>",
	Short: "List the tool calls of a run waiting for confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := apiClient.ListPendingConfirmations(args[0])
		if err != nil {
			return fmt.Errorf("failed to list pending confirmations: %w", err)
		}
		if len(ids) == 0 {
			cmd.Println("No tool calls are waiting for confirmation")
			return nil
		}
		for _, id := range ids {
			cmd.Println(id)
		}
		return nil
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "7",
	},
}

func init() {
	confirmCmd.Flags().BoolVar(&confirmCmdDeny, "deny", false, "deny the tool call instead of approving it")
	confirmCmd.Flags().DurationVar(
		&confirmCmdWait,
		"wait",
		0,
		"wait up to this long for the tool call to start waiting for confirmation",
	)

	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(pendingCmd)
}

func runConfirm(cmd *cobra.Command, args []string) error {
	runID, invocationID := args[0], args[1]
	if err := confirmWhenPending(runID, invocationID, !confirmCmdDeny, confirmCmdWait); err != nil {
		return err
	}
	if confirmCmdDeny {
		cmd.Printf("Denied %s\n", invocationID)
	} else {
		cmd.Printf("Approved %s\n", invocationID)
	}
	return nil
}

// confirmWhenPending resolves a confirmation once the invocation is waiting for it.
// A tool call is only registered for confirmation shortly after its pending chunk is streamed,
// so the pending list is polled for up to wait before resolving.
func confirmWhenPending(runID, invocationID string, confirmed bool, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ids, err := apiClient.ListPendingConfirmations(runID)
		if err != nil {
			return fmt.Errorf("failed to list pending confirmations: %w", err)
		}
		if slices.Contains(ids, invocationID) || !time.Now().Before(deadline) {
			break
		}
		time.Sleep(confirmPollInterval)
	}

	if err := apiClient.Confirm(runID, invocationID, confirmed); err != nil {
		return fmt.Errorf("failed to confirm '%s': %w", invocationID, err)
	}
	return nil
}
