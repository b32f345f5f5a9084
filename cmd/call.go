package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mcpjungle/toolbridge/client"
	"github.com/mcpjungle/toolbridge/pkg/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	callCmdProvider string
	callCmdModel    string
	callCmdVision   bool
	callCmdYes      bool
	callCmdWait     time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call <file>",
	Short: "Run the tool calls of a model response",
	Long: "Send a model response to toolbridge and run the tool calls embedded in it.\n\n" +
		"Status changes are printed as they happen. Tool calls that need confirmation are prompted for\n" +
		"on stdin, unless --yes approves them all. The tool results are printed at the end as JSON\n" +
		"messages in the format of the given model provider.",
	Args: cobra.ExactArgs(1),
	RunE: runCall,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "7",
	},
}

func init() {
	callCmd.Flags().StringVar(&callCmdProvider, "provider", "", "model provider family the results are rendered for")
	callCmd.Flags().StringVar(&callCmdModel, "model", "", "model id")
	callCmd.Flags().BoolVar(&callCmdVision, "vision", false, "the model accepts image input")
	callCmd.Flags().BoolVarP(&callCmdYes, "yes", "y", false, "approve all tool calls that need confirmation")
	callCmd.Flags().DurationVar(
		&callCmdWait,
		"confirm-wait",
		2*time.Second,
		"how long a pending tool call is watched for a confirmation request",
	)
	_ = callCmd.MarkFlagRequired("provider")

	rootCmd.AddCommand(callCmd)
}

// confirmationPrompter asks the user about tool calls waiting for confirmation, one at a time.
type confirmationPrompter struct {
	mu      sync.Mutex
	in      *bufio.Reader
	out     io.Writer
	autoYes bool
}

func (p *confirmationPrompter) ask(inv types.InvocationRequest) bool {
	if p.autoYes {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	args, _ := json.Marshal(inv.Arguments)
	fmt.Fprintf(p.out, "Allow %s with arguments %s? [y/N] ", inv.Tool.ID, args)
	answer, _ := p.in.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runCall(cmd *cobra.Command, args []string) error {
	text, err := afero.ReadFile(appFs, args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	prompter := &confirmationPrompter{
		in:      bufio.NewReader(cmd.InOrStdin()),
		out:     cmd.OutOrStdout(),
		autoYes: callCmdYes,
	}

	var (
		runID    string
		statuses sync.Map
		wg       sync.WaitGroup
		errMu    sync.Mutex
		watchErr error
	)
	stillPending := func(id string) bool {
		v, _ := statuses.Load(id)
		return v == types.StatusPending
	}
	watch := func(inv types.InvocationRequest) {
		defer wg.Done()
		if !awaitPending(runID, inv.ID, callCmdWait, stillPending) {
			return
		}
		if err := apiClient.Confirm(runID, inv.ID, prompter.ask(inv)); err != nil {
			errMu.Lock()
			watchErr = fmt.Errorf("failed to confirm '%s': %w", inv.ID, err)
			errMu.Unlock()
		}
	}

	result, err := apiClient.RunToolCalls(cmd.Context(), &types.ToolCallsRequest{
		Provider: callCmdProvider,
		Model:    types.Model{ID: callCmdModel, Vision: callCmdVision},
		Text:     string(text),
	}, client.StreamCallbacks{
		OnRun: func(id string) { runID = id },
		OnChunk: func(chunk types.Chunk) {
			printChunk(cmd, chunk)
			for _, inv := range chunk.Responses {
				statuses.Store(inv.ID, inv.Status)
			}
			if chunk.Type != types.ChunkTypeToolPending {
				return
			}
			for _, inv := range chunk.Responses {
				wg.Add(1)
				go watch(inv)
			}
		},
	})
	wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to run tool calls: %w", err)
	}
	if watchErr != nil {
		return watchErr
	}

	out, err := json.MarshalIndent(result.ToolResults, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tool results: %w", err)
	}
	cmd.Println(string(out))
	return nil
}

// awaitPending reports whether the invocation starts waiting for confirmation within wait.
// Auto-approved invocations never do, and watching stops as soon as stillPending turns false.
func awaitPending(runID, invocationID string, wait time.Duration, stillPending func(string) bool) bool {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) && stillPending(invocationID) {
		ids, err := apiClient.ListPendingConfirmations(runID)
		if err == nil && slices.Contains(ids, invocationID) {
			return true
		}
		time.Sleep(confirmPollInterval)
	}
	return false
}

func printChunk(cmd *cobra.Command, chunk types.Chunk) {
	switch chunk.Type {
	case types.ChunkTypeWarning:
		cmd.PrintErrln("warning: " + chunk.Message)
	case types.ChunkTypeImageComplete:
		if chunk.Image != nil {
			cmd.Printf("[image] %d image(s) returned\n", len(chunk.Image.Images))
		}
	default:
		for _, inv := range chunk.Responses {
			cmd.Printf("[%s] %s %s\n", inv.Status, inv.ID, inv.Tool.ID)
		}
	}
}
