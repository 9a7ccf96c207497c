// Package main is a thin polling client for a running webagent-server: it submits a command to
// POST /execute and polls GET /status/{task_id} using the adaptive-backoff poller in
// internal/clientloop until the task reaches a terminal state or the 90-second window elapses.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelbrowse/webagent/internal/clientloop"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "webagent-cli",
		Short:        "Submit a command to a webagent-server and poll it to completion",
		SilenceUsage: true,
	}
	root.AddCommand(buildRunCmd())
	return root
}

func buildRunCmd() *cobra.Command {
	var serverAddr string
	var model string
	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Submit a natural-language command and poll for its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.Context(), cmd.OutOrStdout(), serverAddr, args[0], model)
		},
	}
	cmd.Flags().StringVar(&serverAddr, "addr", "http://localhost:8080", "Address of the webagent-server")
	cmd.Flags().StringVar(&model, "model", "", "Planner model override")
	return cmd
}

type executeResponse struct {
	Explanation    string `json:"explanation"`
	Complete       bool   `json:"complete"`
	TaskID         string `json:"task_id"`
	AsyncExecution bool   `json:"async_execution"`
}

type statusResponse struct {
	TaskID    string          `json:"task_id"`
	State     string          `json:"state"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

func runCommand(ctx context.Context, out io.Writer, addr, command, model string) error {
	client := &http.Client{Timeout: 30 * time.Second}

	body, err := json.Marshal(map[string]string{"command": command, "model": model})
	if err != nil {
		return err
	}
	resp, err := client.Post(addr+"/execute", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("execute request failed: %w", err)
	}
	defer resp.Body.Close()

	var exec executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		return fmt.Errorf("decode execute response: %w", err)
	}
	fmt.Fprintf(out, "%s\n", exec.Explanation)

	if !exec.AsyncExecution || exec.TaskID == "" {
		fmt.Fprintln(out, "(no background execution submitted)")
		return nil
	}

	var final statusResponse
	poller := clientloop.NewPoller()
	pollErr := poller.Run(ctx, func(ctx context.Context) (bool, error) {
		statusResp, err := client.Get(addr + "/status/" + exec.TaskID)
		if err != nil {
			return false, err
		}
		defer statusResp.Body.Close()

		var s statusResponse
		if err := json.NewDecoder(statusResp.Body).Decode(&s); err != nil {
			return false, err
		}
		final = s
		return isTerminal(s.State), nil
	})

	if _, timedOut := pollErr.(clientloop.TimedOutFallback); timedOut {
		fmt.Fprintln(out, "polling window elapsed; falling back to a synchronous read of HTML")
		return nil
	}
	if pollErr != nil {
		return pollErr
	}

	fmt.Fprintf(out, "task %s finished: state=%s\n", final.TaskID, final.State)
	if final.Error != "" {
		fmt.Fprintf(out, "error: %s\n", final.Error)
	}
	return nil
}

func isTerminal(state string) bool {
	switch state {
	case "completed", "failed", "cancelled":
		return true
	default:
		return false
	}
}
