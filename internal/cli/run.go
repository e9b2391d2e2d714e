package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
		newRunMessagesCmd(clientFn, outputFn),
		newRunTracesCmd(clientFn, outputFn),
		newRunWatchCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workspaceID string
	var status string
	var limit int
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var runs []RunResponse
			var err error
			if active {
				if workspaceID == "" {
					return fmt.Errorf("--workspace is required with --active")
				}
				runs, err = client.ListActiveRuns(workspaceID)
			} else {
				runs, err = client.ListRuns(ListRunsOpts{
					WorkspaceID: workspaceID,
					Status:      status,
					Limit:       limit,
				})
			}
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKSPACE", "KIND", "STATUS", "PROGRESS", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.WorkspaceID, r.RunKind, r.Status, strconv.Itoa(r.Progress), r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Filter by workspace ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (queued, running, completed, failed, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().BoolVar(&active, "active", false, "Only active (queued, running) runs")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var userID string
	var kind string
	var contextKVs []string

	cmd := &cobra.Command{
		Use:   "start WORKSPACE_ID PROMPT",
		Short: "Start a new run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateRunRequest{
				UserID:  userID,
				RunKind: kind,
				Prompt:  args[1],
			}

			if len(contextKVs) > 0 {
				req.Context = make(map[string]any)
				for _, kv := range contextKVs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid context format %q, expected KEY=VALUE", kv)
					}
					req.Context[parts[0]] = parts[1]
				}
			}

			run, err := client.CreateRun(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.ID))
			out.Print(
				[]string{"ID", "WORKSPACE", "KIND", "STATUS", "CREATED"},
				[][]string{{run.ID, run.WorkspaceID, run.RunKind, run.Status, run.CreatedAt}},
				run,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&kind, "kind", "", "Run kind (explore, prove, summarize, ...)")
	cmd.Flags().StringSliceVar(&contextKVs, "context", nil, "Context values as KEY=VALUE (repeatable)")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "WORKSPACE", "KIND", "STATUS", "PROGRESS", "STEP", "SUMMARY", "ERROR"},
				[][]string{{run.ID, run.WorkspaceID, run.RunKind, run.Status, strconv.Itoa(run.Progress), run.CurrentStep, run.Summary, run.Error}},
				run,
			)
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an active run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run cancelled: %s", run.ID))
			return nil
		},
	}
}

func newRunMessagesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "messages RUN_ID",
		Short: "List run messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			messages, err := client.ListMessages(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ROLE", "CONTENT", "CREATED"}
			rows := make([][]string, len(messages))
			for i, m := range messages {
				rows[i] = []string{m.Role, m.Content, m.CreatedAt}
			}

			out.Print(headers, rows, messages)
			return nil
		},
	}
}

func newRunTracesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "traces RUN_ID",
		Short: "List reasoning trace steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			traces, err := client.ListTraces(args[0])
			if err != nil {
				return err
			}

			headers := []string{"STEP", "TYPE", "AGENT", "DURATION_MS", "CONTENT"}
			rows := make([][]string, len(traces))
			for i, t := range traces {
				rows[i] = []string{strconv.Itoa(t.StepNumber), t.StepType, t.AgentName, strconv.FormatInt(t.DurationMS, 10), t.Content}
			}

			out.Print(headers, rows, traces)
			return nil
		},
	}
}
