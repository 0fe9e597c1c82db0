package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecCmd создаёт группу команд для управления executions.
func NewExecCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Manage executions",
	}

	cmd.AddCommand(
		newExecListCmd(clientFn, outputFn),
		newExecStartCmd(clientFn, outputFn),
		newExecShowCmd(clientFn, outputFn),
		newExecCancelCmd(clientFn, outputFn),
		newExecWatchCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flowID string
	var status string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				FlowID: flowID,
				Status: status,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "FLOW_ID", "STATUS", "DURATION_MS", "CREATED"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{e.ID, e.FlowID, e.Status, strconv.FormatInt(e.DurationMs, 10), e.CreatedAt}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&flowID, "flow-id", "", "Filter by flow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func newExecStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start FLOW_ID",
		Short: "Start a flow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.StartExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))
			out.Details(execFields(exec), exec)
			return nil
		},
	}
}

func newExecShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details with node runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Details(execFields(exec), exec)

			if len(exec.NodeRuns) > 0 && !out.jsonMode {
				fmt.Println()
				headers := []string{"NODE", "AGENT", "STATUS", "ERROR", "SKIP_REASON"}
				rows := make([][]string, 0, len(exec.NodeRuns))
				for _, nr := range exec.NodeRuns {
					rows = append(rows, []string{nr.NodeID, nr.AgentType, nr.Status, nr.Error, nr.SkipReason})
				}
				out.Table(headers, rows)
			}
			return nil
		},
	}
}

func newExecCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CancelExecution(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution cancelled: %s", args[0]))
			return nil
		},
	}
}

// execFields — пары ключ-значение для блочного вывода execution.
func execFields(e *ExecutionResponse) [][2]string {
	duration := ""
	if e.DurationMs > 0 {
		duration = strconv.FormatInt(e.DurationMs, 10) + "ms"
	}
	cancelled := ""
	if e.Cancelled {
		cancelled = "true"
	}
	return [][2]string{
		{"ID", e.ID},
		{"Flow", e.FlowID},
		{"Status", e.Status},
		{"Error", e.Error},
		{"Cancelled", cancelled},
		{"Created", e.CreatedAt},
		{"Started", e.StartedAt},
		{"Ended", e.EndedAt},
		{"Duration", duration},
	}
}
