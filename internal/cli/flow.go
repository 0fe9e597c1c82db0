package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewFlowCmd создаёт группу команд для управления flows.
func NewFlowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Manage flows",
	}

	cmd.AddCommand(
		newFlowListCmd(clientFn, outputFn),
		newFlowCreateCmd(clientFn, outputFn),
		newFlowShowCmd(clientFn, outputFn),
		newFlowUpdateCmd(clientFn, outputFn),
		newFlowDeleteCmd(clientFn, outputFn),
		newFlowValidateCmd(clientFn, outputFn),
	)

	return cmd
}

func newFlowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			flows, err := client.ListFlows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "TAGS", "CREATED"}
			rows := make([][]string, len(flows))
			for i, f := range flows {
				rows[i] = []string{f.ID, f.Name, strings.Join(f.Tags, ","), f.CreatedAt}
			}

			out.Print(headers, rows, flows)
			return nil
		},
	}
}

func newFlowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string
	var file string
	var tags []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			definition, err := readDefinition(file)
			if err != nil {
				return err
			}

			flow, err := client.CreateFlow(CreateFlowRequest{
				Name:        name,
				Description: description,
				Definition:  definition,
				Tags:        tags,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Flow created: %s", flow.ID))
			out.Details(flowFields(flow), flow)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Flow name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Flow description")
	cmd.Flags().StringVar(&file, "file", "", "Path to graph definition JSON (required)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Flow tags (comma-separated)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newFlowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show flow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			flow, err := client.GetFlow(args[0])
			if err != nil {
				return err
			}

			out.Details(flowFields(flow), flow)
			return nil
		},
	}
}

func newFlowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string
	var file string
	var tags []string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateFlowRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("file") {
				definition, err := readDefinition(file)
				if err != nil {
					return err
				}
				req.Definition = definition
			}
			if cmd.Flags().Changed("tags") {
				req.Tags = &tags
			}

			flow, err := client.UpdateFlow(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Flow updated")
			out.Details(flowFields(flow), flow)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New flow name")
	cmd.Flags().StringVar(&description, "description", "", "New flow description")
	cmd.Flags().StringVar(&file, "file", "", "Path to new graph definition JSON")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "New flow tags (comma-separated)")

	return cmd
}

func newFlowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteFlow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Flow deleted: %s", args[0]))
			return nil
		},
	}
}

func newFlowValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a graph definition without saving",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			definition, err := readDefinition(file)
			if err != nil {
				return err
			}

			result, err := client.ValidateFlow(definition)
			if err != nil {
				return err
			}

			if len(result.Issues) == 0 {
				out.Success("Graph is valid")
				return nil
			}

			headers := []string{"SEVERITY", "NODE", "MESSAGE"}
			rows := make([][]string, len(result.Issues))
			for i, issue := range result.Issues {
				rows[i] = []string{issue.Severity, issue.NodeID, issue.Message}
			}

			out.Print(headers, rows, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to graph definition JSON (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

// readDefinition читает и проверяет синтаксис JSON-файла с графом.
func readDefinition(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("definition file is not valid JSON: %s", path)
	}
	return json.RawMessage(data), nil
}

// flowFields — пары ключ-значение для блочного вывода flow.
func flowFields(f *FlowResponse) [][2]string {
	return [][2]string{
		{"ID", f.ID},
		{"Name", f.Name},
		{"Description", f.Description},
		{"Nodes", strconv.Itoa(len(nodesOf(f)))},
		{"Tags", strings.Join(f.Tags, ", ")},
		{"Created", f.CreatedAt},
		{"Updated", f.UpdatedAt},
	}
}

// nodesOf достаёт список узлов из definition.
func nodesOf(f *FlowResponse) []any {
	nodes, _ := f.Definition["nodes"].([]any)
	return nodes
}
