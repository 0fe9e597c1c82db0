package cli

import (
	"github.com/spf13/cobra"
)

// NewAgentCmd создаёт группу команд для каталога агентов.
func NewAgentCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect available agents",
	}

	cmd.AddCommand(newAgentListCmd(clientFn, outputFn))

	return cmd
}

func newAgentListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered agent types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			agents, err := client.ListAgents()
			if err != nil {
				return err
			}

			headers := []string{"TYPE", "DESCRIPTION"}
			rows := make([][]string, len(agents))
			for i, a := range agents {
				rows[i] = []string{a.Type, a.Description}
			}

			out.Print(headers, rows, agents)
			return nil
		},
	}
}
