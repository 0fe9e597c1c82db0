package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Flowgrid/internal/stream"
)

func newExecWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "watch EXECUTION_ID",
		Short: "Stream execution events until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executionID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid execution ID: %s", args[0])
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Reconnect-логи клиента не нужны в интерактивном выводе
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))

			sc := stream.NewClient(client.BaseURL(), logger)
			if err := sc.Watch(ctx, executionID, func(ev stream.Event) {
				printEvent(out, ev)
			}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			return nil
		},
	}
}

func printEvent(out *Output, ev stream.Event) {
	if out.jsonMode {
		out.JSON(ev)
		return
	}

	line := fmt.Sprintf("%s  #%d  %s", ev.Timestamp.Format("15:04:05.000"), ev.Sequence, ev.Type)
	if ev.NodeID != "" {
		line += "  node=" + ev.NodeID
	}
	if ev.Status != "" {
		line += "  status=" + ev.Status
	}
	if ev.Message != "" {
		line += "  " + ev.Message
	}
	if len(ev.Payload) > 0 {
		if data, err := json.Marshal(ev.Payload); err == nil {
			line += "  " + string(data)
		}
	}
	fmt.Fprintln(out.w, line)
}
