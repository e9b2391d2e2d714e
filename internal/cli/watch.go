package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// wsURL переводит HTTP-адрес API в WebSocket-адрес.
func wsURL(baseURL, path string) string {
	url := baseURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + path
}

func newRunWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "watch WORKSPACE_ID",
		Short: "Stream live run events",
		Long: `Stream live run events over WebSocket.

By default connects to the workspace room: a snapshot of active runs
followed by live events. With --run streams text chunks of a single run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			path := "/ws/workspace/" + args[0]
			if runID != "" {
				path = "/api/v1/runs/" + runID + "/stream"
			}

			conn, _, err := websocket.DefaultDialer.Dial(wsURL(client.BaseURL(), path), nil)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer conn.Close()

			out.Success("Connected. Press Ctrl+C to stop.")

			// Ctrl+C закрывает соединение и обрывает ReadMessage.
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-stop
				conn.Close()
			}()

			for {
				_, payload, err := conn.ReadMessage()
				if err != nil {
					return nil
				}
				fmt.Fprintln(os.Stdout, string(payload))
			}
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Stream chunks of a single run instead of workspace events")

	return cmd
}
