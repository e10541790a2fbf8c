package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/promptlab/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engine API server",
	Long: `Start the HTTP API that routes calls, ingests outcomes and serves reports.

Examples:
  promptlab serve              # Start on default port 8080
  promptlab serve --port 3000  # Start on port 3000`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides PROMPTLAB_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	port := app.Config.Port
	if servePort != 0 {
		port = servePort
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	server := web.NewServer(port, app.Registry, app.Allocator, app.Aggregator, app.Reports, app.Metrics)
	return server.Start(ctx)
}
