package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkaus1/vscode-ai-ext/internal/config"
	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/internal/server"
)

var (
	servePort     int
	serveHostname string
	serveNoWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the command/event protocol server",
	Long: `Start the companion as an HTTP server. The editor posts commands to
/command and listens for results on the /event SSE stream.

Project configuration is reloaded when it changes on disk.`,
	RunE: runServe,
}

func init() {
	defaults := server.DefaultConfig()
	serveCmd.Flags().IntVarP(&servePort, "port", "p", defaults.Port, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", defaults.Hostname, "Hostname to listen on")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload configuration on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}

	if !serveNoWatch {
		dir, _ := GetWorkDir()
		go func() {
			if err := config.Watch(ctx, dir, orch.SetConfig); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn().Err(err).Msg("config watch stopped")
			}
		}()
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.Hostname = serveHostname
	srv := server.New(serverConfig, orch)

	errc := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())
	if path := logging.GetLogFilePath(); path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", path)
	}

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	if err := orch.SaveHistory(shutdownCtx, nil); err != nil {
		logging.Warn().Err(err).Msg("failed to save chat history")
	}
	orch.Bus().Close()
	return nil
}
