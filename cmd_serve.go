package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"multimodalRAG/core"
	"multimodalRAG/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ingestion and query over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	h := server.NewHandlers(a.videos, a.docs, a.engine)
	h.Collections = a.registry.Names
	h.Checks = map[string]func(context.Context) core.HealthCheck{
		"ffmpeg":   func(ctx context.Context) core.HealthCheck { return core.CheckBinary(ctx, "ffmpeg", "-version") },
		"ffprobe":  func(ctx context.Context) core.HealthCheck { return core.CheckBinary(ctx, "ffprobe", "-version") },
		"python":   func(ctx context.Context) core.HealthCheck { return core.CheckBinary(ctx, a.cfg.PythonBin, "--version") },
		"data_dir": func(context.Context) core.HealthCheck { return core.CheckDataDir(a.cfg.DataDir) },
	}
	srv := &http.Server{Addr: a.cfg.ListenAddr, Handler: h.Routes()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", a.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down services...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
