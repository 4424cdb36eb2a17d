package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-letor/api"
	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/metrics"
	"github.com/gcbaptista/go-letor/internal/ux"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var flags config.ServerSettings

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run dataset operations as background jobs behind an HTTP API",
		Example: `  letor serve --port 8080 --data-dir /srv/letor
  curl -XPOST localhost:8080/datasets/_split -d '{"input":"mslr/train.txt","output_dir":"mslr/split","test_fraction":0.2}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.file.Server
			override(cmd, "port", &s.Port, flags.Port)
			override(cmd, "data-dir", &s.DataDir, flags.DataDir)
			override(cmd, "max-workers", &s.MaxWorkers, flags.MaxWorkers)
			override(cmd, "max-request-bytes", &s.MaxRequestBytes, flags.MaxRequestBytes)
			s.ApplyDefaults()
			if err := s.Validate(); err != nil {
				return err
			}

			ux.Print(a.stdout, ux.Options("serve", []ux.Option{
				{Name: "port", Value: s.Port},
				{Name: "data dir", Value: s.DataDir},
				{Name: "max workers", Value: s.MaxWorkers},
				{Name: "object store", Value: a.file.ObjectStore.Endpoint},
			}))
			return a.serve(cmd.Context(), s)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Port, "port", "p", "8080", "Port to listen on")
	f.StringVar(&flags.DataDir, "data-dir", "./letor_data", "Directory that relative request paths resolve against")
	f.IntVar(&flags.MaxWorkers, "max-workers", 4, "Jobs running at the same time")
	f.Int64Var(&flags.MaxRequestBytes, "max-request-bytes", 1<<20, "Largest accepted request body")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then drains requests
// and cancels running jobs.
func (a *app) serve(ctx context.Context, s config.ServerSettings) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := a.newEngine(s.DataDir, s.MaxWorkers, metrics.New(registry))
	if err != nil {
		return err
	}
	defer eng.Close()

	if a.logger.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, eng, api.RouteOptions{
		Logger:          a.logger,
		Registry:        registry,
		MaxRequestBytes: s.MaxRequestBytes,
	})

	server := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", server.Addr, "data_dir", s.DataDir)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
