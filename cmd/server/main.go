// Command nebula-server discovers endpoint units, installs them on the HTTP
// router and serves the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"nebula/internal/platform/config"
	"nebula/internal/platform/database"
	"nebula/internal/platform/health"
	"nebula/internal/platform/logger"
	"nebula/internal/platform/redis"
	httptransport "nebula/internal/transport/http"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

func main() {
	printRoutes := flag.Bool("routes", false, "print the installed routes and exit")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *printRoutes); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger, printRoutes bool) error {
	log.Info("initializing nebula",
		"addr", cfg.Addr,
		"site", cfg.SiteName,
		"plugin_dir", cfg.PluginDir,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck // process is exiting
	}

	app := wire(cfg, log, reg, pool, rdb)

	checks := health.New(cfg.Environment)
	checks.RegisterCheck("postgres", pool.Health)
	if rdb != nil {
		checks.RegisterCheck("redis", rdb.Health)
	}
	app.router.MountHealth(checks)
	app.router.MountMetrics(reg)

	report := app.install(ctx)
	log.Info("endpoint discovery finished",
		"registered", len(report.Registered),
		"skipped", len(report.Skipped),
	)

	if printRoutes {
		writeRoutes(os.Stdout, app.router)
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if rdb != nil {
		poolMetrics := redis.NewPoolMetrics(reg)
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					rdb.RecordPoolStats(poolMetrics)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func writeRoutes(w io.Writer, router *httptransport.Router) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tMETHODS\tNAME\tSCOPES\tANONYMOUS")
	for _, rt := range router.Routes() {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%v\t%t\n", rt.Path, rt.Methods, rt.Name, rt.Scopes, rt.Anonymous)
	}
	tw.Flush() //nolint:errcheck // best-effort diagnostics
}
