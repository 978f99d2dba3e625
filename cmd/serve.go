package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/basemap"
	"github.com/sells-group/provmap/internal/config"
	"github.com/sells-group/provmap/internal/monitoring"
	"github.com/sells-group/provmap/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map API and basemap tiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "serve"))

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := monitoring.NewMetrics(reg)

		sess, err := newSession(metrics)
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		// A failed load is shown as an alert; the server still starts so it
		// can be reloaded.
		if err := sess.Load(ctx); err != nil {
			log.Error("initial load failed", zap.Error(err))
		}
		out := sess.LoadOverlays(ctx)
		log.Info("overlays", zap.String("status", string(out.Status)), zap.Int("count", len(out.Overlays)))

		handler := server.New(server.Options{
			Session:        sess,
			Tiles:          newTileProxy(cfg.Basemap, cfg.Fetch, metrics),
			Gatherer:       reg,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}).Handler()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newTileProxy(bc config.BasemapConfig, fc config.FetchConfig, metrics *monitoring.Metrics) *basemap.Proxy {
	var cache *basemap.Cache
	if bc.CacheEntries > 0 {
		cache = basemap.NewCache(bc.CacheEntries, time.Duration(bc.CacheTTLMins)*time.Minute)
	}
	return basemap.NewProxy(basemap.Options{
		URL:       bc.URL,
		Format:    bc.Format,
		UserAgent: fc.UserAgent,
		Timeout:   time.Duration(fc.TimeoutSecs) * time.Second,
		RateLimit: bc.RateLimit,
		Cache:     cache,
		OnResult:  metrics.ObserveTile,
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
