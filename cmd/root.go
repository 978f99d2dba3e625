package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/config"
	"github.com/sells-group/provmap/internal/fetcher"
	"github.com/sells-group/provmap/internal/monitoring"
	"github.com/sells-group/provmap/internal/session"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "provmap",
	Short: "Choropleth map of Dutch provinces",
	Long:  "Joins a province dataset to province boundaries and serves or renders the result as a colored map with raster overlays.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newSession builds an unloaded session over the configured asset source.
func newSession(metrics *monitoring.Metrics) (*session.Session, error) {
	src := fetcher.NewSource(fetcher.HTTPOptions{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
	})
	return session.New(cfg, src, metrics)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
