package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/session"
)

var (
	renderGroup  string
	renderMetric string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the styled map as GeoJSON",
	Long:  "Loads the dataset and geometry, applies the selected metric and writes the styled regions with their popups as a GeoJSON FeatureCollection.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("render"); err != nil {
			return err
		}
		log := zap.L().With(zap.String("command", "render"))

		sess, err := newSession(nil)
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		if err := runRender(cmd, sess, renderGroup, renderMetric, renderOut); err != nil {
			return err
		}

		sum := sess.Summary()
		log.Info("render complete",
			zap.String("metric", sum.Metric),
			zap.Int("features", sum.Features),
			zap.Int("matched", sum.Matched),
			zap.Int("unmatched", sum.Unmatched),
			zap.String("out", renderOut),
		)
		return nil
	},
}

func runRender(cmd *cobra.Command, sess *session.Session, group, metric, out string) error {
	if err := sess.Load(cmd.Context()); err != nil {
		if le := sess.LoadError(); le != nil {
			cmd.PrintErrln(le.Alert())
		}
		return err
	}
	if group != "" {
		if _, err := sess.SelectGroup(group); err != nil {
			return err
		}
	}
	if metric != "" {
		if _, err := sess.SelectMetric(metric); err != nil {
			return err
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "render: create output")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	return sess.WriteMap(w)
}

func init() {
	renderCmd.Flags().StringVar(&renderGroup, "group", "", "metric group to select (default: first group)")
	renderCmd.Flags().StringVar(&renderMetric, "metric", "", "metric of the group to color by (default: first metric)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "-", "output file, - for stdout")
	rootCmd.AddCommand(renderCmd)
}
