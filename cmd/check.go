package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/session"
)

var checkAllowUnmatched bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report how every region joins to the dataset",
	Long:  "Loads all assets and prints, per displayed region, the dataset row it resolved to and how it matched. Fails when a region has no row unless --allow-unmatched is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		sess, err := newSession(nil)
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		if err := sess.Load(cmd.Context()); err != nil {
			if le := sess.LoadError(); le != nil {
				cmd.PrintErrln(le.Alert())
			}
			return err
		}

		unmatched, err := writeJoinReport(cmd.OutOrStdout(), sess)
		if err != nil {
			return err
		}

		zap.L().Info("check complete",
			zap.String("command", "check"),
			zap.Int("unmatched", unmatched),
		)
		if unmatched > 0 && !checkAllowUnmatched {
			return eris.Errorf("check: %d regions have no dataset row", unmatched)
		}
		return nil
	},
}

// writeJoinReport prints the join table and dataset totals and returns the
// number of unmatched regions.
func writeJoinReport(w io.Writer, sess *session.Session) (int, error) {
	joins, err := sess.Joins()
	if err != nil {
		return 0, err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tNAME\tMATCH\tROW")
	unmatched := 0
	for _, j := range joins {
		key := j.Key
		if key == "" {
			key = "-"
			unmatched++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", j.FeatureID, j.Name, j.Match, key)
	}
	if err := tw.Flush(); err != nil {
		return 0, eris.Wrap(err, "check: write report")
	}

	rep := sess.Diagnostics()
	fmt.Fprintf(w, "\nrows=%d dropped=%d duplicates=%d unmatched=%d\n",
		rep.DatasetRows, rep.DroppedRows, rep.DuplicateRows, unmatched)
	if len(rep.MissingMetrics) > 0 {
		fmt.Fprintf(w, "missing metrics: %s\n", strings.Join(rep.MissingMetrics, ", "))
	}
	return unmatched, nil
}

func init() {
	checkCmd.Flags().BoolVar(&checkAllowUnmatched, "allow-unmatched", false, "do not fail when regions have no dataset row")
	rootCmd.AddCommand(checkCmd)
}
