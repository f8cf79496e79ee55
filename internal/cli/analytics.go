package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/attnlab/dopamind/internal/daemon"
)

func init() {
	analyticsEventsCmd.Flags().StringVar(&analyticsName, "name", "", "Only events with this name")
	analyticsEventsCmd.Flags().IntVar(&analyticsLimit, "limit", 20, "Maximum events")
	analyticsExportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "Maximum events")

	analyticsCmd.AddCommand(analyticsSummaryCmd, analyticsEventsCmd, analyticsExportCmd, analyticsClearCmd)
	rootCmd.AddCommand(analyticsCmd)
}

var (
	analyticsName  string
	analyticsLimit int
	exportLimit    int
)

var errAnalyticsDisabled = errors.New("analytics is disabled ([analytics] enabled = false)")

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Inspect the tracked event log",
}

// withTracker opens the daemon and fails when analytics is off.
func withTracker(fn func(d *daemon.Daemon) error) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()
	if d.Tracker == nil {
		return errAnalyticsDisabled
	}
	return fn(d)
}

var analyticsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Event counts by name",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(func(d *daemon.Daemon) error {
			sum, err := d.Tracker.Summary()
			if err != nil {
				return err
			}
			return output(sum, func(out io.Writer) error {
				fmt.Fprintf(out, "Events: %d across %d sessions\n\n", sum.TotalEvents, sum.Sessions)
				names := make([]string, 0, len(sum.ByName))
				for n := range sum.ByName {
					names = append(names, n)
				}
				slices.Sort(names)

				w := newTable(out)
				fmt.Fprintln(w, "EVENT\tCOUNT")
				for _, n := range names {
					fmt.Fprintf(w, "%s\t%d\n", n, sum.ByName[n])
				}
				return w.Flush()
			})
		})
	},
}

var analyticsEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(func(d *daemon.Daemon) error {
			events, err := d.Tracker.Events(analyticsName, analyticsLimit)
			if err != nil {
				return err
			}
			return output(events, func(out io.Writer) error {
				w := newTable(out)
				fmt.Fprintln(w, "TIME\tEVENT\tMETADATA")
				for _, e := range events {
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Name, e.Metadata)
				}
				return w.Flush()
			})
		})
	},
}

var analyticsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the event log as CSV to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(func(d *daemon.Daemon) error {
			return d.Tracker.ExportCSV(os.Stdout, exportLimit)
		})
	},
}

var analyticsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all tracked events and start a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(func(d *daemon.Daemon) error {
			if err := d.Tracker.Clear(); err != nil {
				return err
			}
			fmt.Println("Analytics cleared.")
			return nil
		})
	},
}
