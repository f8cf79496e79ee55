package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/attnlab/dopamind/internal/app/gamification"
	"github.com/attnlab/dopamind/internal/daemon"
	"github.com/attnlab/dopamind/internal/domain"
)

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Print the converted state without saving")
	rootCmd.AddCommand(migrateCmd)
}

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate FILE",
	Short: "Import a userProgress export from the first site version",
	Long: `Convert a userProgress JSON export (as stored by the first version of the
site) into the current format and merge it into the stored progress.
Badges and pages are unioned and the higher point total wins.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	lp, err := gamification.DecodeLegacy(string(data))
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	today := d.Engine.DailyChallengeStatus().LastResetDate
	st, err := gamification.MigrateLegacy(lp, today, d.Config.Engine.RequiredPages)
	if err != nil {
		return err
	}
	if migrateDryRun {
		return printJSON(os.Stdout, st)
	}

	payload, err := gamification.Encode(st)
	if err != nil {
		return err
	}
	if err := d.Store.Set(gamification.StateKey, payload); err != nil {
		return domain.PersistenceError("migrate", err)
	}
	// Sync merges the imported record with the in-memory progress and saves the union.
	if err := d.Engine.Sync(); err != nil {
		return err
	}

	merged := d.Engine.State()
	return output(merged, func(w io.Writer) error {
		fmt.Fprintf(w, "Imported %s: %d points, %d badges, %d pages\n",
			args[0], merged.Points, len(merged.Badges), len(merged.PagesVisited))
		return nil
	})
}
