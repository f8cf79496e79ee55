package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/attnlab/dopamind/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show points, badges, milestones and the daily challenge",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	st := d.Engine.State()
	ch := d.Engine.DailyChallengeStatus()
	view := map[string]any{
		"state":           st,
		"challenge":       ch,
		"progressPercent": d.Engine.ProgressPercent(),
	}

	return output(view, func(w io.Writer) error {
		fmt.Fprintf(w, "Points:       %d\n", st.Points)
		fmt.Fprintf(w, "Multiplier:   x%.1f\n", st.Multiplier())
		fmt.Fprintf(w, "Badges:       %d/%d (%.0f%%)\n",
			len(st.Badges), len(d.Engine.BadgeDefinitions()), d.Engine.ProgressPercent())
		fmt.Fprintf(w, "Milestones:   %v\n", st.Milestones)
		fmt.Fprintf(w, "Pages:        %d visited\n", len(st.PagesVisited))
		if st.QuizCompleted {
			fmt.Fprintf(w, "Quiz:         %d%%\n", st.QuizScore)
		} else {
			fmt.Fprintln(w, "Quiz:         not taken")
		}
		fmt.Fprintf(w, "Challenge:    %s (%d/%d, %s)\n",
			ch.Description, ch.VisitedToday, ch.Required, ch.Phase)
		if err := d.Engine.PersistenceErr(); err != nil {
			fmt.Fprintf(w, "Storage:      %v\n", err)
		}
		return nil
	})
}
