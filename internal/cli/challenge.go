package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/attnlab/dopamind/internal/daemon"
	"github.com/attnlab/dopamind/internal/domain"
)

func init() {
	rootCmd.AddCommand(challengeCmd, claimCmd)
}

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Show today's challenge",
	RunE:  runChallenge,
}

func runChallenge(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ch := d.Engine.DailyChallengeStatus()
	return output(ch, func(w io.Writer) error {
		fmt.Fprintln(w, ch.Description)
		fmt.Fprintf(w, "  Progress:   %d/%d (%.0f%%)\n", ch.VisitedToday, ch.Required, ch.ProgressPercent)
		fmt.Fprintf(w, "  Status:     %s\n", ch.Phase)
		fmt.Fprintf(w, "  Multiplier: x%.1f\n", ch.Multiplier)
		if ch.CanClaim {
			fmt.Fprintln(w, "Run 'dopamind claim' to collect the reward.")
		}
		return nil
	})
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim today's challenge reward",
	RunE:  runClaim,
}

func runClaim(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ok := d.Engine.CompleteDailyChallenge()
	warnPersistence(d)
	ch := d.Engine.DailyChallengeStatus()

	return output(map[string]any{"completed": ok, "challenge": ch}, func(w io.Writer) error {
		switch {
		case ok:
			fmt.Fprintf(w, "Challenge complete! Multiplier is now x%.1f (total %d points)\n",
				ch.Multiplier, d.Engine.Points())
		case ch.Phase == domain.PhaseCompleted:
			fmt.Fprintln(w, "Already claimed today.")
		default:
			fmt.Fprintf(w, "Not yet: %d/%d pages visited today.\n", ch.VisitedToday, ch.Required)
		}
		return nil
	})
}
