package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/attnlab/dopamind/internal/daemon"
	"github.com/attnlab/dopamind/internal/domain"
)

func init() {
	pointsCmd.Flags().StringVar(&pointsSource, "source", domain.SourceGeneral,
		"Source tag (page_visit, interaction, quiz, daily_challenge, general)")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm erasing all progress")
	resetCmd.Flags().BoolVar(&resetChallenge, "challenge", false, "Reset only today's challenge")

	rootCmd.AddCommand(visitCmd, pointsCmd, quizCmd, resetCmd)
}

var (
	pointsSource   string
	resetYes       bool
	resetChallenge bool
)

var visitCmd = &cobra.Command{
	Use:   "visit PAGE",
	Short: "Record a page visit (+25 the first time)",
	Args:  cobra.ExactArgs(1),
	RunE:  runVisit,
}

func runVisit(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	isNew, err := d.Engine.VisitPage(args[0])
	if err != nil {
		return err
	}
	warnPersistence(d)

	total := d.Engine.Points()
	return output(map[string]any{"new": isNew, "totalPoints": total}, func(w io.Writer) error {
		if !isNew {
			fmt.Fprintf(w, "Already visited %s (%d points)\n", args[0], total)
			return nil
		}
		fmt.Fprintf(w, "Visited %s: %d points\n", args[0], total)
		return nil
	})
}

var pointsCmd = &cobra.Command{
	Use:   "points AMOUNT",
	Short: "Award points (scaled by the current multiplier)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPoints,
}

func runPoints(cmd *cobra.Command, args []string) error {
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Engine.AddPoints(amount, pointsSource)
	if err != nil {
		return err
	}
	warnPersistence(d)

	return output(res, func(w io.Writer) error {
		fmt.Fprintf(w, "+%d points (total %d)\n", res.Awarded, res.Total)
		return nil
	})
}

var quizCmd = &cobra.Command{
	Use:   "quiz SCORE",
	Short: "Submit a quiz score (0-100)",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuiz,
}

func runQuiz(cmd *cobra.Command, args []string) error {
	score, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", args[0], err)
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	awarded, err := d.Engine.CompleteQuiz(score)
	if err != nil {
		return err
	}
	warnPersistence(d)

	total := d.Engine.Points()
	return output(map[string]int{"pointsAwarded": awarded, "totalPoints": total}, func(w io.Writer) error {
		fmt.Fprintf(w, "Quiz %d%%: +%d points (total %d)\n", score, awarded, total)
		return nil
	})
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all progress, or only today's challenge with --challenge",
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetChallenge && !resetYes {
		return fmt.Errorf("refusing to erase all progress without --yes")
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if resetChallenge {
		d.Engine.ResetDailyChallenge()
		warnPersistence(d)
		fmt.Println("Daily challenge reset.")
		return nil
	}

	d.Engine.ResetAll()
	warnPersistence(d)
	fmt.Println("All progress erased.")
	return nil
}
