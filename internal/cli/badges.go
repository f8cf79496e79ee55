package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/attnlab/dopamind/internal/daemon"
)

func init() {
	rankingCmd.Flags().IntVar(&rankingLimit, "limit", 0, "Number of entries (default from config)")
	rootCmd.AddCommand(badgesCmd, rankingCmd)
}

var rankingLimit int

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List badges and milestones",
	RunE:  runBadges,
}

type badgeRow struct {
	ID          string `json:"id"`
	Name        string `json:"displayName"`
	Icon        string `json:"icon"`
	Requirement string `json:"requirementDescription"`
	Unlocked    bool   `json:"unlocked"`
}

type milestoneRow struct {
	Threshold int  `json:"threshold"`
	Bonus     int  `json:"bonusPoints"`
	Reached   bool `json:"reached"`
}

func runBadges(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	st := d.Engine.State()
	var badges []badgeRow
	for _, b := range d.Engine.BadgeDefinitions() {
		badges = append(badges, badgeRow{
			ID: string(b.ID), Name: b.DisplayName, Icon: b.Icon,
			Requirement: b.RequirementDescription, Unlocked: st.HasBadge(b.ID),
		})
	}
	var milestones []milestoneRow
	for _, m := range d.Engine.MilestoneDefinitions() {
		milestones = append(milestones, milestoneRow{
			Threshold: m.Threshold, Bonus: m.BonusPoints, Reached: st.HasMilestone(m.Threshold),
		})
	}

	view := map[string]any{"badges": badges, "milestones": milestones}
	return output(view, func(out io.Writer) error {
		w := newTable(out)
		fmt.Fprintln(w, "BADGE\tNAME\tREQUIREMENT\tUNLOCKED")
		for _, b := range badges {
			fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", b.Icon, b.ID, b.Name, b.Requirement, checkmark(b.Unlocked))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "MILESTONE\tBONUS\tREACHED\t")
		for _, m := range milestones {
			fmt.Fprintf(w, "%d\t+%d\t%s\t\n", m.Threshold, m.Bonus, checkmark(m.Reached))
		}
		return w.Flush()
	})
}

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Show the leaderboard",
	RunE:  runRanking,
}

func runRanking(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	limit := rankingLimit
	if limit <= 0 {
		limit = d.Config.Ranking.Limit
	}
	entries, err := d.Ranking.Ranking(cmd.Context(), d.Engine.Points(), limit)
	if err != nil {
		return err
	}

	return output(entries, func(out io.Writer) error {
		w := newTable(out)
		fmt.Fprintln(w, "RANK\tNAME\tPOINTS\t")
		for _, e := range entries {
			marker := ""
			if e.IsCurrent {
				marker = "<"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", e.Rank, e.Name, e.Points, marker)
		}
		return w.Flush()
	})
}
