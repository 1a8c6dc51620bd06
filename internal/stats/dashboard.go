package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
)

// ProfileLines renders the lifetime overview of a profile for the parent dashboard.
func ProfileLines(p *profile.Profile, now time.Time) []string {
	o := p.OverallStats
	lines := []string{
		fmt.Sprintf("Player: %s", p.PlayerName),
		fmt.Sprintf("Racing since %s, last played %s", p.CreatedAt.Local().Format("2006-01-02"), humanize.RelTime(p.LastPlayedAt, now, "ago", "from now")),
		"",
		fmt.Sprintf("Questions answered: %s (%s correct)", humanize.Comma(int64(o.TotalQuestions)), humanize.Comma(int64(o.CorrectAnswers))),
		fmt.Sprintf("Accuracy: %.1f%%", o.Accuracy()),
		fmt.Sprintf("Best streak: %d", o.BestStreak),
		fmt.Sprintf("Average response: %.2fs", o.AverageResponseTime),
		fmt.Sprintf("Sessions: %d, time played: %s", o.SessionsPlayed, o.TotalPlayTime.Round(time.Second)),
		fmt.Sprintf("Comebacks: %d", o.Comebacks),
	}
	if o.FavoriteOperation != "" {
		lines = append(lines, fmt.Sprintf("Favorite operation: %s", o.FavoriteOperation.Name()))
	}
	if o.FavoriteDifficulty != "" {
		lines = append(lines, fmt.Sprintf("Favorite series: %s", o.FavoriteDifficulty.SeriesName()))
	}

	lines = append(lines, "", "Rally Progress")
	headers := []string{"Series", "Stages", "Best Accuracy", "Best Time"}
	var rows [][]string
	for _, d := range model.AllDifficulties() {
		sp := p.Rally.Series[d]
		best := "-"
		if sp.BestCompletionSeconds > 0 {
			best = (time.Duration(sp.BestCompletionSeconds * float64(time.Second))).Round(time.Second).String()
		}
		rows = append(rows, []string{
			d.SeriesName(),
			fmt.Sprintf("%d", sp.StagesCompleted),
			fmt.Sprintf("%.1f%%", sp.BestAccuracy),
			best,
		})
	}
	lines = append(lines, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true})...)

	aggs := AggregatesFromStats(o.ByOperation)
	if len(aggs) > 0 {
		lines = append(lines, "", "Operations")
		var opRows [][]string
		for _, agg := range aggs {
			opRows = append(opRows, []string{
				operationLabel(agg.Operation),
				fmt.Sprintf("%.1f%%", OperationAccuracy(agg)),
				fmt.Sprintf("%.2fs", OperationResponse(agg)),
				humanize.Comma(agg.Answers),
			})
		}
		lines = append(lines, formatTable([]string{"Operation", "Accuracy", "Avg Response", "Answered"}, opRows, map[int]bool{1: true, 2: true, 3: true})...)
		if weak := SelectWeakOperations(aggs, 1, 10); len(weak) > 0 {
			lines = append(lines, fmt.Sprintf("Needs practice: %s", weak[0].Name()))
		}
	}

	lines = append(lines, "", fmt.Sprintf("Achievements: %d unlocked, %s points", p.Achievements.UnlockedCount(), humanize.Comma(int64(p.Achievements.TotalPoints))))
	return lines
}
