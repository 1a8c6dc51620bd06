package stats

import (
	"fmt"

	"github.com/verte-zerg/mathrally/internal/achievement"
)

// GalleryLines renders achievements grouped by category with rarity and progress.
func GalleryLines(groups []achievement.Group) []string {
	var lines []string
	for i, g := range groups {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, g.Category.Title())
		rows := make([][]string, 0, len(g.Achievements))
		for _, a := range g.Achievements {
			mark := " "
			if a.Unlocked {
				mark = "✓"
			}
			rows = append(rows, []string{
				mark,
				a.Icon,
				a.Title,
				a.Rarity.DisplayName(),
				fmt.Sprintf("%d pts", a.Points),
				a.ProgressString(),
			})
		}
		lines = append(lines, formatTable(nil, rows, map[int]bool{4: true, 5: true})...)
	}
	return lines
}
