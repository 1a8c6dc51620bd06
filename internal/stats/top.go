package stats

import (
	"sort"

	"github.com/verte-zerg/mathrally/internal/model"
)

// TopOperationsByVolume returns the n most practiced operations.
func TopOperationsByVolume(aggs []model.OperationAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.OperationAggregate, len(aggs))
	copy(items, aggs)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Answers == items[j].Answers {
			return items[i].Operation < items[j].Operation
		}
		return items[i].Answers > items[j].Answers
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].Operation)
	}
	return out
}
