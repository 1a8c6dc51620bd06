package stats

import (
	"sort"

	"github.com/verte-zerg/mathrally/internal/model"
)

// SelectWeakOperations selects the lowest-accuracy operations, weakest first.
// Operations with fewer than minAnswers answers are ignored.
func SelectWeakOperations(aggs []model.OperationAggregate, top int, minAnswers int64) []model.Operation {
	candidates := make([]model.OperationAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Answers < minAnswers {
			continue
		}
		if _, err := model.ParseOperation(agg.Operation); err != nil {
			continue
		}
		candidates = append(candidates, agg)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := weakAccuracy(candidates[i])
		aj := weakAccuracy(candidates[j])
		if ai == aj {
			return candidates[i].Operation < candidates[j].Operation
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]model.Operation, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, model.Operation(candidates[i].Operation))
	}
	return out
}

func weakAccuracy(agg model.OperationAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}

// AggregatesFromStats converts lifetime per-operation stats into aggregates.
func AggregatesFromStats(byOp map[model.Operation]model.OperationStats) []model.OperationAggregate {
	out := make([]model.OperationAggregate, 0, len(byOp))
	for _, op := range model.AllOperations() {
		st, ok := byOp[op]
		if !ok || st.Answered == 0 {
			continue
		}
		out = append(out, model.OperationAggregate{
			Operation:     string(op),
			Correct:       st.Correct,
			Incorrect:     st.Answered - st.Correct,
			ResponseSumMs: int64(st.ResponseSum * 1000),
			Answers:       int64(st.Answered),
		})
	}
	return out
}

// MergeAggregates sums aggregates per operation, keeping first-seen order.
func MergeAggregates(sets ...[]model.OperationAggregate) []model.OperationAggregate {
	index := map[string]int{}
	var out []model.OperationAggregate
	for _, set := range sets {
		for _, agg := range set {
			i, ok := index[agg.Operation]
			if !ok {
				index[agg.Operation] = len(out)
				out = append(out, agg)
				continue
			}
			out[i].Correct += agg.Correct
			out[i].Incorrect += agg.Incorrect
			out[i].ResponseSumMs += agg.ResponseSumMs
			out[i].Answers += agg.Answers
		}
	}
	return out
}
