// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/mathrally/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes questions per minute and accuracy for a session.
func SessionMetrics(questions, correct int, durationMs int64) (qpm, accuracy float64) {
	accuracy = model.AccuracyPercentage(correct, questions)
	if durationMs <= 0 {
		return 0, accuracy
	}
	minutes := float64(durationMs) / 60000.0
	if minutes <= 0 {
		return 0, accuracy
	}
	return float64(questions) / minutes, accuracy
}

// OperationAccuracy returns the accuracy percentage of an aggregate.
func OperationAccuracy(agg model.OperationAggregate) float64 {
	return model.AccuracyPercentage(agg.Correct, agg.Correct+agg.Incorrect)
}

// OperationResponse returns the mean response time in seconds of an aggregate.
func OperationResponse(agg model.OperationAggregate) float64 {
	if agg.Answers <= 0 {
		return 0
	}
	return float64(agg.ResponseSumMs) / float64(agg.Answers) / 1000.0
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary of archived sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalAcc, totalResp float64
	var questions, stages int
	var played int64
	bestAcc := 0.0
	for _, s := range sessions {
		_, acc := SessionMetrics(s.Questions, s.Correct, s.DurationMs)
		totalAcc += acc
		totalResp += s.AvgResponseSec
		questions += s.Questions
		stages += s.Stages
		played += s.DurationMs
		if acc > bestAcc {
			bestAcc = acc
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %s", humanize.Comma(int64(len(sessions)))),
		fmt.Sprintf("Questions: %s", humanize.Comma(int64(questions))),
		fmt.Sprintf("Stages: %d", stages),
		fmt.Sprintf("Avg Accuracy: %.1f%%", totalAcc/count),
		fmt.Sprintf("Best Accuracy: %.1f%%", bestAcc),
		fmt.Sprintf("Avg Response: %.2fs", totalResp/count),
		fmt.Sprintf("Time Played: %s", (time.Duration(played) * time.Millisecond).Round(time.Second)),
		"",
	}
	return writeLines(w, lines)
}

// RenderCurves prints accuracy and speed sparklines, one point per session.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window, width int) error {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	resp := make([]float64, len(sessions))
	for i, s := range sessions {
		_, acc := SessionMetrics(s.Questions, s.Correct, s.DurationMs)
		accs[i] = acc
		resp[i] = s.AvgResponseSec
	}
	return renderSparkBlock(w, "Learning Curves", []series{
		{name: "Accuracy", values: MovingAverage(accs, window), unit: "%"},
		{name: "Response", values: MovingAverage(resp, window), unit: "s"},
	}, width)
}

// RenderOperationTable prints per-operation aggregates, weakest first.
func RenderOperationTable(w io.Writer, title string, aggs []model.OperationAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No operation stats found.")
		return err
	}
	rows := make([]model.OperationAggregate, len(aggs))
	copy(rows, aggs)
	sort.Slice(rows, func(i, j int) bool {
		ai, aj := OperationAccuracy(rows[i]), OperationAccuracy(rows[j])
		if ai == aj {
			return rows[i].Operation < rows[j].Operation
		}
		return ai < aj
	})

	headers := []string{"Operation", "Accuracy", "Avg Response (s)", "Correct", "Incorrect"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			operationLabel(r.Operation),
			fmt.Sprintf("%.1f%%", OperationAccuracy(r)),
			fmt.Sprintf("%.2f", OperationResponse(r)),
			humanize.Comma(int64(r.Correct)),
			humanize.Comma(int64(r.Incorrect)),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	lines := append([]string{title}, formatTable(headers, tableRows, rightAlign)...)
	lines = append(lines, "")
	return writeLines(w, lines)
}

// RenderOperationCurves prints per-operation accuracy sparklines.
func RenderOperationCurves(w io.Writer, sessions []model.SessionAggregate, perSession map[string]map[string]model.OperationAggregate, ops []string, window, width int) error {
	if len(ops) == 0 || len(sessions) == 0 {
		return nil
	}
	var all []series
	for _, op := range ops {
		accSeries := make([]float64, 0, len(sessions))
		for _, s := range sessions {
			agg, ok := perSession[s.SessionID][op]
			if !ok {
				continue
			}
			accSeries = append(accSeries, OperationAccuracy(agg))
		}
		if len(accSeries) == 0 {
			continue
		}
		all = append(all, series{name: operationLabel(op), values: MovingAverage(accSeries, window), unit: "%"})
	}
	return renderSparkBlock(w, "Per-Operation Accuracy", all, width)
}

func operationLabel(op string) string {
	parsed, err := model.ParseOperation(op)
	if err != nil {
		return op
	}
	return parsed.Name()
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
