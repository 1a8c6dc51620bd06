package stats

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	terminalWidthBackup = 80
	minSparkWidth       = 10
	sparkLabelWidth     = 12
	sparkRangeWidth     = 20
)

type series struct {
	name   string
	values []float64
	unit   string
}

// TerminalWidth returns the width of stdout, or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// SparkWidthFor computes the sparkline width that fits a total line width.
func SparkWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minSparkWidth
	}
	w := totalWidth - sparkLabelWidth - sparkRangeWidth
	if w < minSparkWidth {
		w = minSparkWidth
	}
	return w
}

func renderSparkBlock(w io.Writer, title string, all []series, totalWidth int) error {
	if len(all) == 0 {
		return nil
	}
	width := SparkWidthFor(totalWidth)
	lines := []string{title}
	for _, s := range all {
		values := downsample(s.values, width)
		lo, hi := minMax(s.values)
		label := runewidth.FillRight(s.name, sparkLabelWidth-1)
		lines = append(lines, fmt.Sprintf("%s %s  %.1f%s..%.1f%s", label, Sparkline(values), lo, s.unit, hi, s.unit))
	}
	lines = append(lines, "")
	return writeLines(w, lines)
}

// downsample averages values into at most width buckets.
func downsample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
