package game

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAnswer normalizes typed input into an integer answer. Spaces and
// thousands separators are ignored.
func ParseAnswer(input string) (int, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == ',' || r == '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if cleaned == "" {
		return 0, fmt.Errorf("empty answer")
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid answer %q: %w", input, err)
	}
	return n, nil
}

// parseChoice reads a 1-based menu choice in [1, max].
func parseChoice(input string, max int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}
