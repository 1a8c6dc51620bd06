package profile

import (
	"strconv"
	"strings"
)

const fallbackStem = "racer"

// slugifyName maps a display name to a file stem made of [a-z0-9-].
func slugifyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fallbackStem
	}
	b := strings.Builder{}
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			lastDash = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallbackStem
	}
	if len(out) > 48 {
		out = strings.TrimRight(out[:48], "-")
	}
	if reservedStem(out) {
		out += "-" + fallbackStem
	}
	return out
}

// reservedStem reports device names Windows refuses as file names.
func reservedStem(stem string) bool {
	switch stem {
	case "con", "prn", "aux", "nul":
		return true
	}
	if len(stem) == 4 && (strings.HasPrefix(stem, "com") || strings.HasPrefix(stem, "lpt")) {
		return stem[3] >= '1' && stem[3] <= '9'
	}
	return false
}

// uniqueStem appends -2, -3, ... until base is not taken.
func uniqueStem(base string, taken map[string]struct{}) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
