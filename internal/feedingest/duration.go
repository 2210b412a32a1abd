package feedingest

import (
	"strconv"
	"strings"
)

// ParseDuration parses an iTunes-style duration string as either integer
// seconds or colon-separated H:M:S / M:S, per spec.md §8's round-trip law.
// The second return value is false for malformed input (the "unknown" case).
func ParseDuration(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}

	parts := strings.Split(trimmed, ":")
	switch len(parts) {
	case 1:
		seconds, err := strconv.Atoi(parts[0])
		if err != nil || seconds < 0 {
			return 0, false
		}
		return seconds, true
	case 2:
		minutes, err1 := strconv.Atoi(parts[0])
		seconds, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || minutes < 0 || seconds < 0 || seconds >= 60 {
			return 0, false
		}
		return minutes*60 + seconds, true
	case 3:
		hours, err1 := strconv.Atoi(parts[0])
		minutes, err2 := strconv.Atoi(parts[1])
		seconds, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || hours < 0 || minutes < 0 || minutes >= 60 || seconds < 0 || seconds >= 60 {
			return 0, false
		}
		return hours*3600 + minutes*60 + seconds, true
	default:
		return 0, false
	}
}
