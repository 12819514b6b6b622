package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// HumanDuration converts an ISO-8601 duration (the YouTube API encoding,
// e.g. "PT1H2M3S") into a human-readable form ("1h 2m 3s"). Input that is
// not ISO-8601 is assumed to be human-readable already and returned as is.
func HumanDuration(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	m := isoDuration.FindStringSubmatch(strings.ToUpper(trimmed))
	if m == nil {
		return trimmed
	}

	days := atoi(m[1])
	hours := atoi(m[2]) + days*24
	minutes := atoi(m[3])
	seconds := atoi(m[4])

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
