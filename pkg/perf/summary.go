package perf

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// FormatSummary renders durations as an aligned table sorted by name.
func FormatSummary(summary map[string]time.Duration) string {
	if len(summary) == 0 {
		return "no metrics recorded\n"
	}

	names := slices.Sorted(maps.Keys(summary))
	width := len("OPERATION")

	for _, name := range names {
		width = max(width, len(name))
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "%-*s  %s\n", width, "OPERATION", "DURATION")

	for _, name := range names {
		fmt.Fprintf(&builder, "%-*s  %s\n", width, name, summary[name].Round(time.Millisecond))
	}

	return builder.String()
}
