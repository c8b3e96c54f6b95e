package helpers

import (
	"fmt"
	"io"

	"github.com/devantler-tech/converge/pkg/perf"
)

// WriteSummary prints the tracker's recorded timings as a table under a
// blank line. Nothing is written when no timings were recorded.
func WriteSummary(writer io.Writer, tracker *perf.Tracker) {
	summary := tracker.Summary()
	if len(summary) == 0 {
		return
	}

	_, _ = fmt.Fprintf(writer, "\n%s", perf.FormatSummary(summary))
}
