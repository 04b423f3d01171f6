package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/bamsammich/extsort/internal/stats"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
)

// completionSummary builds the final summary from a snapshot, followed by
// up to maxListedFailures failed paths.
// Format: done ✓  files 48,917  size 2.1 GiB  avg 641 MB/s  time 3m 17s  buckets 12  errors 0
func completionSummary(snap stats.Snapshot, failed []string) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	status := okColor.Sprint("done ✓")
	errText := fmt.Sprintf("errors %d", snap.Errors())
	if snap.Errors() > 0 {
		status = failColor.Sprint("done ✗")
		errText = failColor.Sprint(errText)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  files %s  size %s  avg %s  time %s  buckets %d",
		status,
		FormatCount(snap.FilesCopied),
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
		snap.BucketsCreated,
	)
	if snap.EntriesSkipped > 0 {
		fmt.Fprintf(&b, "  skipped %s", FormatCount(snap.EntriesSkipped))
	}
	b.WriteString("  ")
	b.WriteString(errText)

	for i, path := range failed {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "\n  %s", dimColor.Sprintf("... and %d more", len(failed)-maxListedFailures))
			break
		}
		fmt.Fprintf(&b, "\n  failed: %s", path)
	}

	return b.String()
}
