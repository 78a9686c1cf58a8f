package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"constellation/internal/traverse"
)

func printReport(w io.Writer, rep traverse.Report, location string) {
	var sb strings.Builder
	sb.WriteString(color.CyanString("Constellation run %s\n", rep.RunID))
	sb.WriteString(strings.Repeat("─", 60) + "\n")

	fmt.Fprintf(&sb, "  %-22s %s\n", "Root:", rep.Root)
	fmt.Fprintf(&sb, "  %-22s %s\n", "Output:", location)
	fmt.Fprintf(&sb, "  %-22s %d\n", "Directories:", rep.Directories)
	fmt.Fprintf(&sb, "  %-22s %d\n", "Files aggregated:", rep.Files)
	fmt.Fprintf(&sb, "  %-22s %s\n", "Failed saves:", countString(rep.SaveFailures))
	fmt.Fprintf(&sb, "  %-22s %s\n", "Fallback documents:", countString(rep.Fallbacks))
	fmt.Fprintf(&sb, "  %-22s %s\n", "Duration:", color.HiBlackString(rep.Duration.Round(time.Millisecond).String()))

	status := color.GreenString("✓ done")
	if rep.SaveFailures > 0 || rep.Fallbacks > 0 {
		status = color.YellowString("! done with degraded output")
	}
	sb.WriteString("\n" + status + "\n")
	fmt.Fprint(w, sb.String())
}

func countString(n int) string {
	if n == 0 {
		return color.GreenString("0")
	}
	return color.RedString("%d", n)
}
