package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the arbor banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Greens, trunk to canopy.
	lines := []struct {
		text  string
		color string
	}{
		{"    _         _               ", "#14532d"},
		{"   / \\   _ __| |__   ___  _ __ ", "#166534"},
		{"  / _ \\ | '__| '_ \\ / _ \\| '__|", "#15803d"},
		{" / ___ \\| |  | |_) | (_) | |   ", "#16a34a"},
		{"/_/   \\_\\_|  |_.__/ \\___/|_|   ", "#22c55e"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
