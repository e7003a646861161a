package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"                       _ _           ", "#4ade80"},
	{"  ___  ___ _ __   __ _| (_) ___ _ __ ", "#34d399"},
	{" / _ \\/ __| '_ \\ / _` | | |/ _ \\ '__|", "#2dd4bf"},
	{"|  __/\\__ \\ |_) | (_| | | |  __/ |   ", "#22d3ee"},
	{" \\___||___/ .__/ \\__,_|_|_|\\___|_|   ", "#38bdf8"},
	{"          |_|                        ", "#60a5fa"},
}

// PrintBanner writes the espalier ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}
