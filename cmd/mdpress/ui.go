package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"mdpress/internal/tui/styles"

	"github.com/mattn/go-isatty"
)

func successText(s string) string { return styles.Theme.Success.Render("✓ " + s) }
func errorText(s string) string   { return styles.Theme.Error.Render("✗ " + s) }
func warningText(s string) string { return styles.Theme.Help.Render("! " + s) }
func infoText(s string) string    { return styles.Theme.Muted.Render(s) }

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, styles.Theme.Title.Render(title))
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, "  "+styles.Theme.Path.Render(line))
	}
}

// interactive reports whether w is a terminal worth drawing a TUI on.
func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isS3(arg string) bool {
	return strings.HasPrefix(arg, "s3://")
}
