package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	faint    = color.New(color.Faint).SprintFunc()
)

// success prints a human status line prefixed with a check mark.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", okMark("✓"), fmt.Sprintf(format, args...))
}

// failure prints a human status line prefixed with a cross.
func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", failMark("✗"), fmt.Sprintf(format, args...))
}

// detail prints an indented key/value line.
func detail(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "  %s %v\n", faint(key+":"), value)
}
