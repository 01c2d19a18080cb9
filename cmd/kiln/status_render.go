package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const statusLabelWidth = 24

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "[OK]"
	if kind == statusError {
		statusText = "[FAIL]"
	}
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", statusText)
	if !colorize {
		return line
	}
	color := ansiGreen
	if kind == statusError {
		color = ansiRed
	}
	return color + line + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
