package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCIILogo is printed at the start of interactive runs
const ASCIILogo = `
    ╔══════════════════════════════════════════════════════╗
    ║ ██████╗ ██╗  ██╗███████╗ ██████╗ ██╗     ██╗      ██║
    ║ ██╔══██╗╚██╗██╔╝██╔════╝██╔═══██╗██║     ██║      ██║
    ║ ██████╔╝ ╚███╔╝ █████╗  ██║   ██║██║     ██║   █╗ ██║
    ║ ██╔═══╝  ██╔██╗ ██╔══╝  ██║   ██║██║     ██║  ███╗██║
    ║ ██║     ██╔╝ ██╗██║     ╚██████╔╝███████╗███████╗╚██║
    ║ ╚═╝     ╚═╝  ╚═╝╚═╝      ╚═════╝ ╚══════╝╚══════╝ ╚═╝
    ║          BULK FOLLOW VISIBILITY SWITCHER             ║
    ╚══════════════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

var (
	outMu     sync.Mutex
	out       io.Writer = os.Stdout
	quietMode bool
)

// SetOutput redirects all terminal output. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	outMu.Lock()
	defer outMu.Unlock()
	quietMode = quiet
}

// IsQuiet reports whether quiet mode is on
func IsQuiet() bool {
	outMu.Lock()
	defer outMu.Unlock()
	return quietMode
}

func printf(isError bool, format string, args ...interface{}) {
	outMu.Lock()
	defer outMu.Unlock()
	if quietMode && !isError {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	printf(false, "%s", Cyan(ASCIILogo))
}

// PrintError prints an error message in red, followed by err when given
func PrintError(msg string, err ...error) {
	if len(err) > 0 && err[0] != nil {
		msg = msg + ": " + err[0].Error()
	}
	printf(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf(false, "%s\n", Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	printf(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string) {
	printf(false, "%s\n", Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf(false, "%s\n", Magenta(msg))
}
