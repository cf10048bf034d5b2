package cli

import (
	"io"

	"github.com/mattn/go-isatty"
)

// Marks are the status markers printed in front of result lines.
type Marks struct {
	OK   string
	Fail string
}

var (
	terminalMarks = Marks{OK: "✓", Fail: "✗"}
	plainMarks    = Marks{OK: "ok", Fail: "FAIL"}
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// MarksFor picks status markers for w: symbols on a terminal, words when
// output is piped or captured.
func MarksFor(w io.Writer) Marks {
	if IsTerminal(w) {
		return terminalMarks
	}
	return plainMarks
}
