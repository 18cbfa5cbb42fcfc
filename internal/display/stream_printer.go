package display

import (
	"fmt"
	"io"
	"strings"
)

// StreamPrinter writes successive formatted snapshots to a plain terminal.
// Snapshots normally grow by appending, so only the new suffix is printed.
// When a snapshot does not extend the previous one (the classifier
// reinterpreted the text, or the placeholder gave way to the answer) the
// current block is finished and the new snapshot starts on a fresh line.
type StreamPrinter struct {
	w           io.Writer
	lastPrinted string
	blockUp     bool
}

func NewStreamPrinter(w io.Writer) *StreamPrinter {
	return &StreamPrinter{w: w}
}

// Update prints whatever the new snapshot adds over the previous one.
func (p *StreamPrinter) Update(formatted string) {
	if formatted == "" || formatted == p.lastPrinted {
		return
	}

	if strings.HasPrefix(formatted, p.lastPrinted) {
		fmt.Fprint(p.w, formatted[len(p.lastPrinted):])
	} else {
		if p.blockUp {
			fmt.Fprintln(p.w)
		}
		fmt.Fprint(p.w, formatted)
	}
	p.lastPrinted = formatted
	p.blockUp = true
}

// Finish closes the current block with a newline.
func (p *StreamPrinter) Finish() {
	if p.blockUp {
		fmt.Fprintln(p.w)
		p.blockUp = false
	}
	p.lastPrinted = ""
}
