// Package printer writes job output lines to the console when printing is
// enabled.
package printer

import (
	"io"
	"os"
	"sync"
)

// Printer writes whole lines. Concurrent relays share one Printer, so each
// line is written under a lock and never interleaves with another.
type Printer struct {
	enabled bool

	mu sync.Mutex
	w  io.Writer
}

// New returns a printer writing to w, or stdout when w is nil.
func New(enabled bool, w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{enabled: enabled, w: w}
}

func (p *Printer) Enabled() bool { return p != nil && p.enabled }

// Println writes line plus a newline. Write errors are dropped: a closed
// console must not take the scheduler down.
func (p *Printer) Println(line string) {
	if !p.Enabled() {
		return
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	p.mu.Lock()
	_, _ = p.w.Write(buf)
	p.mu.Unlock()
}
