// Package report turns scan events into output lines.
package report

import (
	"fmt"
	"io"
	"net/netip"
	"sync"
)

// Reporter receives the events of one scan run. Implementations must be
// safe for concurrent use: Open is called from many probe units at once.
type Reporter interface {
	Started(target netip.Addr, start, end uint16)
	Scanning(port uint16)
	Open(port uint16)
	Completed()
}

// Console writes one human-readable line per event. Each line is written
// with a single Write call under a lock, so concurrent reports never
// interleave partial lines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Started(target netip.Addr, start, end uint16) {
	c.line(fmt.Sprintf("Scanning ports on %s from %d to %d...", target, start, end))
}

func (c *Console) Scanning(port uint16) {
	c.line(fmt.Sprintf("Scanning port %d...", port))
}

func (c *Console) Open(port uint16) {
	c.line(fmt.Sprintf("Port %d is open", port))
}

func (c *Console) Completed() {
	c.line("Scan completed.")
}

func (c *Console) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// output is best effort; a closed stdout must not kill a probe unit
	_, _ = io.WriteString(c.w, s+"\n")
}

// Multi forwards every event to each reporter in order.
type Multi []Reporter

func (m Multi) Started(target netip.Addr, start, end uint16) {
	for _, r := range m {
		r.Started(target, start, end)
	}
}

func (m Multi) Scanning(port uint16) {
	for _, r := range m {
		r.Scanning(port)
	}
}

func (m Multi) Open(port uint16) {
	for _, r := range m {
		r.Open(port)
	}
}

func (m Multi) Completed() {
	for _, r := range m {
		r.Completed()
	}
}

// Discard drops every event.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Started(netip.Addr, uint16, uint16) {}
func (discard) Scanning(uint16)                    {}
func (discard) Open(uint16)                        {}
func (discard) Completed()                         {}
