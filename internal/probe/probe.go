// Package probe performs a single time-boxed TCP connect attempt.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"
)

// DefaultTimeout bounds every connection attempt.
const DefaultTimeout = time.Second

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober dials one port at a time. The zero value dials with a plain
// net.Dialer, uses DefaultTimeout and discards verbose output.
type Prober struct {
	Dialer  Dialer
	Timeout time.Duration
	// Out receives the verbose "Scanning port" line. Writes are serialized.
	Out io.Writer

	mu sync.Mutex
}

// New returns a Prober writing verbose lines to out.
func New(out io.Writer) *Prober {
	return &Prober{
		Dialer:  &net.Dialer{},
		Timeout: DefaultTimeout,
		Out:     out,
	}
}

// Probe reports whether target:port accepted a TCP connection before the
// timeout elapsed. Refused, unreachable, reset and timed-out attempts all
// come back as false.
func (p *Prober) Probe(ctx context.Context, target netip.Addr, port uint16, verbose bool) bool {
	endpoint := netip.AddrPortFrom(target.Unmap(), port)
	if verbose {
		p.printf("Scanning port %d...\n", port)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d Dialer = p.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	conn, err := d.DialContext(ctx, "tcp", endpoint.String())
	if err != nil {
		return false
	}
	_ = conn.Close()
	// a dialer that ignores ctx may return after the deadline
	return ctx.Err() == nil
}

func (p *Prober) printf(format string, args ...interface{}) {
	if p.Out == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, format, args...)
}
