// Package target turns user input into the address a scan runs against.
package target

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultServer is the resolver queried when none is configured.
const DefaultServer = "8.8.8.8:53"

var (
	ErrInvalidAddress = errors.New("not a valid IPv4 or IPv6 address")
	ErrNoAddress      = errors.New("no address records found")
)

// Parse accepts an IPv4 or IPv6 literal. Zones are dropped and
// IPv4-mapped IPv6 addresses are returned in their IPv4 form.
func Parse(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return addr.WithZone("").Unmap(), nil
}

// Resolver looks hostnames up with plain DNS queries.
type Resolver struct {
	// Server is a host:port of the DNS server to ask.
	Server string
	Client *dns.Client
}

// NewResolver returns a Resolver asking server over UDP.
func NewResolver(server string) *Resolver {
	if server == "" {
		server = DefaultServer
	}
	return &Resolver{
		Server: server,
		Client: &dns.Client{Net: "udp", Timeout: 2 * time.Second},
	}
}

// Resolve returns the first A record for host, falling back to AAAA.
func (r *Resolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	fqdn := dns.Fqdn(strings.TrimSpace(host))
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, err := r.lookup(ctx, fqdn, qtype)
		if err == nil {
			return addr, nil
		}
		if !errors.Is(err, ErrNoAddress) {
			return netip.Addr{}, err
		}
	}
	return netip.Addr{}, fmt.Errorf("%w for %s", ErrNoAddress, host)
}

func (r *Resolver) lookup(ctx context.Context, fqdn string, qtype uint16) (netip.Addr, error) {
	client := r.Client
	if client == nil {
		client = &dns.Client{}
	}

	var msg dns.Msg
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	in, _, err := client.ExchangeContext(ctx, &msg, r.Server)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("query %s %s: %w", dns.TypeToString[qtype], fqdn, err)
	}
	if in.Rcode == dns.RcodeNameError {
		return netip.Addr{}, ErrNoAddress
	}
	if in.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("query %s %s: %s", dns.TypeToString[qtype], fqdn, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		var ip []byte
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A
		case *dns.AAAA:
			ip = rec.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			return addr.Unmap(), nil
		}
	}
	return netip.Addr{}, ErrNoAddress
}

// ParseOrResolve tries s as a literal first. When that fails and r is not
// nil, s is treated as a hostname.
func ParseOrResolve(ctx context.Context, s string, r *Resolver) (netip.Addr, error) {
	addr, err := Parse(s)
	if err == nil || r == nil {
		return addr, err
	}
	return r.Resolve(ctx, s)
}
