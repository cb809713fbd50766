package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"

	"github.com/bilalcaliskan/portscan/internal/scanner"
	"github.com/bilalcaliskan/portscan/internal/target"
)

var errUsage = errors.New("usage error")

type options struct {
	ip        string
	startPort uint16
	endPort   uint16
	verbose   bool
	maxTasks  int
	resolve   bool
	dnsServer string
	logLevel  string
}

// parseOptions reads the command line. Every flag has a short and a long
// spelling, e.g. -s and --start-port.
func parseOptions(args []string, stderr io.Writer) (options, error) {
	var (
		opts       options
		start, end uint
	)

	fs := flag.NewFlagSet("portscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: portscan -i <ip> [-s start] [-e end] [-t max-tasks] [-v]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	for _, name := range []string{"i", "ip"} {
		fs.StringVar(&opts.ip, name, "", "target IP address to scan (required)")
	}
	for _, name := range []string{"s", "start-port"} {
		fs.UintVar(&start, name, uint(scanner.DefaultStartPort), "first port of the range")
	}
	for _, name := range []string{"e", "end-port"} {
		fs.UintVar(&end, name, uint(scanner.DefaultEndPort), "last port of the range")
	}
	for _, name := range []string{"v", "verbose"} {
		fs.BoolVar(&opts.verbose, name, false, "print a line before each port is probed")
	}
	for _, name := range []string{"t", "max-tasks"} {
		fs.IntVar(&opts.maxTasks, name, scanner.DefaultMaxTasks, "maximum number of concurrent probes")
	}
	fs.BoolVar(&opts.resolve, "resolve", false, "accept a hostname and resolve it over DNS")
	fs.StringVar(&opts.dnsServer, "dns-server", target.DefaultServer, "DNS server used with --resolve")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "diagnostic log level written to stderr")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if opts.ip == "" {
		return options{}, fmt.Errorf("%w: -i/--ip is required", errUsage)
	}
	if start > math.MaxUint16 || end > math.MaxUint16 {
		return options{}, fmt.Errorf("%w: ports must be within 0..%d", errUsage, math.MaxUint16)
	}
	if opts.maxTasks < 1 {
		return options{}, fmt.Errorf("%w: -t/--max-tasks must be at least 1", errUsage)
	}
	opts.startPort, opts.endPort = uint16(start), uint16(end)
	return opts, nil
}
