package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bilalcaliskan/portscan/internal/logging"
	"github.com/bilalcaliskan/portscan/internal/probe"
	"github.com/bilalcaliskan/portscan/internal/report"
	"github.com/bilalcaliskan/portscan/internal/scanner"
	"github.com/bilalcaliskan/portscan/internal/target"
)

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logging.New(os.Stderr, opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level: %v\n", err)
		os.Exit(2)
	}

	if err := run(context.Background(), opts, os.Stdout, log); err != nil {
		log.WithError(err).Error("scan aborted")
		os.Exit(2)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer, log *logrus.Logger) error {
	var resolver *target.Resolver
	if opts.resolve {
		resolver = target.NewResolver(opts.dnsServer)
	}
	addr, err := target.ParseOrResolve(ctx, opts.ip, resolver)
	if err != nil {
		return err
	}
	if opts.resolve {
		log.WithFields(logrus.Fields{"host": opts.ip, "addr": addr}).Info("target resolved")
	}

	cfg := scanner.Config{
		Target:    addr,
		StartPort: opts.startPort,
		EndPort:   opts.endPort,
		MaxTasks:  opts.maxTasks,
		Verbose:   opts.verbose,
	}
	s := scanner.New(cfg,
		scanner.WithProber(probe.New(nil)),
		scanner.WithReporter(report.NewConsole(stdout)),
		scanner.WithLogger(log),
	)
	_, err = s.Run(ctx)
	return err
}
