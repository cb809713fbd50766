package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bilalcaliskan/portscan/internal/nettest"
)

func TestParseOptions_Defaults(t *testing.T) {
	opts, err := parseOptions([]string{"-i", "127.0.0.1"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.ip != "127.0.0.1" || opts.startPort != 1 || opts.endPort != 1024 || opts.maxTasks != 100 || opts.verbose {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}

func TestParseOptions_LongAndShort(t *testing.T) {
	cases := [][]string{
		{"-i", "::1", "-s", "20", "-e", "30", "-t", "5", "-v"},
		{"--ip", "::1", "--start-port", "20", "--end-port", "30", "--max-tasks", "5", "--verbose"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			opts, err := parseOptions(args, io.Discard)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.ip != "::1" || opts.startPort != 20 || opts.endPort != 30 || opts.maxTasks != 5 || !opts.verbose {
				t.Fatalf("unexpected options %+v", opts)
			}
		})
	}
}

func TestParseOptions_Invalid(t *testing.T) {
	cases := map[string][]string{
		"missing ip":    {"-s", "1"},
		"port overflow": {"-i", "127.0.0.1", "-e", "65536"},
		"negative port": {"-i", "127.0.0.1", "-s", "-1"},
		"zero tasks":    {"-i", "127.0.0.1", "-t", "0"},
		"stray arg":     {"-i", "127.0.0.1", "extra"},
		"unknown flag":  {"-i", "127.0.0.1", "--udp"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseOptions(args, io.Discard); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}

func TestParseOptions_Help(t *testing.T) {
	var buf bytes.Buffer
	_, err := parseOptions([]string{"-h"}, &buf)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(buf.String(), "max-tasks") {
		t.Fatalf("usage text missing flags: %q", buf.String())
	}
}

func TestRun_RejectsBadTarget(t *testing.T) {
	log := logrus.New()
	log.Out = io.Discard
	var out bytes.Buffer
	err := run(context.Background(), options{ip: "not-an-ip", startPort: 1, endPort: 2, maxTasks: 1, logLevel: "warn"}, &out, log)
	if err == nil {
		t.Fatal("expected error for an invalid target")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed before the core runs, got %q", out.String())
	}
}

func TestRun_ReportsOpenPort(t *testing.T) {
	port := nettest.Port(nettest.Listen(t))

	log := logrus.New()
	log.Out = io.Discard
	var out bytes.Buffer
	opts := options{ip: "127.0.0.1", startPort: port, endPort: port, maxTasks: 1, verbose: true}
	if err := run(context.Background(), opts, &out, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := strconv.Itoa(int(port))
	want := "Scanning ports on 127.0.0.1 from " + p + " to " + p + "...\n" +
		"Scanning port " + p + "...\n" +
		"Port " + p + " is open\n" +
		"Scan completed.\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}
