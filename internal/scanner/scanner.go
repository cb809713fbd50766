// Package scanner drives a port range to completion under a concurrency
// ceiling.
package scanner

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/bilalcaliskan/portscan/internal/admission"
	"github.com/bilalcaliskan/portscan/internal/probe"
	"github.com/bilalcaliskan/portscan/internal/report"
)

// Prober tests a single port.
type Prober interface {
	Probe(ctx context.Context, target netip.Addr, port uint16, verbose bool) bool
}

// Summary is what a finished run found.
type Summary struct {
	Target    string        `json:"target" msgpack:"target"`
	StartPort uint16        `json:"start_port" msgpack:"start_port"`
	EndPort   uint16        `json:"end_port" msgpack:"end_port"`
	Probed    int           `json:"probed" msgpack:"probed"`
	Open      []uint16      `json:"open" msgpack:"open"`
	Panics    int           `json:"panics" msgpack:"panics"`
	Elapsed   time.Duration `json:"elapsed" msgpack:"elapsed"`
}

// Scanner runs scans for one Config.
type Scanner struct {
	cfg      Config
	prober   Prober
	reporter report.Reporter
	log      logrus.FieldLogger
	pool     *admission.Pool
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithProber replaces the default TCP connect prober.
func WithProber(p Prober) Option {
	return func(s *Scanner) { s.prober = p }
}

// WithReporter sets where scan events go. The default discards them.
func WithReporter(r report.Reporter) Option {
	return func(s *Scanner) { s.reporter = r }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithPool makes Run admit probes through p instead of a fresh pool of
// cfg.MaxTasks permits.
func WithPool(p *admission.Pool) Option {
	return func(s *Scanner) { s.pool = p }
}

// New builds a Scanner for cfg.
func New(cfg Config, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:      cfg,
		prober:   probe.New(nil),
		reporter: report.Discard,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run probes every port of the configured range exactly once. Ports are
// dispatched in ascending order, each only after a permit is free; open
// ports are reported as their probes finish, and Completed is reported
// only after every launched probe has returned.
//
// Run returns an error only for an invalid config, or ctx.Err() when ctx
// ended dispatch early. Probe failures and panics never surface here.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	cfg := s.cfg
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	pool := s.pool
	if pool == nil {
		var err error
		if pool, err = admission.New(cfg.MaxTasks); err != nil {
			return Summary{}, err
		}
	}

	log := s.log.WithFields(logrus.Fields{
		"target": cfg.Target.String(),
		"start":  cfg.StartPort,
		"end":    cfg.EndPort,
	})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		open    = make([]uint16, 0)
		probed  atomic.Int64
		panics  atomic.Int64
		started = time.Now()
	)

	executor, err := ants.NewPool(pool.Size(), ants.WithLogger(log))
	if err != nil {
		return Summary{}, fmt.Errorf("create executor: %w", err)
	}
	defer executor.Release()

	s.reporter.Started(cfg.Target, cfg.StartPort, cfg.EndPort)
	log.WithField("max_tasks", pool.Size()).Debug("scan started")

	var dispatchErr error
	for _, port := range cfg.Ports() {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}
		permit, err := pool.Acquire(ctx)
		if err != nil {
			dispatchErr = err
			break
		}
		if cfg.Verbose {
			s.reporter.Scanning(port)
		}

		unit := func() {
			defer wg.Done()
			defer permit.Release()
			defer func() {
				if v := recover(); v != nil {
					panics.Add(1)
					log.WithFields(logrus.Fields{"port": port, "panic": v}).Warn("probe unit terminated abnormally")
				}
			}()

			probed.Add(1)
			ok := s.prober.Probe(ctx, cfg.Target, port, false)
			permit.Release()
			if !ok {
				return
			}
			mu.Lock()
			open = append(open, port)
			mu.Unlock()
			s.reporter.Open(port)
		}

		wg.Add(1)
		if err := executor.Submit(unit); err != nil {
			log.WithError(err).WithField("port", port).Debug("executor rejected unit, running it on its own goroutine")
			go unit()
		}
	}

	wg.Wait()
	s.reporter.Completed()

	sort.Slice(open, func(i, j int) bool { return open[i] < open[j] })
	summary := Summary{
		Target:    cfg.Target.String(),
		StartPort: cfg.StartPort,
		EndPort:   cfg.EndPort,
		Probed:    int(probed.Load()),
		Open:      open,
		Panics:    int(panics.Load()),
		Elapsed:   time.Since(started),
	}
	log.WithFields(logrus.Fields{
		"probed":  summary.Probed,
		"open":    len(summary.Open),
		"elapsed": summary.Elapsed,
	}).Info("scan finished")

	return summary, dispatchErr
}
