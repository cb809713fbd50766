package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bilalcaliskan/portscan/internal/api"
	"github.com/bilalcaliskan/portscan/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	listen := flag.String("listen", ":8000", "address to serve the scan API on")
	logLevel := flag.String("log-level", "info", "log level")
	maxTasks := flag.Int("max-tasks-limit", api.DefaultMaxTasksLimit, "highest max_tasks a request may ask for")
	flag.Parse()

	log, err := logging.New(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *listen,
		Handler:           api.New(log, api.WithMaxTasksLimit(*maxTasks)).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := serve(ctx, srv, log); err != nil {
		log.Fatalln(err)
	}
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("scan API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
