// Package api exposes scans over HTTP and websockets.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
	"gopkg.in/vmihailenco/msgpack.v2"

	"github.com/bilalcaliskan/portscan/internal/report"
	"github.com/bilalcaliskan/portscan/internal/scanner"
	"github.com/bilalcaliskan/portscan/internal/target"
)

// ContentTypeMsgpack selects a msgpack encoded scan summary.
const ContentTypeMsgpack = "application/x-msgpack"

// DefaultMaxTasksLimit caps the concurrency a single request may ask for.
const DefaultMaxTasksLimit = 1000

var errBadRequest = errors.New("bad request")

// ScanRequest is the body of POST /scans. Omitted fields take the CLI defaults.
type ScanRequest struct {
	Target    string  `json:"target"`
	StartPort *uint16 `json:"start_port,omitempty"`
	EndPort   *uint16 `json:"end_port,omitempty"`
	MaxTasks  int     `json:"max_tasks,omitempty"`
	Verbose   bool    `json:"verbose,omitempty"`
}

// Server serves the scan API.
type Server struct {
	log           logrus.FieldLogger
	prober        scanner.Prober
	maxTasksLimit int
	upgrader      websocket.Upgrader
}

// Option customizes a Server.
type Option func(*Server)

// WithProber makes every scan use p.
func WithProber(p scanner.Prober) Option {
	return func(s *Server) { s.prober = p }
}

// WithMaxTasksLimit caps max_tasks per request.
func WithMaxTasksLimit(n int) Option {
	return func(s *Server) { s.maxTasksLimit = n }
}

// New returns a Server logging to log.
func New(log logrus.FieldLogger, opts ...Option) *Server {
	s := &Server{
		log:           log,
		maxTasksLimit: DefaultMaxTasksLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/scans", s.scan).Methods(http.MethodPost)
	r.HandleFunc("/scans/stream", s.stream).Methods(http.MethodGet)

	recovery := negroni.NewRecovery()
	recovery.PrintStack = false
	recovery.ErrorHandlerFunc = func(v interface{}) {
		s.log.WithField("panic", v).Error("handler panicked")
	}

	n := negroni.New(recovery, negroni.HandlerFunc(s.logRequest))
	n.UseHandler(r)
	return n
}

func (s *Server) logRequest(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(w, r)

	status := 0
	if rw, ok := w.(negroni.ResponseWriter); ok {
		status = rw.Status()
	}
	s.log.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   status,
		"duration": time.Since(start),
		"remote":   r.RemoteAddr,
	}).Info("request handled")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: decode body: %v", errBadRequest, err))
		return
	}
	cfg, err := s.config(req)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	summary, err := s.newScanner(cfg, report.Discard).Run(r.Context())
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), ContentTypeMsgpack) {
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		if err := msgpack.NewEncoder(w).Encode(summary); err != nil {
			s.log.WithError(err).Warn("unable to write msgpack response")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := s.config(req)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the reader only exists to notice the client going away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := make(chan report.Event, 64)
	written := make(chan struct{})
	go func() {
		defer close(written)
		broken := false
		for e := range events {
			if broken {
				continue
			}
			if err := conn.WriteJSON(e); err != nil {
				s.log.WithError(err).Debug("stream client went away")
				broken = true
				cancel()
			}
		}
	}()

	_, err = s.newScanner(cfg, report.Func(func(e report.Event) { events <- e })).Run(ctx)
	close(events)
	<-written
	if err != nil {
		s.log.WithError(err).Debug("stream scan ended early")
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan completed")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (s *Server) newScanner(cfg scanner.Config, r report.Reporter) *scanner.Scanner {
	opts := []scanner.Option{scanner.WithReporter(r), scanner.WithLogger(s.log)}
	if s.prober != nil {
		opts = append(opts, scanner.WithProber(s.prober))
	}
	return scanner.New(cfg, opts...)
}

func (s *Server) config(req ScanRequest) (scanner.Config, error) {
	addr, err := target.Parse(req.Target)
	if err != nil {
		return scanner.Config{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	cfg := scanner.DefaultConfig(addr)
	if req.StartPort != nil {
		cfg.StartPort = *req.StartPort
	}
	if req.EndPort != nil {
		cfg.EndPort = *req.EndPort
	}
	if req.MaxTasks != 0 {
		cfg.MaxTasks = req.MaxTasks
	}
	cfg.Verbose = req.Verbose

	if cfg.MaxTasks > s.maxTasksLimit {
		return scanner.Config{}, fmt.Errorf("%w: max_tasks %d exceeds limit %d", errBadRequest, cfg.MaxTasks, s.maxTasksLimit)
	}
	if err := cfg.Validate(); err != nil {
		return scanner.Config{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return cfg, nil
}

func requestFromQuery(r *http.Request) (ScanRequest, error) {
	q := r.URL.Query()
	req := ScanRequest{Target: q.Get("target")}

	port := func(name string) (*uint16, error) {
		v := q.Get(name)
		if v == "" {
			return nil, nil
		}
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
		}
		p := uint16(n)
		return &p, nil
	}

	var err error
	if req.StartPort, err = port("start_port"); err != nil {
		return req, err
	}
	if req.EndPort, err = port("end_port"); err != nil {
		return req, err
	}
	if v := q.Get("max_tasks"); v != "" {
		if req.MaxTasks, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("%w: max_tasks: %v", errBadRequest, err)
		}
	}
	if v := q.Get("verbose"); v != "" {
		if req.Verbose, err = strconv.ParseBool(v); err != nil {
			return req, fmt.Errorf("%w: verbose: %v", errBadRequest, err)
		}
	}
	return req, nil
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("unable to write json response")
	}
}
