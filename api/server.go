// Package api serves the rollup's REST surface: account and commitment
// queries against the live ledger, archived snapshot lookups and signed
// transaction submission, which is forwarded to the sequencer under the
// rollup's namespace.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eth2030/example-l2/crypto"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
	"github.com/eth2030/example-l2/sequencer"
)

var (
	ErrNoArchive  = errors.New("api: snapshot archive disabled")
	errRateLimited = errors.New("api: rate limited")
)

// Submitter forwards transactions to the sequencer. *sequencer.Client
// implements it.
type Submitter interface {
	SubmitTransaction(ctx context.Context, tx sequencer.Transaction) error
}

// Archive serves past ledger states. *store.Store implements it.
type Archive interface {
	Get(block uint64) (*rollup.Ledger, error)
	Latest() (uint64, *rollup.Ledger, error)
}

// Server is the REST server.
type Server struct {
	cfg       Config
	ledger    *rollup.SharedLedger
	submitter Submitter
	archive   Archive
	notFound  error // archive miss sentinel

	signers  *crypto.SignerCache
	gatherer prometheus.Gatherer
	metrics  *Metrics
	limiter  *ClientLimiter
	log      *log.Logger
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithArchive serves /rollup/snapshot from a. Lookups failing with
// notFound are answered with 404.
func WithArchive(a Archive, notFound error) Option {
	return func(s *Server) {
		s.archive = a
		s.notFound = notFound
	}
}

// WithMetrics exposes gatherer on /metrics and records server metrics in m.
func WithMetrics(gatherer prometheus.Gatherer, m *Metrics) Option {
	return func(s *Server) {
		s.gatherer = gatherer
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSignerCache recovers submitted transaction senders through c.
func WithSignerCache(c *crypto.SignerCache) Option {
	return func(s *Server) { s.signers = c }
}

// WithLogger replaces the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Server reading from ledger and forwarding submissions to
// submitter.
func New(cfg Config, ledger *rollup.SharedLedger, submitter Submitter, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		ledger:    ledger,
		submitter: submitter,
		metrics:   NewMetrics(nil),
		log:       log.Default().Module("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.SubmitRatePerSec > 0 {
		s.limiter = NewClientLimiter(cfg.SubmitRatePerSec, cfg.SubmitBurst, cfg.RateLimitClients)
	}
	return s
}

// Handler returns the complete HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc, extra ...Middleware) {
		mws := append([]Middleware{Logging(s.log, s.metrics, name)}, extra...)
		mux.Handle(pattern, Chain(h, mws...))
	}
	route("GET /rollup/balance/{address}", "balance", s.handleBalance)
	route("GET /rollup/nonce/{address}", "nonce", s.handleNonce)
	route("GET /rollup/commitment", "commitment", s.handleCommitment)
	route("GET /rollup/snapshot/{block}", "snapshot", s.handleSnapshot)
	route("GET /rollup/snapshot/latest", "snapshot", s.handleLatestSnapshot)

	submit := []Middleware{MaxBytes(s.cfg.MaxRequestSize)}
	if s.limiter != nil {
		submit = append([]Middleware{RateLimit(s.limiter)}, submit...)
	}
	route("POST /rollup/submit", "submit", s.handleSubmit, submit...)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return Chain(mux, CORS(s.cfg.CORSAllowOrigins))
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("REST server listening", "addr", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
