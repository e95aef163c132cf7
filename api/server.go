package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meshledger/api/handlers"
	"meshledger/node"
	"meshledger/p2p"
)

//go:embed explorer.html
var explorerPage []byte

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP API of one node
type Server struct {
	node           *node.FullNode
	port           string
	metricsEnabled bool
	mux            *http.ServeMux
	logger         *slog.Logger
}

type ServerConfig struct {
	Port           string
	MetricsEnabled bool
}

// NewServer creates a new API server
func NewServer(n *node.FullNode, config ServerConfig) *Server {
	server := &Server{
		node:           n,
		port:           config.Port,
		metricsEnabled: config.MetricsEnabled,
		mux:            http.NewServeMux(),
		logger:         n.Logger(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP endpoints
func (s *Server) setupRoutes() {
	c := s.node.Coordinator()
	handle := func(pattern string, h func(http.ResponseWriter, *http.Request, *node.Coordinator)) {
		s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			h(w, r, c)
		})
	}

	// Ledger
	handle("GET "+p2p.PathBlockchain, handlers.HandleBlockchain)
	handle("POST "+p2p.PathTransaction, handlers.HandleTransaction)
	handle("POST "+p2p.PathTransactionBroadcast, handlers.HandleTransactionBroadcast)
	handle("GET "+p2p.PathMine, handlers.HandleMine)
	handle("POST "+p2p.PathReceiveNewBlock, handlers.HandleReceiveNewBlock)
	handle("GET "+p2p.PathConsensus, handlers.HandleConsensus)

	// Registry
	handle("POST "+p2p.PathRegisterServer, handlers.HandleRegisterServer)
	handle("POST "+p2p.PathRegisterServersBulk, handlers.HandleRegisterServersBulk)
	handle("POST "+p2p.PathRegisterAndBroadcast, handlers.HandleRegisterAndBroadcast)

	// Lookups
	handle("GET "+p2p.PathBlock+"{hash}", handlers.HandleBlockLookup)
	handle("GET "+p2p.PathTransactionByID+"{id}", handlers.HandleTransactionLookup)
	handle("GET "+p2p.PathAddress+"{address}", handlers.HandleAddress)

	s.mux.HandleFunc("GET /block-explorer", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(explorerPage)
	})

	if s.metricsEnabled {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.node.Metrics().Registry(), promhttp.HandlerOpts{}))
	}

	s.mux.HandleFunc("/", handlers.HandleNotFound)
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves HTTP requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return errors.Wrapf(err, "listen on port %s", s.port)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP API server", "addr", listener.Addr().String())
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP API server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
