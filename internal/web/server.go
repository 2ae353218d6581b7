// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the results viewer: a JSON API over the last
// reconciliation run, backed by the sqlite archive when one is
// configured, plus a single-page dashboard.
package web

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"docket-scan/internal/config"
	"docket-scan/internal/docket"
	"docket-scan/internal/ingest"
	"docket-scan/internal/overrides"
	"docket-scan/internal/store"

	// Formats register themselves from package init; the export
	// endpoint only serves formats linked into the binary.
	_ "docket-scan/internal/formatters/csv"
	_ "docket-scan/internal/formatters/json"
	_ "docket-scan/internal/formatters/markdown"
	_ "docket-scan/internal/formatters/text"
	_ "docket-scan/internal/formatters/yaml"

	"github.com/gin-gonic/gin"
)

//go:embed dashboard.html
var dashboardHTML []byte

// Options configures a viewer instance.
type Options struct {
	// Addr is the listen address, e.g. ":8440". A bare port is accepted.
	Addr string
	// InitialRun seeds the in-memory run, typically the run the CLI
	// just produced. May be nil when serving an archive only.
	InitialRun *docket.Run
	// Archive, when non-nil, backs the run history and is consulted
	// when no in-memory run exists.
	Archive   *store.Store
	Config    *config.Config
	Overrides *overrides.Manager
	Workers   int
	Debug     bool
}

// Server is the results viewer instance.
type Server struct {
	addr    string
	cfg     *config.Config
	ov      *overrides.Manager
	workers int
	debug   bool

	archive *store.Store
	readers *ingest.Manager

	mu      sync.RWMutex
	current *docket.Run

	router *gin.Engine
	server *http.Server
}

// NewServer builds a viewer with its routes registered. Start binds
// the listener.
func NewServer(opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		addr:    normalizeAddr(opts.Addr),
		cfg:     opts.Config,
		ov:      opts.Overrides,
		workers: opts.Workers,
		debug:   opts.Debug,
		archive: opts.Archive,
		readers: ingest.NewDefaultManager(),
		current: opts.InitialRun,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/", s.handleDashboard)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/runs", s.handleRuns)
		api.GET("/runs/latest", s.handleLatestRun)
		api.GET("/chains", s.handleChains)
		api.GET("/chains/:id", s.handleChain)
		api.GET("/residuals", s.handleResiduals)
		api.GET("/export", s.handleExport)
		api.POST("/reconcile", s.handleReconcile)
	}

	return r
}

// Handler exposes the route tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves until Stop or a fatal error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		// Timeout for reading entire request
		ReadTimeout: 30 * time.Second,
		// Timeout for writing response
		WriteTimeout: 30 * time.Second,
		// Timeout for idle connections
		IdleTimeout: 60 * time.Second,
	}

	fmt.Printf("Docket Scan viewer started on %s\n", s.addr)
	fmt.Printf("Local: %s\n", localURL(s.addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("viewer on %s failed: %w", s.addr, err)
	}
	return nil
}

// Stop stops the web server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// SetRun replaces the in-memory run the read endpoints serve.
func (s *Server) SetRun(run *docket.Run) {
	s.mu.Lock()
	s.current = run
	s.mu.Unlock()
}

func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ":8440"
	}
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
