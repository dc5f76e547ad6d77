package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/Nzyazin/ledger/internal/core/handler"
	"github.com/Nzyazin/ledger/internal/core/logger"
	middlWre "github.com/Nzyazin/ledger/internal/core/middleware"
	"github.com/Nzyazin/ledger/internal/core/repository/sqlstore"
	"github.com/Nzyazin/ledger/internal/core/usecase"
	"github.com/Nzyazin/ledger/internal/metrics"
	"github.com/Nzyazin/ledger/pkg/config"
	"github.com/Nzyazin/ledger/pkg/database"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

type Server struct {
	router        *mux.Router
	log           logger.Logger
	cfg           *config.Config
	httpServer    *http.Server
	ledgerHandler *handler.LedgerHandler
	ledger        usecase.LedgerUsecase
	registry      *prometheus.Registry
	db            *database.Database
}

// NewServer builds the single process-wide pool and wires every request through it.
func NewServer(cfg *config.Config, log logger.Logger) (*Server, error) {
	db, err := database.NewDatabase(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DB.ConnectTimeout)
		err := sqlstore.EnsureSchema(ctx, db.DB)
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("schema bootstrap: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.RegisterDBStats(registry, db.DB.DB, cfg.DB.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	ledgerMetrics := metrics.NewMetrics(registry)

	ledgerRepository, err := sqlstore.NewLedgerRepo(db.DB, log, sqlstore.Options{
		QueryTimeout: cfg.DB.QueryTimeout,
		MaxRetries:   cfg.DB.MaxRetries,
		Metrics:      ledgerMetrics,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	ledgerUsecase := usecase.NewLedgerUsecase(ledgerRepository, log, ledgerMetrics)
	ledgerHandler := handler.NewLedgerHandler(ledgerUsecase, log)

	server := &Server{
		log:           log,
		cfg:           cfg,
		router:        mux.NewRouter(),
		ledgerHandler: ledgerHandler,
		ledger:        ledgerUsecase,
		registry:      registry,
		db:            db,
	}

	server.router.Use(middlWre.WithAccessLog(server.log))

	mw := middleware.New(middleware.Config{
		Recorder: metricsprom.NewRecorder(metricsprom.Config{Registry: registry}),
	})

	server.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			std.Handler(routeID(r), mw, next).ServeHTTP(w, r)
		})
	})

	server.RegisterRoutes()

	return server, nil
}

func (s *Server) RegisterRoutes() {
	s.router.Use(
		middlWre.Recovery(s.log),
		middlWre.Timeout(s.cfg.HTTP.RequestTimeout),
	)
	s.ledgerHandler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

// VerifyConnectivity is the startup gate: the store must answer and hold the transactions relation.
func (s *Server) VerifyConnectivity(ctx context.Context) error {
	_, err := s.ledger.VerifyConnectivity(ctx)
	return err
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	s.httpServer = s.newHTTPServer(addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) RunTLS(addr, certFile, keyFile string) error {
	s.httpServer = s.newHTTPServer(addr)
	s.httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// newHTTPServer lets a handler use its whole request timeout before the write deadline hits.
func (s *Server) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 6 * time.Second,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      s.cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:       90 * time.Second,
	}
}

// Shutdown drains HTTP first so in-flight requests can still reach the pool, then closes the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	result := make(chan error, 1)

	go func() {
		var errs []error
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if s.db != nil {
			s.log.Info("Pool stats at shutdown", logger.StringField("stats", s.db.StatsSummary()))
			if err := s.db.Close(); err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				errs = append(errs, fmt.Errorf("database shutdown error: %w", err))
			}
		}

		result <- errors.Join(errs...)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// routeID labels HTTP metrics by route template so wallet ids do not explode label cardinality.
func routeID(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
