package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/ethpandaops/reportviewer/pkg/api"
	"github.com/ethpandaops/reportviewer/pkg/api/handlers"
	"github.com/ethpandaops/reportviewer/pkg/api/openapi"
	"github.com/ethpandaops/reportviewer/pkg/chartdata"
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/observability"
	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/scheduler"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/ethpandaops/reportviewer/pkg/urls"
	"github.com/ethpandaops/reportviewer/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server represents the main application server
type Server struct {
	log    logrus.FieldLogger
	config *Config

	redisOptions *redis.Options
	redisClient  *redis.Client
	repo         reportviewer.Repository
	queue        *tasks.QueueManager
	chartClient  chartdata.ClientInterface

	registry  *sessions.Registry
	scheduler scheduler.Service
	worker    worker.Service
	api       api.Service

	pprofServer  *http.Server
	healthServer *http.Server
}

// NewServer validates config and builds every enabled service
func NewServer(ctx context.Context, log logrus.FieldLogger, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	redisOptions, err := config.Redis.Options()
	if err != nil {
		return nil, err
	}

	s := &Server{
		log:          log.WithField("service", "server"),
		config:       config,
		redisOptions: redisOptions,
		redisClient:  redis.NewClient(redisOptions),
	}

	if err := s.build(ctx, log); err != nil {
		s.closeClients()
		return nil, err
	}

	return s, nil
}

func (s *Server) build(ctx context.Context, log logrus.FieldLogger) error {
	cfg := s.config
	keys := &cfg.Redis

	repo, err := reportviewer.NewRepository(ctx, log, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open report viewer repository: %w", err)
	}

	s.repo = repo
	viewers := reportviewer.NewService(log, repo)

	results := tasks.NewResultStore(s.redisClient, keys, cfg.Worker.ResultTTL)

	if cfg.Worker.Enabled {
		chartClient, err := chartdata.NewClient(log, &cfg.ChartData)
		if err != nil {
			return fmt.Errorf("failed to create chart data client: %w", err)
		}

		s.chartClient = chartClient

		executor := worker.NewChartExecutor(log, viewers, chartClient, results)

		s.worker, err = worker.NewService(log, &cfg.Worker, s.redisOptions, keys, executor)
		if err != nil {
			return fmt.Errorf("failed to create worker service: %w", err)
		}
	}

	// A worker only process has no sessions to refresh or serve
	if !cfg.API.Enabled && !cfg.Scheduler.Enabled {
		return nil
	}

	s.queue = tasks.NewQueueManager(r.AsynqOptions(s.redisOptions), keys)
	s.registry = sessions.NewRegistry(log, cfg.Sessions)

	kv := keyvalue.NewStore(log, s.redisClient, keys, cfg.KeyValue)
	sessionService := sessions.NewService(log, s.registry, viewers, kv, tasks.NewRefresher(log, s.queue))

	s.scheduler = scheduler.NewService(log, &cfg.Scheduler, s.redisClient, keys, s.registry)

	links, err := urls.NewBuilder(&cfg.URLs)
	if err != nil {
		return fmt.Errorf("failed to create url builder: %w", err)
	}

	validator, err := openapi.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to load openapi document: %w", err)
	}

	s.api = api.NewService(&cfg.API, handlers.Deps{
		ReportViewers: viewers,
		Sessions:      sessionService,
		KeyValue:      kv,
		Results:       results,
		Links:         links,
		Validator:     validator,
	}, log)

	return nil
}

// Start runs every service until SIGINT, SIGTERM or ctx is done, then
// shuts them down in reverse dependency order.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.log.WithFields(logrus.Fields{
		"api":       s.api != nil && s.config.API.Enabled,
		"scheduler": s.scheduler != nil && s.config.Scheduler.Enabled,
		"worker":    s.worker != nil,
	}).Info("Starting report viewer server")

	observability.StartMetricsServer(s.log, s.config.MetricsAddr)

	if s.config.HealthCheckAddr != nil {
		s.startHealthCheck()
	}

	if s.config.PProfAddr != nil {
		s.startPProf()
	}

	if err := s.startServices(ctx); err != nil {
		s.stop()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()

		s.stop()

		return nil
	})

	return g.Wait()
}

func (s *Server) startServices(ctx context.Context) error {
	if s.chartClient != nil {
		if err := s.chartClient.Start(ctx); err != nil {
			return err
		}
	}

	if s.worker != nil {
		if err := s.worker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
	}

	if s.registry != nil {
		s.registry.Start(ctx)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	if s.api != nil {
		if err := s.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API service: %w", err)
		}
	}

	return nil
}

func (s *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	stopService := func(name string, stopFunc func() error) {
		if err := stopFunc(); err != nil {
			s.log.WithError(err).Errorf("Failed to stop %s", name)
		}
	}

	// Stop taking requests before the sessions they reach go away
	if s.api != nil {
		stopService("API service", s.api.Stop)
	}

	if s.scheduler != nil {
		stopService("scheduler", s.scheduler.Stop)
	}

	if s.registry != nil {
		s.registry.Stop()
	}

	if s.worker != nil {
		stopService("worker", s.worker.Stop)
	}

	s.closeClients()

	if s.healthServer != nil {
		stopService("health check server", func() error { return s.healthServer.Shutdown(ctx) })
	}

	if s.pprofServer != nil {
		stopService("pprof server", func() error { return s.pprofServer.Shutdown(ctx) })
	}

	stopService("metrics server", func() error { return observability.StopMetricsServer(ctx) })

	s.log.Info("Server stopped gracefully")
}

type closer struct {
	name  string
	close func() error
}

// closeClients releases connections once nothing uses them
func (s *Server) closeClients() {
	var closers []closer

	if s.queue != nil {
		closers = append(closers, closer{"queue client", s.queue.Close})
	}

	if s.chartClient != nil {
		closers = append(closers, closer{"chart data client", s.chartClient.Stop})
	}

	if s.repo != nil {
		closers = append(closers, closer{"database", s.repo.Close})
	}

	if s.redisClient != nil {
		closers = append(closers, closer{"redis", s.redisClient.Close})
	}

	for _, c := range closers {
		if err := c.close(); err != nil {
			s.log.WithError(err).Errorf("Failed to close %s", c.name)
		}
	}

	s.queue, s.chartClient, s.repo, s.redisClient = nil, nil, nil, nil
}

// healthHandler answers /health while the process runs and /ready while
// Redis answers
func (s *Server) healthHandler() http.Handler {
	client := s.redisClient

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

func (s *Server) startHealthCheck() {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	s.healthServer = &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		Handler:           s.healthHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Health check server failed")
		}
	}()
}

func (s *Server) startPProf() {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := s.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Pprof server failed")
		}
	}()
}
