package worker

import (
	"context"
	"fmt"

	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service defines the public interface for the worker service
type Service interface {
	// Start initializes and starts the worker service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker service
	Stop() error
}

// service encapsulates the worker application logic
type service struct {
	config *Config
	log    logrus.FieldLogger

	executor tasks.Executor
	redisOpt *redis.Options
	keys     *r.Config

	server *asynq.Server
}

// NewService creates a new worker serving the refresh queues of keys
func NewService(log logrus.FieldLogger, cfg *Config, redisOpt *redis.Options, keys *r.Config, executor tasks.Executor) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &service{
		log:      log.WithField("service", "worker"),
		config:   cfg,
		executor: executor,
		redisOpt: redisOpt,
		keys:     keys,
	}, nil
}

// Start initializes and starts the worker service
func (s *service) Start(_ context.Context) error {
	handler := tasks.NewTaskHandler(s.log, s.executor)
	queues := tasks.Queues(s.keys)

	s.log.WithFields(logrus.Fields{
		"concurrency": s.config.Concurrency,
		"queues":      queues,
	}).Info("Starting worker service")

	srv := asynq.NewServer(r.AsynqOptions(s.redisOpt), asynq.Config{
		Concurrency:     s.config.Concurrency,
		Queues:          queues,
		ShutdownTimeout: s.config.ShutdownTimeout,
		Logger:          newAsynqLogger(s.log),
	})

	mux := asynq.NewServeMux()
	for taskType, handlerFunc := range handler.Routes() {
		mux.HandleFunc(taskType, handlerFunc)
	}

	// Start returns once the processors run; signals are handled by the caller
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}

	s.server = srv

	s.log.Info("Worker service started successfully")

	return nil
}

// Stop gracefully shuts down the worker application
func (s *service) Stop() error {
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}

	s.log.Info("Worker service stopped successfully")

	return nil
}

// asynqLogger routes asynq server logs through logrus
type asynqLogger struct {
	log logrus.FieldLogger
}

func newAsynqLogger(log logrus.FieldLogger) *asynqLogger {
	return &asynqLogger{log: log.WithField("component", "asynq")}
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...any) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...any) { l.log.Fatal(args...) }

var (
	_ Service      = (*service)(nil)
	_ asynq.Logger = (*asynqLogger)(nil)
)
