package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SigRoute/internal/domain/models"
	mid "SigRoute/internal/middleware"
	"SigRoute/internal/services/attribution"
	"SigRoute/internal/usecase"
	pkgch "SigRoute/pkg/clickhouse"
	"SigRoute/pkg/config"
	xhttp "SigRoute/pkg/http"
	pkgkafka "SigRoute/pkg/kafka"
	applogger "SigRoute/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	router    *usecase.SignalRouter
	pipeline  *mid.IngestPipeline
	collector *usecase.EventCollector
	consumer  *pkgkafka.Consumer
	handlers  []pkgkafka.MessageHandler
	ledger    *attribution.Ledger
	chClient  *pkgch.Client
	notifier  NotifierFunc

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// NotifierFunc forwards one chain transition; nil disables forwarding.
type NotifierFunc func(ctx context.Context, tr models.ChainTransition) error

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	router *usecase.SignalRouter,
	pipeline *mid.IngestPipeline,
	collector *usecase.EventCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	ledger *attribution.Ledger,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		pipeline:  pipeline,
		collector: collector,
		consumer:  consumer,
		handlers:  handlers,
		ledger:    ledger,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetNotifier attaches a transition forwarder.
func (a *App) SetNotifier(fn NotifierFunc) { a.notifier = fn }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Routing loop first: everything downstream feeds it.
	a.router.Start(ctx)
	a.pipeline.Start(ctx)
	l.Info("router started",
		applogger.Int("queue_size", a.cfg.Router.QueueSize),
		applogger.Int("max_in_flight", a.cfg.Router.MaxInFlight))

	// Transition forwarding.
	if a.notifier != nil {
		sub := a.ledger.Subscribe()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case tr, ok := <-sub:
					if !ok {
						return
					}
					if err := a.notifier(ctx, tr); err != nil {
						l.Warn("transition notify failed", applogger.Error(err))
					}
				}
			}
		}()
	}

	// Periodic ledger flush retries failed persistence.
	go func() {
		ticker := time.NewTicker(a.cfg.Ledger.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.ledger.Flush(ctx); err != nil {
					l.Warn("ledger flush failed", applogger.Error(err))
				}
			}
		}
	}()

	// Ingestion: websocket collector or kafka consumer.
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("event collector started", applogger.Strings("categories", a.cfg.Ingest.Feed.Categories))
	}
	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.EventsTopic))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop ingestion first so no new signals arrive.
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.consumer.Stop(stopCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}
	a.pipeline.Stop()

	// Drain in-flight pipelines, then persist whatever is pending.
	a.router.Stop()
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.ledger.Flush(flushCtx); err != nil {
		l.Warn("final ledger flush failed", applogger.Error(err))
	}

	shutdownCtx, cancel2 := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel2()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
