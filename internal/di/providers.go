package di

import (
	"context"
	"fmt"
	"time"

	"SigRoute/internal/domain/models"
	"SigRoute/internal/domain/repository"
	domsvc "SigRoute/internal/domain/service"
	"SigRoute/internal/handler/api"
	mid "SigRoute/internal/middleware"
	internalrepo "SigRoute/internal/repository"
	"SigRoute/internal/service/feed"
	"SigRoute/internal/service/random"
	"SigRoute/internal/service/venue"
	"SigRoute/internal/services/attribution"
	"SigRoute/internal/usecase"
	pkgcache "SigRoute/pkg/cache"
	pkgch "SigRoute/pkg/clickhouse"
	"SigRoute/pkg/config"
	xhttp "SigRoute/pkg/http"
	pkgkafka "SigRoute/pkg/kafka"
	applogger "SigRoute/pkg/logger"
	"SigRoute/pkg/metrics"
	"SigRoute/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideScorer builds the event scorer from configured weights.
func ProvideScorer(cfg *config.Config) *usecase.Scorer {
	return usecase.NewScorer(cfg.Scorer.Weights)
}

// ProvideRoutingTable parses the configured routing table. A malformed
// table aborts startup.
func ProvideRoutingTable(cfg *config.Config) (*usecase.RoutingTable, error) {
	table, err := usecase.NewRoutingTable(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("routing table: %w", err)
	}
	return table, nil
}

// ProvideEstimator builds the profit estimator from venue and strategy
// economics.
func ProvideEstimator(cfg *config.Config) *usecase.ProfitEstimator {
	modifiers := make(map[models.VenueID]float64, len(cfg.Venues))
	for v, vc := range cfg.Venues {
		modifiers[models.VenueID(v)] = vc.ChainModifier
	}
	rates := make(map[models.StrategyID]float64, len(cfg.Strategies))
	for s, sc := range cfg.Strategies {
		rates[models.StrategyID(s)] = sc.ProfitRate
	}
	return usecase.NewProfitEstimator(
		modifiers,
		rates,
		cfg.Estimator.DefaultChainModifier,
		cfg.Estimator.DefaultStrategyRate,
	)
}

// ProvideSelector creates the opportunity selector.
func ProvideSelector(table *usecase.RoutingTable, estimator *usecase.ProfitEstimator) *usecase.OpportunitySelector {
	return usecase.NewOpportunitySelector(table, estimator)
}

// ProvideRandSource creates the shared randomness source. Seed 0 seeds
// from the clock.
func ProvideRandSource(cfg *config.Config) domsvc.RandSource {
	return random.New(cfg.Feedback.Seed)
}

// ProvideVenues builds one execution venue per configured strategy.
// Strategies without an explicit executor run against the simulator.
func ProvideVenues(cfg *config.Config, rand domsvc.RandSource) map[models.StrategyID]domsvc.ExecutionVenue {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Router.ExecTimeout))

	venues := make(map[models.StrategyID]domsvc.ExecutionVenue, len(cfg.Strategies))
	for name, sc := range cfg.Strategies {
		id := models.StrategyID(name)
		switch sc.Executor {
		case "http":
			venues[id] = venue.NewHTTPVenue(sc.URL, client)
		default:
			rate := sc.SimSuccessRate
			if rate == 0 {
				rate = 0.9
			}
			venues[id] = venue.NewSimVenue(id, rate, rand)
		}
	}
	return venues
}

// ProvideDispatcher creates the execution dispatcher.
func ProvideDispatcher(
	venues map[models.StrategyID]domsvc.ExecutionVenue,
	cfg *config.Config,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.ExecutionDispatcher {
	return usecase.NewExecutionDispatcher(venues, cfg.Router.ExecTimeout, m, logger)
}

// ProvideSnapshotStore creates the ledger snapshot store, file-backed by
// default, Redis-backed when configured.
func ProvideSnapshotStore(cfg *config.Config) (repository.SnapshotStore, error) {
	if cfg.Ledger.Store == "redis" {
		cache, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Ledger.Redis.Host),
			pkgcache.WithRedisPort(cfg.Ledger.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Ledger.Redis.Password),
			pkgcache.WithRedisDB(cfg.Ledger.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis snapshot store: %w", err)
		}
		return internalrepo.NewRedisSnapshotStore(cache, cfg.Ledger.Redis.Key), nil
	}
	store, err := internalrepo.NewFileSnapshotStore(cfg.Ledger.FilePath)
	if err != nil {
		return nil, fmt.Errorf("file snapshot store: %w", err)
	}
	return store, nil
}

// ProvideClickHouseClient creates the ClickHouse client for the audit
// sink. Returns nil when auditing is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Ledger.Audit {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.AuditSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, nil when no brokers are
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLedger creates the attribution ledger and restores its last
// persisted snapshot.
func ProvideLedger(
	store repository.SnapshotStore,
	chClient *pkgch.Client,
	cfg *config.Config,
	m repository.Metrics,
	logger *applogger.Logger,
) (*attribution.Ledger, error) {
	var opts []attribution.Option
	if chClient != nil {
		opts = append(opts, attribution.WithAuditSink(
			internalrepo.NewClickHouseAuditSink(chClient.DB(), cfg.ClickHouse.Database),
		))
	}

	ledger := attribution.NewLedger(store, m, logger, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger restore: %w", err)
	}
	if snap != nil {
		ledger.Restore(snap)
		logger.Info("ledger restored", applogger.Int("chains", ledger.ChainCount()))
	}
	return ledger, nil
}

// ProvideRouter creates the signal router.
func ProvideRouter(
	scorer *usecase.Scorer,
	selector *usecase.OpportunitySelector,
	dispatcher *usecase.ExecutionDispatcher,
	ledger *attribution.Ledger,
	cfg *config.Config,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.SignalRouter {
	return usecase.NewSignalRouter(
		scorer,
		selector,
		dispatcher,
		ledger,
		cfg.Router.QueueSize,
		cfg.Router.MaxInFlight,
		cfg.Router.GasCostPerUnit,
		m,
		logger,
	)
}

// ProvidePipeline builds the ingest pipeline in front of the router.
func ProvidePipeline(router *usecase.SignalRouter, m repository.Metrics, cfg *config.Config) *mid.IngestPipeline {
	var opts []mid.PipelineOption
	if cfg.Ingest.MaxRPS > 0 {
		opts = append(opts, mid.WithMaxRPS(cfg.Ingest.MaxRPS))
	}
	if cfg.Ingest.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Ingest.BufferSize))
	}
	return mid.NewIngestPipeline(router, m, opts...)
}

// ProvideCollector creates the WebSocket event collector, nil unless the
// websocket ingest source is selected.
func ProvideCollector(cfg *config.Config, pipeline *mid.IngestPipeline, m repository.Metrics) *usecase.EventCollector {
	if cfg.Ingest.Source != "websocket" {
		return nil
	}
	stream := feed.New(
		cfg.Ingest.Feed.APIKey,
		cfg.Ingest.Feed.URL,
		cfg.Ingest.Feed.Categories,
		cfg.Ingest.Feed.ReconnectDelay,
		cfg.Ingest.Feed.PingInterval,
	)
	return usecase.NewEventCollector(stream, pipeline, m)
}

// ProvideKafkaConsumer creates the Kafka consumer, nil unless the kafka
// ingest source is selected.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Source != "kafka" {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaHandlers registers the topic handlers consumed from Kafka:
// raw events into the pipeline, execution telemetry into the ledger.
func ProvideKafkaHandlers(
	pipeline *mid.IngestPipeline,
	ledger *attribution.Ledger,
	m repository.Metrics,
	cfg *config.Config,
) []pkgkafka.MessageHandler {
	var handlers []pkgkafka.MessageHandler
	if cfg.Kafka.EventsTopic != "" {
		handlers = append(handlers, usecase.NewKafkaEventsHandler(cfg.Kafka.EventsTopic, pipeline, m))
	}
	if cfg.Kafka.ChainEventsTopic != "" {
		handlers = append(handlers, usecase.NewKafkaChainEventsHandler(cfg.Kafka.ChainEventsTopic, ledger, m))
	}
	return handlers
}

// ProvideFeedback creates the reinforcement feedback selector backed by
// the ledger's chain history.
func ProvideFeedback(cfg *config.Config, ledger *attribution.Ledger, rand domsvc.RandSource) *usecase.ReinforcementFeedback {
	return usecase.NewReinforcementFeedback(
		cfg.Feedback.TimeWeights,
		cfg.Feedback.TopK,
		cfg.Feedback.RecentDepth,
		ledger,
		rand,
	)
}

// ProvideDashboardHandler creates the HTTP API handler.
func ProvideDashboardHandler(
	logger *applogger.Logger,
	ledger *attribution.Ledger,
	router *usecase.SignalRouter,
	scorer *usecase.Scorer,
	feedback *usecase.ReinforcementFeedback,
) *api.DashboardHandler {
	return api.NewDashboardHandler(logger, ledger, router, scorer, feedback)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	router *usecase.SignalRouter,
	pipeline *mid.IngestPipeline,
	collector *usecase.EventCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	ledger *attribution.Ledger,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	h *api.DashboardHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}

	app := server.New(cfg, logger, router, pipeline, collector, consumer, handlers, ledger, chClient)
	app.SetHTTPHandler(h)

	if cfg.Ledger.Notify && producer != nil && cfg.Kafka.NotifyTopic != "" {
		notifier := internalrepo.NewKafkaNotifier(producer, cfg.Kafka.NotifyTopic)
		app.SetNotifier(notifier.Notify)
	}

	if producer != nil && cfg.Kafka.LogTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      internalrepo.NewLogPublisher(producer),
		})
	}

	return app
}
