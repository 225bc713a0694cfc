package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"wickengine/internal/domain/repository"
	"wickengine/internal/handler/api"
	mid "wickengine/internal/middleware"
	internalrepo "wickengine/internal/repository"
	"wickengine/internal/service/bookcache"
	"wickengine/internal/service/coinalyze"
	"wickengine/internal/service/coingecko"
	"wickengine/internal/service/discord"
	"wickengine/internal/service/okx"
	"wickengine/internal/service/ratelimit"
	"wickengine/internal/services/analytics"
	"wickengine/internal/services/features"
	"wickengine/internal/usecase"
	pkgcache "wickengine/pkg/cache"
	pkgch "wickengine/pkg/clickhouse"
	"wickengine/pkg/config"
	xhttp "wickengine/pkg/http"
	pkgkafka "wickengine/pkg/kafka"
	applogger "wickengine/pkg/logger"
	"wickengine/pkg/metrics"
	"wickengine/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTradeStream creates the OKX trades subscription.
func ProvideTradeStream(cfg *config.Config, log *applogger.Logger) repository.TradeStream {
	return okx.NewTradeStream(cfg.OKX.WebSocketURL, cfg.OKX.Symbols, log)
}

// ProvideBookStream creates the OKX books5 subscription.
func ProvideBookStream(cfg *config.Config, log *applogger.Logger) repository.BookStream {
	return okx.NewBookStream(cfg.OKX.WebSocketURL, cfg.OKX.Symbols, log)
}

// ProvideBookCache creates the latest-snapshot book cache.
func ProvideBookCache() *bookcache.Cache {
	return bookcache.New()
}

// ProvideFusion creates the feature fusion stage.
func ProvideFusion() *features.Fusion {
	return features.NewFusion()
}

// ProvideScorer creates the event scorer.
func ProvideScorer() *analytics.Scorer {
	return analytics.NewScorer()
}

// ProvideVoidWallDetector creates the order-book void/wall analyzer.
func ProvideVoidWallDetector() *analytics.VoidWallDetector {
	return analytics.NewVoidWallDetector()
}

// ProvideRateLimiter creates the shared token-bucket limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideDerivativesProvider creates the Coinalyze client.
func ProvideDerivativesProvider(cfg *config.Config, rl *ratelimit.Limiter, log *applogger.Logger) repository.DerivativesProvider {
	return coinalyze.New(cfg.Coinalyze.BaseURL, cfg.Coinalyze.APIKey, rl, log)
}

// ProvideMacroMonitor creates the CoinGecko dominance poller.
func ProvideMacroMonitor(cfg *config.Config, log *applogger.Logger) *coingecko.Monitor {
	return coingecko.NewMonitor(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.CoinGecko.PollInterval, log)
}

// ProvideMacroProvider exposes the monitor behind its domain interface.
func ProvideMacroProvider(m *coingecko.Monitor) repository.MacroProvider {
	return m
}

// ProvideNotifier creates the Discord notifier.
func ProvideNotifier(cfg *config.Config, log *applogger.Logger) repository.Notifier {
	return discord.New(discord.Config{
		Webhooks: cfg.Discord.Webhooks,
		Cooldown: cfg.Discord.Cooldown,
	}, log)
}

// ProvideEventLog creates the NDJSON audit log.
func ProvideEventLog(cfg *config.Config) repository.EventLog {
	return internalrepo.NewJSONLEventLog(internalrepo.JSONLConfig{
		Path:       cfg.Storage.EventLogPath,
		MaxSizeMB:  cfg.Storage.MaxSizeMB,
		MaxBackups: cfg.Storage.MaxBackups,
		MaxAgeDays: cfg.Storage.MaxAgeDays,
		Compress:   cfg.Storage.Compress,
	})
}

// ProvideClickHouseClient creates a ClickHouse client when the clickhouse
// backend is active; otherwise returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
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
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideEventStore creates the ClickHouse archive when available.
func ProvideEventStore(chClient *pkgch.Client, cfg *config.Config) (repository.EventStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseEventStore(chClient.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("event store init: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// active; otherwise returns nil.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
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

// ProvideEventPublisher creates the Kafka events publisher when available.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates the events-topic consumer when a group is
// configured alongside the kafka backend.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" || cfg.Kafka.Consumer.GroupID == "" {
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
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideEventsHandler registers the archiver for the events topic when both
// the consumer and the archive exist.
func ProvideEventsHandler(store repository.EventStore, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if store == nil {
		return nil
	}
	return usecase.NewKafkaEventsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideEventProcessor wires the persistence sinks.
func ProvideEventProcessor(
	log repository.EventLog,
	pub repository.EventPublisher,
	store repository.EventStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.EventProcessor {
	return usecase.NewEventProcessor(log, pub, store, m, cfg.Backend.Type)
}

// ProvideEngine assembles the detection pipeline.
func ProvideEngine(
	cfg *config.Config,
	trades repository.TradeStream,
	books repository.BookStream,
	cache *bookcache.Cache,
	fusion *features.Fusion,
	scorer *analytics.Scorer,
	voidwall *analytics.VoidWallDetector,
	derivs repository.DerivativesProvider,
	macro repository.MacroProvider,
	notifier repository.Notifier,
	events *usecase.EventProcessor,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Engine {
	engine := usecase.NewEngine(usecase.EngineConfig{
		Symbols:      cfg.OKX.Symbols,
		BarInterval:  cfg.Engine.BarInterval,
		CaptureRatio: cfg.Engine.CaptureRatio,
		AlertRatio:   cfg.Engine.AlertRatio,
		DerivsPoll:   cfg.Engine.DerivsPoll,
	}, trades, books, cache, fusion, scorer, voidwall, derivs, macro, notifier, events, m, log)

	pipeOpts := []mid.PipelineOption{}
	if cfg.Engine.Pipeline.MaxRPS > 0 {
		pipeOpts = append(pipeOpts, mid.WithMaxRPS(cfg.Engine.Pipeline.MaxRPS))
	}
	if cfg.Engine.Pipeline.BufferSize > 0 {
		pipeOpts = append(pipeOpts, mid.WithBufferSize(cfg.Engine.Pipeline.BufferSize))
	}
	engine.SetPipeline(mid.NewRealtimePipeline(engine, m, pipeOpts...))
	return engine
}

// ProvideStatusWriter creates the periodic status file writer.
func ProvideStatusWriter(engine *usecase.Engine, cfg *config.Config, log *applogger.Logger) *usecase.StatusWriter {
	return usecase.NewStatusWriter(engine, cfg.Engine.StatusPath, cfg.Engine.StatusInterval, log)
}

// ProvideCacheService builds the API response cache: layered Redis when
// enabled, in-process memory otherwise.
func ProvideCacheService(cfg *config.Config, log *applogger.Logger) pkgcache.Service {
	if cfg.API.Redis.Enabled {
		host, portStr, err := net.SplitHostPort(cfg.API.Redis.Addr)
		if err == nil {
			port, _ := strconv.Atoi(portStr)
			redisCache, rerr := pkgcache.NewRedisCache(
				pkgcache.WithRedisHost(host),
				pkgcache.WithRedisPort(port),
				pkgcache.WithRedisPassword(cfg.API.Redis.Password),
				pkgcache.WithRedisDB(cfg.API.Redis.DB),
				pkgcache.WithRedisPrefix("wickengine"),
			)
			if rerr == nil {
				return pkgcache.NewLayeredCache(redisCache)
			}
			log.Warn("redis cache unavailable, falling back to memory", applogger.Error(rerr))
		} else {
			log.Warn("invalid redis addr, falling back to memory", applogger.Error(err))
		}
	}
	return pkgcache.NewMemoryCache()
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	engine *usecase.Engine,
	store repository.EventStore,
	cache pkgcache.Service,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewEngineEchoHandler(log, engine, store, cache, cfg.API.CacheTTL)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.Engine,
	status *usecase.StatusWriter,
	macro *coingecko.Monitor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, engine, status, macro, consumer, kh, chClient, handler)
}
