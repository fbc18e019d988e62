// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"opportunity-workers/internal/common/aws"
	"opportunity-workers/internal/common/camunda"
	"opportunity-workers/internal/common/config"
	"opportunity-workers/internal/common/database"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/observability"
	"opportunity-workers/internal/llm"
	"opportunity-workers/pkg/registry"

	eq "opportunity-workers/internal/workers/data-access/execute-query"
	ea "opportunity-workers/internal/workers/narrative-analysis/extract-analysis"
	pa "opportunity-workers/internal/workers/narrative-analysis/publish-analysis"
	sq "opportunity-workers/internal/workers/query-synthesis/synthesize-query"
)

const (
	serviceName     = "opportunity-workers"
	shutdownTimeout = 30 * time.Second

	// Added to each worker's execution timeout so the engine does not hand the
	// job to another worker while the handler is still reporting back.
	jobTimeoutMargin = 15 * time.Second
)

var infraRetry = &camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

type dependencies struct {
	zeebe    *camunda.Client
	postgres *database.PostgresClient
	redis    *database.RedisClient
	es       *database.ElasticsearchClient
	prompts  *registry.PromptRegistry
	invoker  *llm.Invoker
	notifier pa.Notifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLog.Sync() }()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Error("Worker manager exited with error", zap.Error(err))
		_ = zapLog.Sync()
		os.Exit(1)
	}
	zapLog.Info("Worker manager stopped")
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.NewWithOptions(observability.Options{
		ServiceName:    serviceName,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	defer shutdownWithTimeout(zapLog, "observability", obs.Shutdown)

	deps, err := connect(ctx, cfg, log, zapLog)
	if err != nil {
		return err
	}
	defer deps.close(zapLog)

	workers, err := registerWorkers(cfg, deps, obs, log, zapLog)
	if err != nil {
		return err
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	server := newHealthServer(cfg.App.HTTPPort, deps.readinessChecks())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		return serve(server)
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		for _, w := range workers {
			w.Close()
		}
		for _, w := range workers {
			w.AwaitClose()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connect brings up every backing service. Zeebe first, then the stores in
// parallel since none depends on another.
func connect(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}

	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect to zeebe: %w", err)
	}
	deps.zeebe = zeebe
	zapLog.Info("Connected to Zeebe", zap.String("address", cfg.Camunda.BrokerAddress))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		deps.postgres = pg
		return camunda.Retry(gctx, infraRetry, log, "PostgreSQL connection", func() error {
			return pg.Ping(gctx)
		})
	})

	g.Go(func() error {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return fmt.Errorf("open redis: %w", err)
		}
		deps.redis = rdb
		return camunda.Retry(gctx, infraRetry, log, "Redis connection", func() error {
			return rdb.Ping(gctx)
		})
	})

	g.Go(func() error {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return fmt.Errorf("create elasticsearch client: %w", err)
		}
		deps.es = es
		return camunda.Retry(gctx, infraRetry, log, "Elasticsearch connection", func() error {
			return es.Ping(gctx)
		})
	})

	if err := g.Wait(); err != nil {
		deps.close(zapLog)
		return nil, err
	}
	zapLog.Info("Connected to PostgreSQL, Redis and Elasticsearch")

	prompts, err := registry.LoadRegistry(cfg.Prompts.RegistryPath)
	if err != nil {
		deps.close(zapLog)
		return nil, fmt.Errorf("load prompt registry: %w", err)
	}
	prompts.ApplyDefaults(cfg.Integrations.AWS.Bedrock.ModelID, cfg.Integrations.AWS.Bedrock.MaxTokens)
	if err := prompts.Validate(); err != nil {
		deps.close(zapLog)
		return nil, fmt.Errorf("invalid prompt registry %s: %w", cfg.Prompts.RegistryPath, err)
	}
	deps.prompts = prompts

	bedrock, err := aws.NewBedrockClient(ctx, aws.BedrockOptions{
		Region:            cfg.Integrations.AWS.Region,
		RequestsPerSecond: cfg.Integrations.AWS.Bedrock.RequestsPerSecond,
		Burst:             cfg.Integrations.AWS.Bedrock.Burst,
	})
	if err != nil {
		deps.close(zapLog)
		return nil, fmt.Errorf("create bedrock client: %w", err)
	}
	deps.invoker = llm.NewInvoker(bedrock, llm.Config{
		MaxAttempts: cfg.LLM.MaxAttempts,
		BaseDelay:   config.GetDuration(cfg.LLM.BaseDelayMs),
	}, log)

	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			deps.close(zapLog)
			return nil, fmt.Errorf("create sns client: %w", err)
		}
		deps.notifier = snsClient
	}

	return deps, nil
}

func registerWorkers(cfg *config.Config, deps *dependencies, obs *observability.Observability, log logger.Logger, zapLog *zap.Logger) ([]worker.JobWorker, error) {
	var workers []worker.JobWorker

	start := func(taskType string, maxJobsActive int, timeout time.Duration, handler camunda.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.StartWorker(deps.zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      taskType,
			MaxJobsActive: maxJobsActive,
			Timeout:       timeout + jobTimeoutMargin,
		}, handler, obs, log))
	}

	// Query synthesis
	sqCfg := sq.ConfigFromApp(cfg)
	sqHandler, err := sq.NewHandler(sq.HandlerOptions{
		Config:  sqCfg,
		Prompts: deps.prompts,
		Invoker: deps.invoker,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sq.TaskType, err)
	}
	start(sq.TaskType, sqCfg.MaxJobsActive, sqCfg.Timeout, sqHandler)

	// Query execution
	eqCfg := eq.ConfigFromApp(cfg)
	if err := eqCfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", eq.TaskType, err)
	}
	start(eq.TaskType, eqCfg.MaxJobsActive, eqCfg.Timeout, eq.NewHandler(eqCfg, deps.postgres.DB, log))

	// Narrative extraction
	eaCfg := ea.ConfigFromApp(cfg)
	eaHandler, err := ea.NewHandler(ea.HandlerOptions{
		Config:  eaCfg,
		Prompts: deps.prompts,
		Invoker: deps.invoker,
		Cache:   deps.redis,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ea.TaskType, err)
	}
	start(ea.TaskType, eaCfg.MaxJobsActive, eaCfg.Timeout, eaHandler)

	// Analysis publication
	paCfg := pa.ConfigFromApp(cfg)
	paHandler, err := pa.NewHandler(pa.HandlerOptions{
		Config:   paCfg,
		Indexer:  deps.es,
		Notifier: deps.notifier,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pa.TaskType, err)
	}
	start(pa.TaskType, paCfg.MaxJobsActive, paCfg.Timeout, paHandler)

	return workers, nil
}

func (d *dependencies) readinessChecks() map[string]readinessCheck {
	return map[string]readinessCheck{
		"zeebe":         d.zeebe.HealthCheck,
		"postgres":      d.postgres.Ping,
		"redis":         d.redis.Ping,
		"elasticsearch": d.es.Ping,
	}
}

func (d *dependencies) close(zapLog *zap.Logger) {
	if d.postgres != nil {
		if err := d.postgres.Close(); err != nil {
			zapLog.Error("Error closing PostgreSQL", zap.Error(err))
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			zapLog.Error("Error closing Redis", zap.Error(err))
		}
	}
	if d.zeebe != nil {
		if err := d.zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
}

func shutdownWithTimeout(zapLog *zap.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		zapLog.Error("Shutdown failed", zap.String("component", name), zap.Error(err))
	}
}
