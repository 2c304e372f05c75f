package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/events"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	once := flag.Bool("once", false, "run one reindex and exit instead of consuming requests")
	domainName := flag.String("domain", "", "domain to reindex with -once (all when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup("indexer", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service", "driver", cfg.Storage.Driver, "once", *once)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Metrics.Enabled && !*once {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port, prometheus.DefaultGatherer); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexActivated)
		defer producer.Close()
		pub = events.NewKafkaPublisher(producer)
	}
	engine := a.Indexer(pub)

	if *once {
		if err := runOnce(ctx, engine, *domainName); err != nil {
			slog.Error("reindex failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if !cfg.Kafka.Enabled {
		slog.Error("kafka is disabled; run with -once or enable kafka")
		os.Exit(1)
	}
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests,
		events.HandleReindexRequests(func(ctx context.Context, name string) error {
			_, err := engine.Reindex(ctx, name)
			return err
		}),
		kafka.FromFirstOffset(),
		kafka.WithHandlerRetry(resilience.Backoff{Attempts: 3, Initial: 5 * time.Second, Max: time.Minute}),
	)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ReindexRequests,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}
	slog.Info("indexer service stopped")
}

type reindexer interface {
	Reindex(ctx context.Context, name string) (queue.Report, error)
	ReindexAll(ctx context.Context) ([]queue.Report, error)
}

func runOnce(ctx context.Context, engine reindexer, name string) error {
	var reports []queue.Report
	if name != "" {
		r, err := engine.Reindex(ctx, name)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	} else {
		all, err := engine.ReindexAll(ctx)
		if err != nil {
			return err
		}
		reports = all
	}
	for _, r := range reports {
		for _, e := range r.Errors {
			slog.Warn("item failed", "domain", r.Domain, "error", e)
		}
	}
	return nil
}
