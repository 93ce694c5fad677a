// cmd/portal-api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/assessment/draft"
	commonaws "agritour-certification/internal/common/aws"
	"agritour-certification/internal/common/camunda"
	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/messaging"
	"agritour-certification/internal/common/storage"
	"agritour-certification/internal/evidence"
	"agritour-certification/internal/portal/api"
	"agritour-certification/internal/portal/wizard"
	"agritour-certification/internal/review"
	"agritour-certification/internal/session"
	"agritour-certification/internal/workers/data-access/query-elasticsearch/queries"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting portal API...", zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Backing services ---
	var pg *database.PostgresClient
	err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := database.EnsureSchema(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	var rdb *database.RedisClient
	err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	var es *database.ElasticsearchClient
	err = database.RetryWithBackoff(ctx, func(context.Context) error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	var zeebe *camunda.Client
	err = database.RetryWithBackoff(ctx, func(context.Context) error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	var objects *storage.MinIOStore
	err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		objects, err = storage.NewMinIO(cfg.Storage.MinIO)
		if err != nil {
			return err
		}
		return objects.EnsureBucket(ctx)
	}, 10, 2*time.Second, log, "MinIO bucket")
	if err != nil {
		zapLog.Fatal("object storage failed after retries", zap.Error(err))
	}

	var events messaging.Publisher = messaging.NopPublisher{}
	if cfg.Messaging.RabbitMQ.Enabled {
		rabbit, err := messaging.NewRabbitPublisher(cfg.Messaging.RabbitMQ)
		if err != nil {
			zapLog.Fatal("rabbitmq publisher", zap.Error(err))
		}
		defer rabbit.Close()
		events = rabbit
	}

	var sesAPI commonaws.SESAPI
	var snsAPI commonaws.SNSAPI
	if cfg.Integrations.AWS.SES.Enabled {
		client, err := commonaws.NewSESClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SES.RatePerSecond)
		if err != nil {
			zapLog.Fatal("ses client", zap.Error(err))
		}
		sesAPI = client
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		client, err := commonaws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
		if err != nil {
			zapLog.Fatal("sns client", zap.Error(err))
		}
		snsAPI = client
	}

	// --- Domain services ---
	src, err := catalog.NewSource(cfg.Assessment, pg.DB, rdb.Client, log)
	if err != nil {
		zapLog.Fatal("catalog source", zap.Error(err))
	}
	catalogs := catalog.NewLoader(src, log)
	defer catalogs.Close()
	// The wizard reports "loading" until this settles, so startup does not wait on it.
	catalogs.Load(ctx)

	sender := session.NewAWSCodeSender(sesAPI, snsAPI, cfg.Integrations.AWS.SES.FromEmail, log)
	sessions := session.NewService(rdb.Client, cfg.Auth, sender, log)

	evidenceFiles := evidence.NewService(objects, cfg.Assessment, log)
	drafts := draft.NewRedisStore(rdb.Client, time.Duration(cfg.Assessment.DraftTTL)*time.Hour)
	wizards := wizard.NewService(
		drafts,
		catalogs,
		evidenceFiles,
		wizard.NewZeebeSubmitter(zeebe, cfg.Camunda.ProcessID),
		wizard.Config{RequireEvidenceNote: cfg.Assessment.RequireEvidenceNote},
		log,
	)
	reviews := review.NewService(review.NewPostgresRepository(pg.DB), zeebe, events, log)

	server := api.NewServer(cfg.HTTP, api.Dependencies{
		Sessions:  sessions,
		Wizards:   wizards,
		Reviews:   reviews,
		Downloads: evidenceFiles,
		Search:    queries.NewSearcher(es.Client, cfg.Database.Elasticsearch.ApplicationIndex),
		Catalog:   catalogs,
		Checks: map[string]api.Check{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
			"minio":    objects.Ping,
			"zeebe":    zeebe.HealthCheck,
			"elasticsearch": func(context.Context) error {
				return es.Ping()
			},
		},
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           server.Routes(),
		ReadTimeout:       config.GetDuration(cfg.HTTP.ReadTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.HTTP.WriteTimeout),
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("Portal API listening", zap.String("address", srv.Addr), zap.String("prefix", server.Prefix()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, draining requests...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("Portal API stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("Portal API stopped gracefully")
}
