// cmd/worker-manager/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"agritour-certification/internal/assessment/catalog"
	commonaws "agritour-certification/internal/common/aws"
	"agritour-certification/internal/common/camunda"
	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/observability"

	cpr "agritour-certification/internal/workers/application/check-priority-routing"
	crs "agritour-certification/internal/workers/application/check-readiness-score"
	car "agritour-certification/internal/workers/application/create-application-record"
	sn "agritour-certification/internal/workers/application/send-notification"
	vad "agritour-certification/internal/workers/application/validate-application-data"
	ia "agritour-certification/internal/workers/data-access/index-application"
	qe "agritour-certification/internal/workers/data-access/query-elasticsearch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = database.RetryWithBackoff(ctx, func(context.Context) error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
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
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch ---
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
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
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
	zapLog.Info("Redis connected successfully")

	// --- Question catalog ---
	src, err := catalog.NewSource(cfg.Assessment, pg.DB, rdb.Client, log)
	if err != nil {
		zapLog.Fatal("catalog source", zap.Error(err))
	}
	catalogs := catalog.NewLoader(src, log)
	defer catalogs.Close()
	catalogs.Load(ctx)
	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	if snap, err := catalogs.Wait(loadCtx); err != nil || snap.State != catalog.StateLoaded {
		zapLog.Warn("catalog not loaded at startup", zap.String("state", string(snap.State)), zap.Error(firstErr(err, snap.Err)))
	}
	cancelLoad()
	// Jobs that need the catalog fail with retries left until a reload succeeds.
	go reloadUntilReady(ctx, catalogs, 30*time.Second)

	// --- Notification channels ---
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

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	register := func(taskType string, handler camunda.HandlerFunc) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, wcfg, handler, obs, log))
	}
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
			return config.GetDuration(w.Timeout)
		}
		return fallback
	}

	{
		c := vad.LoadConfig()
		c.Timeout = timeout(vad.TaskType, c.Timeout)
		c.RequireEvidenceNote = cfg.Assessment.RequireEvidenceNote
		register(vad.TaskType, vad.NewHandler(c, catalogs, log).Handle)
	}
	{
		c := crs.LoadConfig()
		c.Timeout = timeout(crs.TaskType, c.Timeout)
		register(crs.TaskType, crs.NewHandler(c, catalogs, log).Handle)
	}
	{
		c := cpr.LoadConfig()
		c.Timeout = timeout(cpr.TaskType, c.Timeout)
		register(cpr.TaskType, cpr.NewHandler(c, pg.DB, rdb.Client, log).Handle)
	}
	{
		c := car.LoadConfig()
		c.Timeout = timeout(car.TaskType, c.Timeout)
		register(car.TaskType, car.NewHandler(c, pg.DB, log).Handle)
	}
	{
		c := ia.LoadConfig()
		c.Timeout = timeout(ia.TaskType, c.Timeout)
		c.Index = cfg.Database.Elasticsearch.ApplicationIndex
		register(ia.TaskType, ia.NewHandler(c, es.Client, log).Handle)
	}
	{
		c := qe.LoadConfig()
		c.Timeout = timeout(qe.TaskType, c.Timeout)
		c.Index = cfg.Database.Elasticsearch.ApplicationIndex
		register(qe.TaskType, qe.NewHandler(c, es.Client, log).Handle)
	}
	{
		c := sn.LoadConfig()
		c.Timeout = timeout(sn.TaskType, c.Timeout)
		c.EmailEnabled = cfg.Notifications.Email.Enabled
		c.SMSEnabled = cfg.Notifications.SMS.Enabled
		c.FromEmail = cfg.Notifications.Email.FromEmail
		if c.FromEmail == "" {
			c.FromEmail = cfg.Integrations.AWS.SES.FromEmail
		}
		c.PortalURL = cfg.Notifications.PortalURL
		register(sn.TaskType, sn.NewHandler(c, pg.DB, sesAPI, snsAPI, log).Handle)
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failures := map[string]string{}
		if err := pg.Ping(checkCtx); err != nil {
			failures["postgres"] = err.Error()
		}
		if err := rdb.Ping(checkCtx); err != nil {
			failures["redis"] = err.Error()
		}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			failures["zeebe"] = err.Error()
		}
		if !catalogs.Ready() {
			failures["catalog"] = string(catalogs.State().State)
		}
		if len(failures) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", failures)
			return
		}
		writeStatus(w, http.StatusOK, "ready", nil)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTP.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, failures map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if len(failures) > 0 {
		body["checks"] = failures
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func reloadUntilReady(ctx context.Context, catalogs *catalog.Loader, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if snap := catalogs.State(); snap.State == catalog.StateEmpty || snap.State == catalog.StateFailed {
				catalogs.Load(ctx)
			}
		}
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
