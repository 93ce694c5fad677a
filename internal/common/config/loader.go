// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// APP_ENVIRONMENT, DATABASE_POSTGRES_HOST, AUTH_JWT_SECRET ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // the environment overlay is optional

	return finalize(v, env)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v, os.Getenv("APP_ENVIRONMENT"))
}

func finalize(v *viper.Viper, env string) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot looks for go.mod in the working directory and its parents.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided under short env names.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Auth.JWTSecret, "JWT_SECRET"},
		{&cfg.Storage.MinIO.AccessKey, "MINIO_ACCESS_KEY"},
		{&cfg.Storage.MinIO.SecretKey, "MINIO_SECRET_KEY"},
		{&cfg.Messaging.RabbitMQ.URL, "RABBITMQ_URL"},
		{&cfg.Assessment.RemoteKey, "ASSESSMENT_REMOTE_KEY"},
	}
	for _, o := range overrides {
		if *o.target != "" {
			continue
		}
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "agritour-certification"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.ProcessID == "" {
		cfg.Camunda.ProcessID = "certification-application"
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.ApplicationIndex == "" {
		cfg.Database.Elasticsearch.ApplicationIndex = "applications"
	}

	// HTTP defaults
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8081"
	}
	if cfg.HTTP.EndpointPrefix == "" {
		cfg.HTTP.EndpointPrefix = "/api"
	}
	if cfg.HTTP.Version == "" {
		cfg.HTTP.Version = "v1"
	}
	if cfg.HTTP.MaxRequestsPerSecond == 0 {
		cfg.HTTP.MaxRequestsPerSecond = 20
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15000
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30000
	}
	if cfg.HTTP.MaxUploadBytes == 0 {
		cfg.HTTP.MaxUploadBytes = 32 << 20
	}
	if cfg.HTTP.MetricsAddress == "" {
		cfg.HTTP.MetricsAddress = ":8080"
	}

	// Auth defaults
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 720
	}
	if cfg.Auth.OTPTTL == 0 {
		cfg.Auth.OTPTTL = 300
	}
	if cfg.Auth.OTPLength == 0 {
		cfg.Auth.OTPLength = 6
	}

	// Storage and messaging defaults
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = "certification-evidence"
	}
	if cfg.Messaging.RabbitMQ.Exchange == "" {
		cfg.Messaging.RabbitMQ.Exchange = "certification.events"
	}

	// Assessment defaults
	if cfg.Assessment.CatalogSource == "" {
		cfg.Assessment.CatalogSource = "static"
	}
	if cfg.Assessment.CacheTTL == 0 {
		cfg.Assessment.CacheTTL = 300
	}
	if cfg.Assessment.MaxAttachmentBytes == 0 {
		cfg.Assessment.MaxAttachmentBytes = 5 << 20
	}
	if cfg.Assessment.MaxAttachments == 0 {
		cfg.Assessment.MaxAttachments = 5
	}

	if cfg.Integrations.AWS.SES.RatePerSecond == 0 {
		cfg.Integrations.AWS.SES.RatePerSecond = 14
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Worker defaults
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	switch cfg.Assessment.CatalogSource {
	case "static", "postgres":
	case "http":
		if cfg.Assessment.RemoteURL == "" {
			return fmt.Errorf("assessment.remote_url is required when catalog_source is http")
		}
	default:
		return fmt.Errorf("assessment.catalog_source %q is not one of static, http, postgres", cfg.Assessment.CatalogSource)
	}

	if cfg.Auth.JWTSecret == "" && !cfg.App.IsDevelopment() {
		return fmt.Errorf("auth.jwt_secret is required outside development")
	}
	if cfg.Auth.DevOTPBypass && !cfg.App.IsDevelopment() {
		return fmt.Errorf("auth.dev_otp_bypass is only allowed in development")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
