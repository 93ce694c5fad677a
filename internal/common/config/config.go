// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Messaging     MessagingConfig         `mapstructure:"messaging"`
	Assessment    AssessmentConfig        `mapstructure:"assessment"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsDevelopment reports whether the app runs with development conveniences enabled.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "" || a.Environment == "development" || a.Environment == "local"
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	ProcessID      string `mapstructure:"process_id"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses        []string `mapstructure:"addresses"`
	Username         string   `mapstructure:"username"`
	Password         string   `mapstructure:"password"`
	SSLEnabled       bool     `mapstructure:"ssl_enabled"`
	URL              string   `mapstructure:"url"`
	ApplicationIndex string   `mapstructure:"application_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Portal Configuration ---

// HTTPConfig holds the portal API listener settings.
type HTTPConfig struct {
	Address              string   `mapstructure:"address"`
	EndpointPrefix       string   `mapstructure:"endpoint_prefix"`
	Version              string   `mapstructure:"version"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	AllowedOrigins       []string `mapstructure:"allowed_origins"`
	ReadTimeout          int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout         int      `mapstructure:"write_timeout"` // milliseconds
	MaxUploadBytes       int64    `mapstructure:"max_upload_bytes"`
	MetricsAddress       string   `mapstructure:"metrics_address"`
}

// AuthConfig holds the OTP login and session token settings.
type AuthConfig struct {
	JWTSecret       string   `mapstructure:"jwt_secret"`
	TokenTTL        int      `mapstructure:"token_ttl"` // minutes
	OTPTTL          int      `mapstructure:"otp_ttl"`   // seconds
	OTPLength       int      `mapstructure:"otp_length"`
	DevOTPBypass    bool     `mapstructure:"dev_otp_bypass"`
	AdminIdentities []string `mapstructure:"admin_identities"`
}

// StorageConfig holds object storage settings for evidence files.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// MessagingConfig holds the event broker settings.
type MessagingConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Enabled  bool   `mapstructure:"enabled"`
}

// AssessmentConfig controls where the question catalog comes from and the attachment limits.
type AssessmentConfig struct {
	CatalogSource       string `mapstructure:"catalog_source"` // static | http | postgres
	RemoteURL           string `mapstructure:"remote_url"`
	RemoteKey           string `mapstructure:"remote_key"`
	CacheTTL            int    `mapstructure:"cache_ttl"` // seconds
	RequireEvidenceNote bool   `mapstructure:"require_evidence_note"`
	MaxAttachmentBytes  int64  `mapstructure:"max_attachment_bytes"`
	MaxAttachments      int    `mapstructure:"max_attachments"`
	DraftTTL            int    `mapstructure:"draft_ttl"` // hours, 0 keeps drafts forever
}

// IntegrationConfig holds settings for AWS notification channels.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled       bool    `mapstructure:"enabled"`
			FromEmail     string  `mapstructure:"from_email"`
			RatePerSecond float64 `mapstructure:"rate_per_second"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// NotificationConfig holds settings for the send-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
	} `mapstructure:"sms"`
	ReviewerEmails []string `mapstructure:"reviewer_emails"`
	PortalURL      string   `mapstructure:"portal_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
