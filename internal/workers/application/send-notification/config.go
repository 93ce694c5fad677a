// internal/workers/application/send-notification/config.go
package sendnotification

import "time"

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	// PortalURL is linked from every message.
	PortalURL string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailEnabled: true,
		Timeout:      30 * time.Second,
	}
}
