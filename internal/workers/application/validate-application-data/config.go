// internal/workers/application/validate-application-data/config.go
package validateapplicationdata

import "time"

type Config struct {
	Timeout time.Duration
	// RequireEvidenceNote rejects visible questions that have a score but no note.
	RequireEvidenceNote bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
