// internal/workers/application/check-priority-routing/config.go
package checkpriorityrouting

import "time"

type Config struct {
	CacheTTL time.Duration
	Timeout  time.Duration
	// DefaultQueue takes applications no reviewer_queues row matches.
	DefaultQueue string
}

func LoadConfig() *Config {
	return &Config{
		CacheTTL:     30 * time.Minute,
		Timeout:      10 * time.Second,
		DefaultQueue: "general-review",
	}
}
