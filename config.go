package shellterm

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the tunables of the backend. Fields map to environment
// variables under the SHELLTERM_ prefix (SHELLTERM_COLUMNS,
// SHELLTERM_MAX_SCREEN_LINES, ...).
type Config struct {
	Columns        int           `default:"160"`
	Rows           int           `default:"24"`
	MaxScreenLines int           `split_words:"true" default:"10000"`
	MaxOutputBytes int           `split_words:"true" default:"1000000"`
	CacheCapacity  int           `split_words:"true" default:"100"`
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	DefaultTimeout time.Duration `split_words:"true" default:"30s"`
	Restricted     bool          `default:"false"`
}

// DefaultConfig returns the built-in defaults without consulting the
// environment.
func DefaultConfig() Config {
	return Config{
		Columns:        DefaultCols,
		Rows:           24,
		MaxScreenLines: DefaultMaxLines,
		MaxOutputBytes: MaxOutputSize,
		CacheCapacity:  DefaultCacheCapacity,
		CacheTTL:       DefaultCacheTTL,
		DefaultTimeout: 30 * time.Second,
	}
}

// LoadConfig reads configuration from the environment, falling back to
// the defaults above.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("shellterm", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
