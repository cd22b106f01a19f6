package config

import (
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Every value has a default so the CLI starts with no environment at all.
// Command-line flags override whatever envconfig produced.
// -----------------------------------------------------------------------------

type Config struct {
	Library LibraryConfig
	Ledger  LedgerConfig
	Log     LogConfig
}

type LibraryConfig struct {
	BorrowLimit int    `envconfig:"LIBRARY_BORROW_LIMIT" default:"3"`
	SeedFile    string `envconfig:"LIBRARY_SEED_FILE"`
}

type LedgerConfig struct {
	// Path of the SQLite ledger; ":memory:" keeps it in process.
	Path string `envconfig:"LIBRARY_LEDGER_PATH" default:":memory:"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"warn"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Library.BorrowLimit <= 0 {
		return errors.Newf("borrow limit must be positive, got %d", c.Library.BorrowLimit)
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger path cannot be empty")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Newf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel maps the configured level name onto slog.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, errors.Wrapf(err, "unknown log level %q", l.Level)
	}
	return lvl, nil
}

func NewTestConfig() Config {
	return Config{
		Library: LibraryConfig{
			BorrowLimit: 3,
		},
		Ledger: LedgerConfig{
			Path: ":memory:",
		},
		Log: LogConfig{
			Level:  "error", // Error level only for tests
			Format: "text",
		},
	}
}
