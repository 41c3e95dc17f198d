package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	POSAPI        POSAPIConfig
	Quote         QuoteConfig
	Snapshot      SnapshotConfig
	Redis         RedisConfig
	DB            DBConfig
	Notifications NotificationsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSCART_APP_ENV" required:"true"`
	Port         string `envconfig:"POSCART_APP_PORT" default:"8787"`
	LogLevel     string `envconfig:"POSCART_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"POSCART_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"POSCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// POSAPIConfig describes the remote POS backend that owns pricing and orders.
type POSAPIConfig struct {
	BaseURL    string        `envconfig:"POSCART_POS_API_BASE_URL" default:"https://beta.aarluxe.ae/api"`
	Token      string        `envconfig:"POSCART_POS_API_TOKEN"`
	BusinessID string        `envconfig:"POSCART_POS_API_BUSINESS_ID" default:"1"`
	Timeout    time.Duration `envconfig:"POSCART_POS_API_TIMEOUT" default:"10s"`
	QuotePath  string        `envconfig:"POSCART_POS_API_QUOTE_PATH" default:"/pos/cart"`
	SubmitPath string        `envconfig:"POSCART_POS_API_SUBMIT_PATH" default:"/cart/submit"`
}

type QuoteConfig struct {
	Debounce  time.Duration `envconfig:"POSCART_QUOTE_DEBOUNCE" default:"300ms"`
	AutoQuote bool          `envconfig:"POSCART_QUOTE_AUTO" default:"true"`
}

type SnapshotConfig struct {
	Driver     string        `envconfig:"POSCART_SNAPSHOT_DRIVER" default:"none"`
	TerminalID string        `envconfig:"POSCART_SNAPSHOT_TERMINAL_ID" default:"cart-storage"`
	TTL        time.Duration `envconfig:"POSCART_SNAPSHOT_TTL" default:"24h"`
}

// Enabled reports whether a snapshot backend was selected.
func (s SnapshotConfig) Enabled() bool {
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	return driver != "" && driver != SnapshotDriverNone
}

type RedisConfig struct {
	URL          string        `envconfig:"POSCART_REDIS_URL"`
	Address      string        `envconfig:"POSCART_REDIS_ADDR"`
	Password     string        `envconfig:"POSCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether enough redis settings exist to dial.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type DBConfig struct {
	DSN             string        `envconfig:"POSCART_DB_DSN" default:"file:poscart.db?cache=shared"`
	Driver          string        `envconfig:"POSCART_DB_DRIVER" default:"sqlite"`
	AutoMigrate     bool          `envconfig:"POSCART_DB_AUTO_MIGRATE" default:"true"`
	MaxOpenConns    int           `envconfig:"POSCART_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"POSCART_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"POSCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type NotificationsConfig struct {
	DefaultDuration time.Duration `envconfig:"POSCART_NOTIFICATION_DURATION" default:"3s"`
}

func (c *Config) validate() error {
	var errs error
	if strings.TrimSpace(c.POSAPI.BaseURL) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvPOSBaseURL))
	}
	if c.POSAPI.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvPOSTimeout))
	}
	if c.Quote.Debounce < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvQuoteDebounce))
	}

	switch strings.ToLower(strings.TrimSpace(c.Snapshot.Driver)) {
	case "", SnapshotDriverNone:
	case SnapshotDriverRedis:
		if !c.Redis.Configured() {
			errs = multierr.Append(errs, fmt.Errorf("either %s or %s is required for the redis snapshot driver", EnvRedisURL, EnvRedisAddr))
		}
	case SnapshotDriverSQLite, SnapshotDriverPostgres:
		if strings.TrimSpace(c.DB.DSN) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for the %s snapshot driver", EnvDBDSN, c.Snapshot.Driver))
		}
		c.DB.Driver = strings.ToLower(strings.TrimSpace(c.Snapshot.Driver))
	default:
		errs = multierr.Append(errs, fmt.Errorf("unsupported %s %q", EnvSnapshotDrv, c.Snapshot.Driver))
	}
	if c.Snapshot.Enabled() && strings.TrimSpace(c.Snapshot.TerminalID) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required when snapshots are enabled", EnvTerminalID))
	}
	return errs
}
