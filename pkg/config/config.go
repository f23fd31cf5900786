package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "agrisync"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Redis   RedisConfig
	Engine  EngineConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRISYNC_APP_ENV" default:"dev"`
	Port         string `envconfig:"AGRISYNC_APP_PORT" default:"8090"`
	LogLevel     string `envconfig:"AGRISYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRISYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Storage drivers supported by the kv port.
const (
	StorageDriverMemory = "memory"
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

type StorageConfig struct {
	Driver     string `envconfig:"AGRISYNC_STORAGE_DRIVER" default:"file"`
	FileDir    string `envconfig:"AGRISYNC_STORAGE_FILE_DIR" default:".agrisync"`
	SQLitePath string `envconfig:"AGRISYNC_STORAGE_SQLITE_PATH" default:".agrisync/engine.db"`
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case StorageDriverMemory, StorageDriverFile, StorageDriverSQLite, StorageDriverRedis:
		return nil
	}
	return fmt.Errorf("unknown storage driver %q", s.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRISYNC_REDIS_URL"`
	Address      string        `envconfig:"AGRISYNC_REDIS_ADDR"`
	Password     string        `envconfig:"AGRISYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRISYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRISYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRISYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRISYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRISYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRISYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// EngineConfig tunes retention windows and ranking caps.
type EngineConfig struct {
	CartRetention    time.Duration `envconfig:"AGRISYNC_ENGINE_CART_RETENTION" default:"168h"`
	HistoryRetention time.Duration `envconfig:"AGRISYNC_ENGINE_HISTORY_RETENTION" default:"720h"`
	HistoryCap       int           `envconfig:"AGRISYNC_ENGINE_HISTORY_CAP" default:"10"`
	SweepInterval    time.Duration `envconfig:"AGRISYNC_ENGINE_SWEEP_INTERVAL" default:"1h"`
}
