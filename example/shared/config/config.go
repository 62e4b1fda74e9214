package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Driver names the database driver a Connection is opened with.
type Driver string

const (
	DriverPGX      Driver = "pgx"      // pgxpool.Pool
	DriverPostgres Driver = "postgres" // lib/pq behind database/sql
	DriverSQLX     Driver = "sqlx"     // lib/pq behind sqlx
	DriverSQLite   Driver = "sqlite"   // modernc.org/sqlite behind database/sql
)

const (
	EnvPrefix = "TABLESERVICE"

	keyDriver          = "driver"
	keyDSN             = "dsn"
	keyMaxOpenConns    = "max_open_conns"
	keyMaxIdleConns    = "max_idle_conns"
	keyConnMaxLifetime = "conn_max_lifetime"
	keyConnMaxIdleTime = "conn_max_idle_time"
	keyConnectTimeout  = "connect_timeout"
	keyLogLevel        = "log_level"

	defaultDriver          = DriverSQLite
	defaultDSN             = "tableservice.db"
	defaultMaxOpenConns    = 8
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = time.Hour
	defaultConnMaxIdleTime = time.Minute * 5
	defaultConnectTimeout  = time.Second * 5
	defaultLogLevel        = "info"
)

var (
	ErrUnknownDriver   = errors.New("unknown database driver")
	ErrMissingDSN      = errors.New("missing data source name")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Config holds the database settings of the examples.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	LogLevel        slog.Level
}

// Load reads the configuration from configFile, if given, and the environment.
// A configFile that does not exist is an error, an empty configFile means environment and defaults only.
func Load(configFile string) (Config, error) {
	v := viper.New()

	v.SetDefault(keyDriver, string(defaultDriver))
	v.SetDefault(keyDSN, defaultDSN)
	v.SetDefault(keyMaxOpenConns, defaultMaxOpenConns)
	v.SetDefault(keyMaxIdleConns, defaultMaxIdleConns)
	v.SetDefault(keyConnMaxLifetime, defaultConnMaxLifetime)
	v.SetDefault(keyConnMaxIdleTime, defaultConnMaxIdleTime)
	v.SetDefault(keyConnectTimeout, defaultConnectTimeout)
	v.SetDefault(keyLogLevel, defaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Driver:          Driver(strings.ToLower(v.GetString(keyDriver))),
		DSN:             v.GetString(keyDSN),
		MaxOpenConns:    v.GetInt(keyMaxOpenConns),
		MaxIdleConns:    v.GetInt(keyMaxIdleConns),
		ConnMaxLifetime: v.GetDuration(keyConnMaxLifetime),
		ConnMaxIdleTime: v.GetDuration(keyConnMaxIdleTime),
		ConnectTimeout:  v.GetDuration(keyConnectTimeout),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return Config{}, errors.Join(ErrInvalidLogLevel, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the driver is known and a DSN is set.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPGX, DriverPostgres, DriverSQLX, DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}

	if c.DSN == "" {
		return ErrMissingDSN
	}

	return nil
}
