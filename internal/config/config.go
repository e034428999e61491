// Package config loads settings with Viper: defaults, then an optional YAML
// file, then TODO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "TODO"

	// Config keys.
	KeyDriver        = "backend.driver"
	KeyCollection    = "backend.collection"
	KeySQLitePath    = "sqlite.path"
	KeySQLitePoll    = "sqlite.poll_interval"
	KeyJSONPath      = "json.path"
	KeyPostgresDSN   = "postgres.dsn"
	KeyRedisAddr     = "redis.addr"
	KeyRedisPassword = "redis.password"
	KeyRedisDB       = "redis.db"
	KeyRedisURL      = "redis.url"
	KeyTheme         = "ui.theme"
	KeyToastDuration = "ui.toast_duration"
	KeyLogFile       = "log.file"
	KeyLogLevel      = "log.level"
)

// Config is the resolved configuration.
type Config struct {
	Backend  Backend  `mapstructure:"backend"`
	SQLite   SQLite   `mapstructure:"sqlite"`
	JSON     JSON     `mapstructure:"json"`
	Postgres Postgres `mapstructure:"postgres"`
	Redis    Redis    `mapstructure:"redis"`
	UI       UI       `mapstructure:"ui"`
	Log      Log      `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type Backend struct {
	Driver     string `mapstructure:"driver"`
	Collection string `mapstructure:"collection"`
}

type SQLite struct {
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type JSON struct {
	Path string `mapstructure:"path"`
}

type Postgres struct {
	DSN string `mapstructure:"dsn"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	URL      string `mapstructure:"url"`
}

type UI struct {
	Theme         string        `mapstructure:"theme"`
	ToastDuration time.Duration `mapstructure:"toast_duration"`
}

type Log struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultDir is $HOME/.livetodo, or .livetodo when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".livetodo"
	}
	return filepath.Join(home, ".livetodo")
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()
	v.SetDefault(KeyDriver, DriverSQLite)
	v.SetDefault(KeyCollection, "todos")
	v.SetDefault(KeySQLitePath, filepath.Join(dir, "todos.db"))
	v.SetDefault(KeySQLitePoll, 500*time.Millisecond)
	v.SetDefault(KeyJSONPath, "todos.json")
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyTheme, "classic")
	v.SetDefault(KeyToastDuration, 4*time.Second)
	v.SetDefault(KeyLogFile, filepath.Join(dir, "todo.log"))
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads configuration. With an empty path it looks for config.yaml in
// DefaultDir; a missing file there is not an error. An explicit path must
// exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	switch c.Backend.Driver {
	case DriverMemory, DriverSQLite, DriverJSON, DriverRedis:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: %s is required for the postgres backend", KeyPostgresDSN)
		}
	default:
		return fmt.Errorf("config: unknown backend driver %q", c.Backend.Driver)
	}
	if strings.TrimSpace(c.Backend.Collection) == "" {
		return fmt.Errorf("config: %s must not be empty", KeyCollection)
	}
	if c.UI.ToastDuration <= 0 {
		return fmt.Errorf("config: %s must be positive", KeyToastDuration)
	}
	return nil
}
