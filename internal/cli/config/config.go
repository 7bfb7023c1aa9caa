package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/DataVisuals/expectations/internal/bridge"
	"github.com/DataVisuals/expectations/internal/web/session"
)

// FileName is the config file looked up without extension
const FileName = "dqrules"

// EnvPrefix prefixes environment overrides, e.g. DQRULES_SERVER_PORT
const EnvPrefix = "DQRULES"

// Config represents the dqrules configuration
type Config struct {
	Model   string        `mapstructure:"model"`
	Session SessionConfig `mapstructure:"session"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// SessionConfig selects where rule registries are kept between commands
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	DSN     string        `mapstructure:"dsn"`
	ID      string        `mapstructure:"id"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents redis connection settings
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// BridgeConfig represents the engine project layout and invocation
type BridgeConfig struct {
	ProjectDir string        `mapstructure:"project_dir"`
	DataDir    string        `mapstructure:"data_dir"`
	ModelsDir  string        `mapstructure:"models_dir"`
	Engine     string        `mapstructure:"engine"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Pprof           bool          `mapstructure:"pprof"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Options converts the session section for session.Open
func (s SessionConfig) Options() session.Options {
	return session.Options{
		Backend:       s.Backend,
		DSN:           s.DSN,
		RedisAddr:     s.Redis.Addr,
		RedisPassword: s.Redis.Password,
		RedisDB:       s.Redis.DB,
		KeyPrefix:     s.Redis.KeyPrefix,
	}
}

// Layout converts the bridge section, defaulting data and models dirs
// to subdirectories of the project
func (b BridgeConfig) Layout() bridge.Layout {
	layout := bridge.DefaultLayout(b.ProjectDir)
	if b.DataDir != "" {
		layout.DataDir = b.DataDir
	}
	if b.ModelsDir != "" {
		layout.ModelsDir = b.ModelsDir
	}
	return layout
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "")

	v.SetDefault("session.backend", session.BackendSQLite)
	v.SetDefault("session.dsn", filepath.Join(".dqrules", "sessions.db"))
	v.SetDefault("session.id", "default")
	v.SetDefault("session.ttl", session.DefaultTTL)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.key_prefix", session.DefaultKeyPrefix)

	v.SetDefault("bridge.project_dir", ".")
	v.SetDefault("bridge.data_dir", "")
	v.SetDefault("bridge.models_dir", "")
	v.SetDefault("bridge.engine", bridge.DefaultEngine)
	v.SetDefault("bridge.timeout", bridge.DefaultTimeout)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.pprof", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads dqrules.yml (or the file at path when non-empty), applies
// DQRULES_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if root, err := GetProjectRoot(); err == nil {
			v.AddConfigPath(root)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot walks up from the working directory to the first
// directory holding a dqrules config file
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, FileName+ext)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found in this directory or any parent", FileName)
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	backend := strings.ToLower(cfg.Session.Backend)
	valid := false
	for _, b := range session.Backends {
		if backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("session.backend must be one of %s, got: %s", strings.Join(session.Backends, ", "), cfg.Session.Backend)
	}
	if (backend == session.BackendSQLite || backend == session.BackendPostgres) && cfg.Session.DSN == "" {
		return fmt.Errorf("session.dsn is required for the %s backend", backend)
	}
	if cfg.Session.ID == "" {
		return fmt.Errorf("session.id must not be empty")
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got: %s", cfg.Session.TTL)
	}

	if cfg.Bridge.Timeout < 0 {
		return fmt.Errorf("bridge.timeout must not be negative, got: %s", cfg.Bridge.Timeout)
	}
	if cfg.Bridge.Engine == "" {
		return fmt.Errorf("bridge.engine must not be empty")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port)
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	return nil
}
