package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heoskit/heos/heosprotocol"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. HEOS_HOST or
	// HEOS_CONNECTION_TIMEOUT.
	EnvPrefix = "HEOS"
	// ConfigName is the config file name searched for without extension.
	ConfigName = "heos"
)

// Loader reads the configuration from defaults, a YAML file, the
// environment and any flags bound to its viper instance.
type Loader struct {
	viper      *viper.Viper
	configFile string
}

// NewLoader returns a loader over v. An empty configFile searches the
// current directory and $HOME/.config/heos for heos.yaml.
func NewLoader(v *viper.Viper, configFile string) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{viper: v, configFile: configFile}
}

// Load merges all sources and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.viper.SetConfigType("yaml")
	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()

	l.setDefaults()

	if l.configFile != "" {
		l.viper.SetConfigFile(l.configFile)
	} else {
		l.viper.SetConfigName(ConfigName)
		l.viper.AddConfigPath(".")
		l.viper.AddConfigPath(filepath.Join("$HOME", ".config", "heos"))
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

func (l *Loader) setDefaults() {
	v := l.viper
	v.SetDefault("host", "")

	conn := heosprotocol.DefaultOptions()
	v.SetDefault("connection.port", conn.Port)
	v.SetDefault("connection.timeout", conn.Timeout)
	v.SetDefault("connection.reconnect", true)
	v.SetDefault("connection.reconnect_delay", conn.ReconnectDelay)
	v.SetDefault("connection.reconnect_max_attempts", conn.ReconnectMaxAttempts)
	v.SetDefault("connection.failover", false)
	v.SetDefault("connection.failover_hosts", []string{})
	v.SetDefault("connection.heart_beat", conn.HeartBeat)
	v.SetDefault("connection.heart_beat_interval", conn.HeartBeatInterval)

	v.SetDefault("session.events", true)
	v.SetDefault("session.all_progress_events", false)
	v.SetDefault("session.username", "")
	v.SetDefault("session.password", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "heos.log")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.caller", false)

	v.SetDefault("repl.history_file", defaultHistoryFile())
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".heos_history"
	}
	return filepath.Join(home, ".heos_history")
}

func validate(cfg *Config) error {
	c := cfg.Connection
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %s", c.Timeout)
	}
	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay must not be negative: %s", c.ReconnectDelay)
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("reconnect max attempts must not be negative: %d", c.ReconnectMaxAttempts)
	}
	if c.HeartBeat && c.HeartBeatInterval <= 0 {
		return fmt.Errorf("heart beat interval must be positive: %s", c.HeartBeatInterval)
	}
	if cfg.Session.Password != "" && cfg.Session.Username == "" {
		return errors.New("password given without username")
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Log.Format)
	}
	switch strings.ToLower(cfg.Log.Output) {
	case "stdout", "stderr":
	case "file":
		if cfg.Log.FilePath == "" {
			return errors.New("log file path is required when output is file")
		}
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Log.Output)
	}
	return nil
}

// RequireHost reports an error when no device host is configured.
func (c *Config) RequireHost() error {
	if c.Host == "" {
		return errors.New("no host configured: use --host, HEOS_HOST or host in heos.yaml")
	}
	return nil
}
