// Package config loads the heos command line configuration.
package config

import (
	"time"

	"github.com/heoskit/heos/heos"
	"github.com/heoskit/heos/heosprotocol"
	"github.com/sirupsen/logrus"
)

// Config is the complete CLI configuration.
type Config struct {
	Host       string           `yaml:"host" mapstructure:"host"`
	Connection ConnectionConfig `yaml:"connection" mapstructure:"connection"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	REPL       REPLConfig       `yaml:"repl" mapstructure:"repl"`
}

// ConnectionConfig maps onto heosprotocol.Options.
type ConnectionConfig struct {
	Port                 int           `yaml:"port" mapstructure:"port"`
	Timeout              time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Reconnect            bool          `yaml:"reconnect" mapstructure:"reconnect"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts" mapstructure:"reconnect_max_attempts"`
	Failover             bool          `yaml:"failover" mapstructure:"failover"`
	FailoverHosts        []string      `yaml:"failover_hosts" mapstructure:"failover_hosts"`
	HeartBeat            bool          `yaml:"heart_beat" mapstructure:"heart_beat"`
	HeartBeatInterval    time.Duration `yaml:"heart_beat_interval" mapstructure:"heart_beat_interval"`
}

// SessionConfig maps onto heos.Options.
type SessionConfig struct {
	Events            bool   `yaml:"events" mapstructure:"events"`
	AllProgressEvents bool   `yaml:"all_progress_events" mapstructure:"all_progress_events"`
	Username          string `yaml:"username" mapstructure:"username"`
	Password          string `yaml:"password" mapstructure:"password"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	Output     string `yaml:"output" mapstructure:"output"`
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Caller     bool   `yaml:"caller" mapstructure:"caller"`
}

// REPLConfig configures the interactive shell.
type REPLConfig struct {
	HistoryFile string `yaml:"history_file" mapstructure:"history_file"`
}

// ConnectionOptions converts the connection section into connection options.
func (c *Config) ConnectionOptions(log logrus.FieldLogger) []heosprotocol.Option {
	cc := c.Connection
	opts := []heosprotocol.Option{
		heosprotocol.WithPort(cc.Port),
		heosprotocol.WithTimeout(cc.Timeout),
		heosprotocol.WithReconnect(cc.Reconnect),
		heosprotocol.WithReconnectDelay(cc.ReconnectDelay),
		heosprotocol.WithReconnectMaxAttempts(cc.ReconnectMaxAttempts),
		heosprotocol.WithFailover(cc.Failover),
		heosprotocol.WithHeartBeat(cc.HeartBeat),
		heosprotocol.WithHeartBeatInterval(cc.HeartBeatInterval),
	}
	if len(cc.FailoverHosts) > 0 {
		opts = append(opts, heosprotocol.WithFailoverHosts(cc.FailoverHosts...))
	}
	if log != nil {
		opts = append(opts, heosprotocol.WithLogger(log))
	}
	return opts
}

// SessionOptions converts the configuration into session options.
func (c *Config) SessionOptions(log logrus.FieldLogger) []heos.Option {
	opts := []heos.Option{
		heos.WithEvents(c.Session.Events),
		heos.WithAllProgressEvents(c.Session.AllProgressEvents),
		heos.WithConnectionOptions(c.ConnectionOptions(log)...),
	}
	if c.Session.Username != "" {
		opts = append(opts, heos.WithCredentials(c.Session.Username, c.Session.Password))
	}
	return opts
}
