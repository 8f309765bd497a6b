package heosprotocol

import (
	"time"

	"github.com/heoskit/heos/dispatch"
	"github.com/sirupsen/logrus"
)

// Options holds the connection settings. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	Port                 int
	Timeout              time.Duration
	Reconnect            bool
	ReconnectDelay       time.Duration
	ReconnectMaxAttempts int
	Failover             bool
	FailoverHosts        []string
	HeartBeat            bool
	HeartBeatInterval    time.Duration
	Logger               logrus.FieldLogger
	Dispatcher           *dispatch.Dispatcher
}

// Option configures a connection.
type Option func(*Options)

// DefaultOptions returns the default connection settings: heart beat on,
// reconnect and failover off.
func DefaultOptions() Options {
	return Options{
		Port:                 CLIPort,
		Timeout:              DefaultTimeout,
		ReconnectDelay:       DefaultReconnectDelay,
		ReconnectMaxAttempts: DefaultReconnectMaxAttempts,
		HeartBeat:            true,
		HeartBeatInterval:    DefaultHeartBeatInterval,
	}
}

// NewOptions applies opts to the defaults.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.ReconnectMaxAttempts = max(o.ReconnectMaxAttempts, 0)
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Dispatcher == nil {
		o.Dispatcher = dispatch.New(dispatch.WithLogger(o.Logger))
	}
	return o
}

// WithPort sets the device port.
func WithPort(port int) Option {
	return func(o *Options) {
		o.Port = port
	}
}

// WithTimeout bounds opening the connection and waiting for each response.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithReconnect enables reconnecting after the connection drops unexpectedly.
func WithReconnect(enabled bool) Option {
	return func(o *Options) {
		o.Reconnect = enabled
	}
}

// WithReconnectDelay sets the pause before each reconnect attempt.
func WithReconnectDelay(delay time.Duration) Option {
	return func(o *Options) {
		o.ReconnectDelay = delay
	}
}

// WithReconnectMaxAttempts limits reconnect attempts. Zero retries forever;
// negative values are treated as zero.
func WithReconnectMaxAttempts(attempts int) Option {
	return func(o *Options) {
		o.ReconnectMaxAttempts = max(attempts, 0)
	}
}

// WithFailover enables reconnecting to other hosts in the system when the
// current host cannot be reached.
func WithFailover(enabled bool) Option {
	return func(o *Options) {
		o.Failover = enabled
	}
}

// WithFailoverHosts sets the hosts tried during failover. An explicit list
// is never replaced by hosts discovered from the device.
func WithFailoverHosts(hosts ...string) Option {
	return func(o *Options) {
		o.FailoverHosts = append([]string(nil), hosts...)
	}
}

// WithHeartBeat enables the idle heart beat.
func WithHeartBeat(enabled bool) Option {
	return func(o *Options) {
		o.HeartBeat = enabled
	}
}

// WithHeartBeatInterval sets the idle time after which a heart beat is sent.
func WithHeartBeatInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.HeartBeatInterval = interval
	}
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithDispatcher shares a dispatcher with the connection. By default each
// connection creates its own.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(o *Options) {
		o.Dispatcher = d
	}
}
