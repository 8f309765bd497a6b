package heos

import (
	"github.com/heoskit/heos/heosprotocol"
)

// Credentials hold a HEOS account sign-in.
type Credentials struct {
	Username string
	Password string
}

// Options configure a Heos session.
type Options struct {
	// Events registers for change events on every connect.
	Events bool
	// AllProgressEvents delivers every now-playing progress event; when
	// false they are dropped.
	AllProgressEvents bool
	// Credentials are used to sign in on every connect when the device
	// reports no signed-in account.
	Credentials *Credentials
	// Connection holds the options of the underlying connection.
	Connection []heosprotocol.Option
}

// Option configures a Heos session.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Events:            true,
		AllProgressEvents: true,
	}
}

// WithEvents sets whether to register for change events.
func WithEvents(enabled bool) Option {
	return func(o *Options) {
		o.Events = enabled
	}
}

// WithAllProgressEvents sets whether progress events are delivered.
func WithAllProgressEvents(enabled bool) Option {
	return func(o *Options) {
		o.AllProgressEvents = enabled
	}
}

// WithCredentials signs in with username and password on connect.
func WithCredentials(username, password string) Option {
	return func(o *Options) {
		o.Credentials = &Credentials{Username: username, Password: password}
	}
}

// WithConnectionOptions passes options to the underlying connection.
func WithConnectionOptions(opts ...heosprotocol.Option) Option {
	return func(o *Options) {
		o.Connection = append(o.Connection, opts...)
	}
}
