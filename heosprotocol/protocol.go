package heosprotocol

import "time"

// Protocol constants.
const (
	// CLIPort is the TCP port HEOS devices listen on for CLI connections.
	CLIPort = 1255

	// Separator terminates every request and response line.
	Separator = "\r\n"

	// BaseURI is the scheme prefix of every request.
	BaseURI = "heos://"

	// EventPrefix is the command-name prefix of unsolicited event messages.
	EventPrefix = "event/"

	// UnderProcessKey is the message parameter that marks a provisional
	// "still executing" response.
	UnderProcessKey = "command under process"

	// Mask replaces sensitive parameter values in logged commands.
	Mask = "********"

	// MaxLineLength is the largest inbound line accepted from a device.
	MaxLineLength = 4 * 1024 * 1024
)

// Defaults for connection options.
const (
	// DefaultTimeout bounds opening a connection and awaiting a command response.
	DefaultTimeout = 10 * time.Second

	// DefaultReconnectDelay is the pause before each reconnect attempt.
	DefaultReconnectDelay = 10 * time.Second

	// DefaultReconnectMaxAttempts of zero retries until reconnected.
	DefaultReconnectMaxAttempts = 0

	// DefaultHeartBeatInterval is the idle time after which a heart beat is sent.
	DefaultHeartBeatInterval = 10 * time.Second
)

// JSON envelope field names.
const (
	attrHeos    = "heos"
	attrCommand = "command"
	attrResult  = "result"
	attrMessage = "message"
	attrPayload = "payload"
	attrOptions = "options"

	valueSuccess = "success"
)
