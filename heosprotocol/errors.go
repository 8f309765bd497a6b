package heosprotocol

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for the HEOS protocol.
var (
	// ErrNotConnected indicates a command was issued without an open connection.
	ErrNotConnected = errors.New("not connected to device")

	// ErrAlreadyConnected indicates connect was called while already connected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrTimeout indicates a command timed out waiting for its response.
	ErrTimeout = errors.New("command timed out")

	// ErrConnectionLost indicates the connection was reset while a command
	// was awaiting its response.
	ErrConnectionLost = errors.New("connection lost")

	// ErrResponseMismatch indicates a response named a different command than
	// the one in flight. Commands and responses are out of step.
	ErrResponseMismatch = errors.New("response does not match command")

	// ErrNilMessage indicates an attempt to resolve a pending command with no message.
	ErrNilMessage = errors.New("message must not be nil")

	// ErrAuthentication matches command failures caused by a missing or
	// invalid HEOS account sign-in.
	ErrAuthentication = errors.New("authentication required")

	// ErrLineTooLong indicates an inbound line exceeded MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
)

// Device error codes.
const (
	ErrorUnrecognizedCommand         = 1
	ErrorInvalidID                   = 2
	ErrorWrongArguments              = 3
	ErrorDataNotAvailable            = 4
	ErrorResourceNotAvailable        = 5
	ErrorInvalidCredentials          = 6
	ErrorCommandNotExecuted          = 7
	ErrorUserNotLoggedIn             = 8
	ErrorParameterOutOfRange         = 9
	ErrorUserNotFound                = 10
	ErrorInternal                    = 11
	ErrorSystemError                 = 12
	ErrorProcessingPreviousCommand   = 13
	ErrorMediaCannotBePlayed         = 14
	ErrorOptionNotSupported          = 15
	ErrorTooManyCommandsInQueue      = 16
	ErrorSkipLimitReached            = 17
	SystemErrorRemoteServiceError    = -9
	SystemErrorServiceNotRegistered  = -1061
	SystemErrorUserNotLoggedIn       = -1063
	SystemErrorUserNotFound          = -1056
	SystemErrorContentAuthentication = -1201
	SystemErrorContentAuthorization  = -1232
	SystemErrorAccountParameters     = -1239
)

// ParseError represents an error that occurred while parsing a device
// message or a user-entered command.
type ParseError struct {
	Kind    ParseErrorKind
	Value   string // The invalid value that caused the error
	Message string // Additional context
}

// ParseErrorKind categorizes parsing errors.
type ParseErrorKind int

const (
	// ErrKindInvalidJSON indicates a device line was not a valid JSON envelope.
	ErrKindInvalidJSON ParseErrorKind = iota
	// ErrKindMissingSection indicates the heos section or its command was absent.
	ErrKindMissingSection
	// ErrKindInvalidCommand indicates an unknown or malformed command.
	ErrKindInvalidCommand
	// ErrKindInvalidParameter indicates a malformed key=value parameter.
	ErrKindInvalidParameter
	// ErrKindInvalidValue indicates a parameter value out of range or of the wrong type.
	ErrKindInvalidValue
	// ErrKindMissingArgument indicates a required argument was not provided.
	ErrKindMissingArgument
	// ErrKindMissingParameter indicates a message lacked a requested parameter.
	ErrKindMissingParameter
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrKindInvalidJSON:
		return fmt.Sprintf("invalid message: %s", e.Message)
	case ErrKindMissingSection:
		return fmt.Sprintf("invalid message: missing '%s'", e.Value)
	case ErrKindInvalidCommand:
		return fmt.Sprintf("invalid command '%s'", e.Value)
	case ErrKindInvalidParameter:
		return fmt.Sprintf("invalid parameter '%s'", e.Value)
	case ErrKindInvalidValue:
		if e.Message != "" {
			return fmt.Sprintf("invalid value '%s': %s", e.Value, e.Message)
		}
		return fmt.Sprintf("invalid value '%s'", e.Value)
	case ErrKindMissingArgument:
		return e.Message
	case ErrKindMissingParameter:
		return fmt.Sprintf("key '%s' not found in message parameters", e.Value)
	default:
		return fmt.Sprintf("parse error: %s", e.Value)
	}
}

func newInvalidJSONError(err error) error {
	return &ParseError{Kind: ErrKindInvalidJSON, Message: err.Error()}
}

func newMissingSectionError(section string) error {
	return &ParseError{Kind: ErrKindMissingSection, Value: section}
}

func newInvalidCommandError(cmd string) error {
	return &ParseError{Kind: ErrKindInvalidCommand, Value: cmd}
}

func newInvalidParameterError(param string) error {
	return &ParseError{Kind: ErrKindInvalidParameter, Value: param}
}

func newInvalidValueError(value, msg string) error {
	return &ParseError{Kind: ErrKindInvalidValue, Value: value, Message: msg}
}

func newMissingArgumentError(msg string) error {
	return &ParseError{Kind: ErrKindMissingArgument, Message: msg}
}

func newMissingParameterError(key string) error {
	return &ParseError{Kind: ErrKindMissingParameter, Value: key}
}

// ConnectionError represents a failure to open, or misuse of, a connection.
type ConnectionError struct {
	Host    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection to %s failed: %s: %v", e.Host, e.Message, e.Cause)
	}
	return fmt.Sprintf("connection to %s failed: %s", e.Host, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(host, message string, cause error) error {
	return &ConnectionError{Host: host, Message: message, Cause: cause}
}

// CommandError represents a command that could not be sent or whose
// response could not be obtained.
type CommandError struct {
	Command string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command '%s' failed: %s", e.Command, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// NewCommandError creates a new command error. The message defaults to the
// cause's text.
func NewCommandError(command, message string, cause error) error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &CommandError{Command: command, Message: message, Cause: cause}
}

// CommandFailedError represents a response whose result was not success.
type CommandFailedError struct {
	Command           string
	Text              string
	ErrorID           int
	SystemErrorNumber *int
}

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command '%s' failed: %s (%d)", e.Command, e.Text, e.ErrorID)
}

// Is reports whether the failure is an authentication failure when target
// is ErrAuthentication.
func (e *CommandFailedError) Is(target error) bool {
	return target == ErrAuthentication && e.IsAuthentication()
}

// IsAuthentication returns true when the device reported that no account
// is signed in or the account could not be found.
func (e *CommandFailedError) IsAuthentication() bool {
	if e.ErrorID == ErrorSystemError {
		if e.SystemErrorNumber == nil {
			return false
		}
		switch *e.SystemErrorNumber {
		case SystemErrorUserNotLoggedIn, SystemErrorUserNotFound:
			return true
		}
		return false
	}
	switch e.ErrorID {
	case ErrorInvalidCredentials, ErrorUserNotLoggedIn, ErrorUserNotFound:
		return true
	}
	return false
}

// NewCommandFailedError builds the failure described by a response's
// eid, text and syserrno parameters.
func NewCommandFailedError(msg *Message) error {
	text, _ := msg.Param(ParamText)
	failed := &CommandFailedError{Command: msg.Command(), Text: text}

	if raw, ok := msg.Param(ParamErrorID); ok {
		if id, err := parseIntParam(raw); err == nil {
			failed.ErrorID = id
		}
	}
	if failed.ErrorID == ErrorSystemError {
		if raw, ok := msg.Param(ParamSystemErrorNumber); ok {
			if num, err := parseIntParam(raw); err == nil {
				failed.SystemErrorNumber = &num
				failed.Text += " " + strconv.Itoa(num)
			}
		}
	}
	return failed
}
