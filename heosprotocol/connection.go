package heosprotocol

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/heoskit/heos/dispatch"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ConnectionState represents the lifecycle state of a connection.
type ConnectionState int

const (
	// StateDisconnected means no socket is open.
	StateDisconnected ConnectionState = iota
	// StateConnecting means a socket is being opened.
	StateConnecting
	// StateConnected means the socket is open and commands may be sent.
	StateConnected
	// StateReconnecting means the connection was lost and is being restored.
	StateReconnecting
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Signals sent on the connection's dispatcher.
const (
	// SignalConnected carries a ConnectedEvent.
	SignalConnected = "connection/connected"
	// SignalDisconnected carries a DisconnectedEvent.
	SignalDisconnected = "connection/disconnected"
	// SignalReconnecting carries a ReconnectingEvent before each reconnect attempt.
	SignalReconnecting = "connection/reconnecting"
	// SignalEvent carries every unsolicited event as a *Message.
	SignalEvent = "connection/event"
)

// ConnectedEvent is sent when a connection is established.
type ConnectedEvent struct {
	Host string
}

// DisconnectedEvent is sent when a connection is closed. DueToError is true
// when the connection was lost rather than closed by Disconnect.
type DisconnectedEvent struct {
	Host       string
	DueToError bool
}

// ReconnectingEvent is sent before each reconnect attempt.
type ReconnectingEvent struct {
	Host    string
	Attempt int
}

// Commander sends a command and returns its response.
type Commander interface {
	Command(ctx context.Context, cmd Command) (*Message, error)
}

// Connection is a TCP connection to a HEOS device.
//
// A single socket carries command responses and unsolicited events. The
// protocol has no request ids, so at most one command is in flight at a
// time: the next non-event line read after a command is written is that
// command's response. Events are published on the dispatcher as they
// arrive.
//
// Thread Safety:
// All methods are safe for concurrent use. Concurrent commands are
// serialized.
type Connection struct {
	opts       Options
	baseLog    logrus.FieldLogger
	dispatcher *dispatch.Dispatcher
	pending    *Correlator

	cmdMu       sync.Mutex // held for the full send/await/clear cycle
	connectMu   sync.Mutex // serializes socket opening
	lifecycleMu sync.Mutex // serializes teardown

	mu          sync.Mutex
	state       ConnectionState
	host        string
	session     string
	log         logrus.FieldLogger
	conn        net.Conn
	writer      *bufio.Writer
	tasks       *errgroup.Group
	taskCtx     context.Context
	cancelTasks context.CancelFunc

	awaiting     atomic.Bool
	lastActivity atomic.Int64

	// Set by ReconnectingConnection.
	afterConnect    func(ctx context.Context, tasks *errgroup.Group)
	afterErrorReset func(err error)
}

// NewConnection creates a disconnected connection to host.
func NewConnection(host string, opts ...Option) *Connection {
	o := NewOptions(opts...)
	c := &Connection{
		opts:       o,
		baseLog:    o.Logger,
		dispatcher: o.Dispatcher,
		pending:    NewCorrelator(),
		host:       host,
		log:        o.Logger.WithField("host", host),
	}
	c.touch()
	return c
}

// Host returns the host the connection is, or was last, connected to.
func (c *Connection) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected returns true if commands may be sent.
func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

// Session returns the id of the current socket session, minted on every
// successful connect.
func (c *Connection) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LastActivity returns when a line was last read from the socket, or when
// the connection was last reset.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Dispatcher returns the dispatcher lifecycle signals and events are sent on.
func (c *Connection) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}

// Options returns the connection settings.
func (c *Connection) Options() Options {
	return c.opts
}

// Connect opens the socket to the configured host.
//
// Calling Connect on a connected connection is a programming error: the
// connection is reset and a *ConnectionError wrapping ErrAlreadyConnected
// is returned.
func (c *Connection) Connect(ctx context.Context) error {
	if c.State() == StateConnected {
		c.lifecycleMu.Lock()
		defer c.lifecycleMu.Unlock()

		host := c.Host()
		if c.reset() {
			c.setState(StateDisconnected)
			c.notify(SignalDisconnected, DisconnectedEvent{Host: host})
		}
		return NewConnectionError(host, "connect called while connected", ErrAlreadyConnected)
	}
	return c.connect(ctx, c.Host())
}

// connect dials host and starts the read loop. On failure the state is
// restored to Disconnected, or left Reconnecting during a reconnect.
func (c *Connection) connect(ctx context.Context, host string) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	failedState := StateDisconnected
	if c.state == StateReconnecting {
		failedState = StateReconnecting
	} else {
		c.state = StateConnecting
	}
	c.mu.Unlock()

	dialer := net.Dialer{Timeout: c.opts.Timeout}
	addr := net.JoinHostPort(host, strconv.Itoa(c.opts.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.setState(failedState)
		return NewConnectionError(host, "failed to connect", err)
	}
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		c.setState(failedState)
		return NewConnectionError(host, "failed to connect", err)
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	tasks := new(errgroup.Group)
	session := uuid.NewString()
	log := c.baseLog.WithFields(logrus.Fields{"host": host, "session": session})

	c.mu.Lock()
	c.conn = conn
	c.writer = bufio.NewWriter(conn)
	c.host = host
	c.session = session
	c.log = log
	c.tasks = tasks
	c.taskCtx = taskCtx
	c.cancelTasks = cancel
	c.state = StateConnected
	c.mu.Unlock()
	c.touch()

	reader := bufio.NewReader(conn)
	tasks.Go(func() error {
		c.readLoop(taskCtx, reader)
		return nil
	})

	log.Info("Connected to device")
	if c.afterConnect != nil {
		c.afterConnect(taskCtx, tasks)
	}
	c.notify(SignalConnected, ConnectedEvent{Host: host})
	return nil
}

// Disconnect closes the connection. It is a no-op when already disconnected.
func (c *Connection) Disconnect() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.disconnectLocked()
}

func (c *Connection) disconnectLocked() {
	if c.State() == StateDisconnected {
		return
	}
	c.reset()
	c.setState(StateDisconnected)

	c.logger().Info("Disconnected from device")
	c.notify(SignalDisconnected, DisconnectedEvent{Host: c.Host()})
}

// Command sends cmd and waits for its response. Only one command is in
// flight at a time; concurrent callers wait their turn.
//
// Errors:
//   - *CommandError wrapping ErrNotConnected, ErrTimeout, ErrConnectionLost,
//     ErrResponseMismatch or the write failure
//   - *CommandFailedError when the device reports failure
func (c *Connection) Command(ctx context.Context, cmd Command) (*Message, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil, NewCommandError(cmd.Name(), "not connected", ErrNotConnected)
	}
	conn, writer, taskCtx, log := c.conn, c.writer, c.taskCtx, c.log
	c.mu.Unlock()

	c.pending.Clear()
	c.awaiting.Store(true)
	defer func() {
		c.awaiting.Store(false)
		c.pending.Clear()
	}()

	log = log.WithField("command", cmd.MaskedURI())
	log.Debug("Sending command")

	if err := c.write(conn, writer, cmd); err != nil {
		go c.handleConnectionError(err)
		return nil, NewCommandError(cmd.Name(), err.Error(), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(taskCtx, cancel)
	defer stop()

	msg, err := c.pending.Wait(waitCtx)
	if err != nil {
		switch {
		case taskCtx.Err() != nil:
			return nil, NewCommandError(cmd.Name(), "connection lost while awaiting response", ErrConnectionLost)
		case ctx.Err() != nil:
			return nil, NewCommandError(cmd.Name(), ctx.Err().Error(), ctx.Err())
		default:
			log.Debug("Command timed out")
			return nil, NewCommandError(cmd.Name(), "timed out waiting for response", ErrTimeout)
		}
	}
	if msg == nil {
		return nil, NewCommandError(cmd.Name(), "connection lost while awaiting response", ErrConnectionLost)
	}

	if msg.Command() != cmd.Name() {
		log.WithField("response", msg.Command()).Error("Response does not match command")
		go c.handleConnectionError(ErrResponseMismatch)
		return nil, NewCommandError(cmd.Name(), "received response for "+msg.Command(), ErrResponseMismatch)
	}

	log.WithField("response", msg.String()).Debug("Executed command")
	if !msg.Result() {
		return nil, NewCommandFailedError(msg)
	}
	return msg, nil
}

func (c *Connection) write(conn net.Conn, w *bufio.Writer, cmd Command) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return err
	}
	if _, err := w.WriteString(cmd.FormatLine()); err != nil {
		return err
	}
	return w.Flush()
}

// readLoop reads lines until the socket fails or the connection is reset.
func (c *Connection) readLoop(ctx context.Context, r *bufio.Reader) {
	for {
		line, err := readLine(r)
		if err != nil {
			if ctx.Err() == nil {
				go c.handleConnectionError(err)
			}
			return
		}
		c.touch()
		if line == "" {
			continue
		}

		msg, err := ParseMessage(line)
		if err != nil {
			c.logger().WithError(err).WithField("line", line).Error("Failed to parse message")
			if ctx.Err() == nil {
				go c.handleConnectionError(err)
			}
			return
		}

		switch {
		case msg.IsUnderProcess():
			c.logger().WithField("command", msg.Command()).Debug("Command under process")
		case msg.IsEvent():
			c.dispatchEvent(ctx, msg)
		case c.awaiting.Load():
			_ = c.pending.Set(msg)
		default:
			c.logger().WithField("command", msg.Command()).Debug("Received response with no pending command")
		}
	}
}

// dispatchEvent publishes msg without blocking the read loop. The delivery
// is tracked in the task group so a reset waits for it to be cancelled.
func (c *Connection) dispatchEvent(ctx context.Context, msg *Message) {
	c.logger().WithField("event", msg.Command()).Debug("Event received")
	delivery := c.dispatcher.Send(ctx, SignalEvent, msg)

	c.mu.Lock()
	tasks := c.tasks
	c.mu.Unlock()
	if tasks == nil {
		return
	}
	tasks.Go(func() error {
		_ = delivery.Wait(ctx)
		return nil
	})
}

// handleConnectionError resets the connection after a transport failure and
// notifies subscribers.
func (c *Connection) handleConnectionError(err error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	host := c.Host()
	if !c.reset() {
		return
	}
	c.logger().WithError(err).Info("Connection to device lost")

	c.setState(StateDisconnected)
	if c.afterErrorReset != nil {
		c.afterErrorReset(err)
	}
	c.notify(SignalDisconnected, DisconnectedEvent{Host: host, DueToError: true})
}

// reset cancels background tasks, closes the socket and clears the pending
// command. It reports whether there was a socket to tear down. The caller
// must hold lifecycleMu.
func (c *Connection) reset() bool {
	c.mu.Lock()
	conn, tasks, cancel := c.conn, c.tasks, c.cancelTasks
	c.conn = nil
	c.writer = nil
	c.tasks = nil
	c.cancelTasks = nil
	c.mu.Unlock()

	if conn == nil {
		return false
	}

	cancel()
	_ = conn.Close()
	c.pending.Clear()
	c.touch()
	_ = tasks.Wait()
	return true
}

func (c *Connection) setState(state ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Connection) logger() logrus.FieldLogger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log
}

func (c *Connection) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// notify sends a lifecycle signal without waiting for subscribers.
func (c *Connection) notify(signal string, event any) {
	c.dispatcher.Send(context.Background(), signal, event)
}

// readLine reads one line up to the separator, without the separator.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf)+len(chunk) > MaxLineLength {
			return "", ErrLineTooLong
		}
		buf = append(buf, chunk...)
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
	}
	line := strings.TrimSuffix(string(buf), "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
