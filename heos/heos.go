// Package heos is a session on a HEOS system. It wraps a self-healing
// connection, prepares every new connection (change events, account
// sign-in, system discovery) and turns raw device events into typed player,
// group and controller events.
package heos

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/heoskit/heos/dispatch"
	"github.com/heoskit/heos/heosprotocol"
	"github.com/sirupsen/logrus"
)

// Heos is a session on a HEOS system.
type Heos struct {
	opts       Options
	conn       *heosprotocol.ReconnectingConnection
	dispatcher *dispatch.Dispatcher
	log        logrus.FieldLogger

	mu               sync.Mutex
	credentials      *Credentials
	signedInUsername string
	system           *System
	players          playerSet
	connectResult    chan error
}

// New creates a disconnected session for the device at host.
func New(host string, opts ...Option) *Heos {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	connOpts := heosprotocol.NewOptions(o.Connection...)
	dispatcher := connOpts.Dispatcher
	h := &Heos{
		opts:        o,
		dispatcher:  dispatcher,
		log:         connOpts.Logger,
		credentials: o.Credentials,
	}
	h.conn = heosprotocol.NewReconnectingConnection(host,
		append(slices.Clone(o.Connection), heosprotocol.WithDispatcher(dispatcher))...)

	dispatcher.Connect(heosprotocol.SignalConnected, h.onConnected)
	dispatcher.Connect(heosprotocol.SignalDisconnected, h.onDisconnected)
	dispatcher.Connect(heosprotocol.SignalEvent, h.onEvent)
	return h
}

// Connect connects to the device and prepares the session. It returns once
// the session is ready or preparing it failed.
func (h *Heos) Connect(ctx context.Context) error {
	result := make(chan error, 1)
	h.mu.Lock()
	h.connectResult = result
	h.mu.Unlock()

	if err := h.conn.Connect(ctx); err != nil {
		h.mu.Lock()
		h.connectResult = nil
		h.mu.Unlock()
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect closes the session.
func (h *Heos) Disconnect() {
	h.conn.Disconnect()
}

// Command sends cmd on the session's connection.
func (h *Heos) Command(ctx context.Context, cmd heosprotocol.Command) (*heosprotocol.Message, error) {
	return h.conn.Command(ctx, cmd)
}

// Dispatcher returns the dispatcher session and connection signals are sent on.
func (h *Heos) Dispatcher() *dispatch.Dispatcher {
	return h.dispatcher
}

// Connection returns the underlying connection.
func (h *Heos) Connection() *heosprotocol.ReconnectingConnection {
	return h.conn
}

// State returns the connection state.
func (h *Heos) State() heosprotocol.ConnectionState {
	return h.conn.State()
}

// CurrentHost returns the host the session is connected to.
func (h *Heos) CurrentHost() string {
	return h.conn.Host()
}

// Credentials returns the credentials used to sign in on connect.
func (h *Heos) Credentials() *Credentials {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.credentials
}

// SetCredentials replaces the credentials used to sign in on connect.
func (h *Heos) SetCredentials(creds *Credentials) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.credentials = creds
}

// SignedInUsername returns the signed-in account, or "" if none.
func (h *Heos) SignedInUsername() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signedInUsername
}

// IsSignedIn reports whether an account is signed in.
func (h *Heos) IsSignedIn() bool {
	return h.SignedInUsername() != ""
}

// System returns the system information loaded on the last connect or
// players change, or nil.
func (h *Heos) System() *System {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.system
}

// RegisterForChangeEvents enables or disables device events.
func (h *Heos) RegisterForChangeEvents(ctx context.Context, enable bool) error {
	_, err := h.Command(ctx, heosprotocol.NewRegisterForChangeEventsCommand(enable))
	return err
}

// HeartBeat sends a heart beat.
func (h *Heos) HeartBeat(ctx context.Context) error {
	_, err := h.Command(ctx, heosprotocol.NewHeartBeatCommand())
	return err
}

// Reboot reboots the connected device.
func (h *Heos) Reboot(ctx context.Context) error {
	_, err := h.Command(ctx, heosprotocol.NewRebootCommand())
	return err
}

// CheckAccount returns the signed-in account, or "" if none.
func (h *Heos) CheckAccount(ctx context.Context) (string, error) {
	msg, err := h.Command(ctx, heosprotocol.NewCheckAccountCommand())
	if err != nil {
		return "", err
	}
	username := signedInUsername(msg)

	h.mu.Lock()
	h.signedInUsername = username
	h.mu.Unlock()
	return username, nil
}

// SignIn signs in to the account. With updateCredentials the credentials
// are kept and used to sign in again on every connect.
func (h *Heos) SignIn(ctx context.Context, username, password string, updateCredentials bool) (string, error) {
	msg, err := h.Command(ctx, heosprotocol.NewSignInCommand(username, password))
	if err != nil {
		return "", err
	}
	signedIn, _ := msg.Param(heosprotocol.ParamUsername)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.signedInUsername = signedIn
	if updateCredentials {
		h.credentials = &Credentials{Username: username, Password: password}
	}
	return signedIn, nil
}

// SignOut signs out of the account. With updateCredentials the stored
// credentials are cleared.
func (h *Heos) SignOut(ctx context.Context, updateCredentials bool) error {
	if _, err := h.Command(ctx, heosprotocol.NewSignOutCommand()); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.signedInUsername = ""
	if updateCredentials {
		h.credentials = nil
	}
	return nil
}

// LoadSystem loads the players in the system, refreshes the known players
// and uses their addresses as failover hosts.
func (h *Heos) LoadSystem(ctx context.Context) (*System, error) {
	msg, err := h.Command(ctx, heosprotocol.NewGetPlayersCommand())
	if err != nil {
		return nil, err
	}
	var players []playerPayload
	if err := msg.DecodePayload(&players); err != nil {
		return nil, err
	}

	system := newSystem(h.SignedInUsername(), h.conn.Host(), players)
	h.conn.UpdateFailoverHosts(system.IPAddresses())

	h.mu.Lock()
	h.system = system
	h.players = h.players.load(players)
	h.mu.Unlock()
	return system, nil
}

// prepare readies a new connection.
func (h *Heos) prepare(ctx context.Context) error {
	if h.opts.Events {
		if err := h.RegisterForChangeEvents(ctx, true); err != nil {
			return err
		}
	}
	if err := h.validateCredentials(ctx); err != nil {
		return err
	}
	_, err := h.LoadSystem(ctx)
	return err
}

// validateCredentials signs in with the stored credentials when no account
// is signed in. Rejected credentials are cleared.
func (h *Heos) validateCredentials(ctx context.Context) error {
	username, err := h.CheckAccount(ctx)
	if err != nil {
		return err
	}
	creds := h.Credentials()
	if username != "" || creds == nil {
		return nil
	}

	_, err = h.SignIn(ctx, creds.Username, creds.Password, false)
	if errors.Is(err, heosprotocol.ErrAuthentication) {
		h.log.WithError(err).Warn("Stored credentials are invalid and were cleared")
		h.SetCredentials(nil)
		h.dispatcher.Send(ctx, SignalController, ControllerEvent{Command: EventUserCredentialsInvalid})
		return nil
	}
	return err
}

func (h *Heos) onConnected(ctx context.Context, _ any) error {
	err := h.prepare(ctx)

	h.mu.Lock()
	result := h.connectResult
	h.connectResult = nil
	h.mu.Unlock()

	if result != nil {
		result <- err
	}
	if err != nil {
		if result == nil {
			h.log.WithError(err).Warn("Failed to prepare session after reconnect")
		}
		return nil
	}

	h.dispatcher.Send(ctx, SignalHeos, EventConnected)
	return nil
}

func (h *Heos) onDisconnected(ctx context.Context, _ any) error {
	h.dispatcher.Send(ctx, SignalHeos, EventDisconnected)
	return nil
}

// onEvent turns a device event into a typed event.
func (h *Heos) onEvent(ctx context.Context, event any) error {
	msg, ok := event.(*heosprotocol.Message)
	if !ok {
		return nil
	}
	command := msg.Command()
	log := h.log.WithField("event", command)

	switch {
	case playerEvents[command]:
		pid, err := msg.ParamInt(heosprotocol.ParamPlayerID)
		if err != nil {
			return err
		}
		if !h.updatePlayer(ctx, pid, msg) {
			return nil
		}
		h.dispatcher.Send(ctx, SignalPlayer, PlayerEvent{PlayerID: pid, Command: command, Message: msg})

	case command == EventGroupVolumeChanged:
		gid, err := msg.ParamInt(heosprotocol.ParamGroupID)
		if err != nil {
			return err
		}
		h.dispatcher.Send(ctx, SignalGroup, GroupEvent{GroupID: gid, Command: command, Message: msg})

	case controllerEvents[command]:
		switch command {
		case EventPlayersChanged:
			if _, err := h.LoadSystem(ctx); err != nil {
				log.WithError(err).Warn("Failed to reload system after players changed")
			}
		case EventUserChanged:
			h.mu.Lock()
			h.signedInUsername = signedInUsername(msg)
			h.mu.Unlock()
		}
		h.dispatcher.Send(ctx, SignalController, ControllerEvent{Command: command, Message: msg})

	default:
		log.Debug("Unrecognized event")
	}
	return nil
}

// signedInUsername reads "signed_in&un=<user>" or "signed_out".
func signedInUsername(msg *heosprotocol.Message) string {
	if !msg.HasParam(heosprotocol.ParamSignedIn) {
		return ""
	}
	username, _ := msg.Param(heosprotocol.ParamUsername)
	return username
}
