package heosprotocol

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReconnectingConnection is a Connection that keeps itself alive.
//
// While connected it sends a heart beat whenever the socket has been idle
// for the heart beat interval. When the connection is lost it reconnects in
// the background, trying the last host first and then, with failover
// enabled, the other hosts in the system.
type ReconnectingConnection struct {
	*Connection

	mu              sync.Mutex
	failoverHosts   []string
	explicitHosts   bool
	cancelReconnect context.CancelFunc
	reconnectDone   chan struct{}
}

// NewReconnectingConnection creates a disconnected connection to host.
func NewReconnectingConnection(host string, opts ...Option) *ReconnectingConnection {
	r := &ReconnectingConnection{Connection: NewConnection(host, opts...)}
	if len(r.opts.FailoverHosts) > 0 {
		r.explicitHosts = true
		r.failoverHosts = normalizeHosts(r.opts.FailoverHosts, host)
	}
	r.afterConnect = r.startHeartBeat
	r.afterErrorReset = r.connectionLost
	return r
}

// Connect opens the socket. A reconnect in progress is abandoned first.
func (r *ReconnectingConnection) Connect(ctx context.Context) error {
	if r.stopReconnect() {
		r.setState(StateDisconnected)
	}
	return r.Connection.Connect(ctx)
}

// Disconnect stops any reconnect in progress and closes the connection.
func (r *ReconnectingConnection) Disconnect() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	r.stopReconnect()
	r.disconnectLocked()
}

// FailoverHosts returns the hosts tried after the current host during a
// reconnect.
func (r *ReconnectingConnection) FailoverHosts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.failoverHosts)
}

// UpdateFailoverHosts replaces the discovered failover hosts. The current
// host and duplicates are dropped. An explicitly configured list is kept
// and the update is ignored.
func (r *ReconnectingConnection) UpdateFailoverHosts(hosts []string) {
	current := r.Host()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.explicitHosts {
		return
	}
	r.failoverHosts = normalizeHosts(hosts, current)
	r.logger().WithField("failover_hosts", r.failoverHosts).Debug("Updated failover hosts")
}

// startHeartBeat runs the heart beat in the connection's task group so it
// stops when the connection is reset.
func (r *ReconnectingConnection) startHeartBeat(ctx context.Context, tasks *errgroup.Group) {
	if !r.opts.HeartBeat || r.opts.HeartBeatInterval <= 0 {
		return
	}
	tasks.Go(func() error {
		r.heartBeat(ctx)
		return nil
	})
}

// heartBeat checks for idleness every half interval and sends a heart beat
// once the socket has been idle for the full interval. It exits quietly on
// the first failed heart beat; a dead socket is picked up by the read loop.
func (r *ReconnectingConnection) heartBeat(ctx context.Context) {
	interval := r.opts.HeartBeatInterval
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Since(r.LastActivity()) < interval {
			continue
		}
		r.logger().Debug("Sending heart beat")
		if _, err := r.Command(ctx, NewHeartBeatCommand()); err != nil {
			r.logger().WithError(err).Debug("Heart beat failed")
			return
		}
	}
}

// connectionLost starts the reconnect loop. It runs with lifecycleMu held.
func (r *ReconnectingConnection) connectionLost(error) {
	if !r.opts.Reconnect {
		return
	}
	r.setState(StateReconnecting)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.cancelReconnect = cancel
	r.reconnectDone = done
	r.mu.Unlock()

	go r.reconnect(ctx, done)
}

// stopReconnect cancels the reconnect loop and waits for it to exit. It
// reports whether a loop was running.
func (r *ReconnectingConnection) stopReconnect() bool {
	r.mu.Lock()
	cancel, done := r.cancelReconnect, r.reconnectDone
	r.cancelReconnect = nil
	r.reconnectDone = nil
	r.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// reconnect retries until a connect succeeds, the attempts are exhausted or
// ctx is cancelled. Each attempt waits the reconnect delay first.
func (r *ReconnectingConnection) reconnect(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		if r.reconnectDone == done {
			r.cancelReconnect = nil
			r.reconnectDone = nil
		}
		r.mu.Unlock()
	}()

	hosts := r.reconnectHosts()
	log := r.logger()

	select {
	case <-ctx.Done():
		return
	case <-time.After(r.opts.ReconnectDelay):
	}

	attempt := 0
	err := retry.Do(
		func() error {
			host := hosts[attempt%len(hosts)]
			attempt++
			r.notify(SignalReconnecting, ReconnectingEvent{Host: host, Attempt: attempt})
			return r.connect(ctx, host)
		},
		retry.Attempts(uint(r.opts.ReconnectMaxAttempts)),
		retry.Delay(r.opts.ReconnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.WithFields(logrus.Fields{
				"attempt": n + 1,
				"host":    hosts[int(n)%len(hosts)],
			}).WithError(err).Debug("Reconnect attempt failed")
		}),
	)

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.setState(StateDisconnected)
		log.WithField("attempts", attempt).WithError(err).Warn("Giving up reconnecting to device")
		return
	}
	r.logger().Info("Reconnected to device")
}

// reconnectHosts returns the current host followed by the failover hosts
// when failover is enabled.
func (r *ReconnectingConnection) reconnectHosts() []string {
	current := r.Host()
	hosts := []string{current}
	if !r.opts.Failover {
		return hosts
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, host := range r.failoverHosts {
		if host != current {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

func normalizeHosts(hosts []string, current string) []string {
	out := make([]string, 0, len(hosts))
	for _, host := range hosts {
		if host == "" || host == current || slices.Contains(out, host) {
			continue
		}
		out = append(out, host)
	}
	return out
}
