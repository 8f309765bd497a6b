// Package dispatch is an in-process publish/subscribe registry used to
// deliver connection lifecycle notifications and device events to
// subscribers.
//
// Every subscription owns an ordered queue drained by its own goroutine, so
// a subscriber sees events in the order they were sent while a slow or
// failing subscriber never delays the others. Send hands an event to the
// matching subscriptions in registration order; their handlers then run
// concurrently, so delivery order is per subscriber and not across
// subscribers. Handler errors and panics are logged and reported through
// Delivery.Wait in registration order, never to the sender.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Handler receives an event sent on a signal.
type Handler func(ctx context.Context, event any) error

// Predicate selects which events a filtered subscription receives.
type Predicate func(event any) bool

// Dispatcher routes events sent on named signals to registered handlers.
// A Dispatcher is safe for concurrent use.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	prefix string
	log    logrus.FieldLogger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSignalPrefix prepends prefix to every signal name used with the dispatcher.
func WithSignalPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		d.prefix = prefix
	}
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// New creates an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		subs: make(map[string][]*subscription),
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect registers handler for signal and returns a function that removes
// it. Handlers run in registration order of delivery. Calling the returned
// function more than once is a no-op.
func (d *Dispatcher) Connect(signal string, handler Handler) (disconnect func()) {
	return d.ConnectFiltered(signal, nil, handler)
}

// ConnectFiltered registers handler for the events on signal that match
// predicate. A nil predicate matches every event.
func (d *Dispatcher) ConnectFiltered(signal string, predicate Predicate, handler Handler) (disconnect func()) {
	name := d.prefix + signal
	sub := &subscription{
		signal:    name,
		predicate: predicate,
		handler:   handler,
		log:       d.log,
	}

	d.mu.Lock()
	d.subs[name] = append(d.subs[name], sub)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.remove(sub)
		})
	}
}

// DisconnectAll removes every registered handler.
func (d *Dispatcher) DisconnectAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, subs := range d.subs {
		for _, sub := range subs {
			sub.removed.Store(true)
		}
	}
	d.subs = make(map[string][]*subscription)
}

// Subscribers returns the number of handlers registered for signal.
func (d *Dispatcher) Subscribers(signal string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[d.prefix+signal])
}

// Send queues event for every handler registered for signal and returns
// immediately. Handlers whose predicate rejects the event are skipped. The
// returned Delivery can be used to wait for the handlers to finish.
//
// Handlers are invoked with ctx; a handler still queued when ctx is done is
// skipped.
func (d *Dispatcher) Send(ctx context.Context, signal string, event any) *Delivery {
	d.mu.RLock()
	targets := make([]*subscription, 0, len(d.subs[d.prefix+signal]))
	for _, sub := range d.subs[d.prefix+signal] {
		if sub.predicate == nil || sub.predicate(event) {
			targets = append(targets, sub)
		}
	}
	d.mu.RUnlock()

	delivery := newDelivery(len(targets))
	for i, sub := range targets {
		sub.enqueue(job{ctx: ctx, event: event, done: func(err error) { delivery.finish(i, err) }})
	}
	return delivery
}

// WaitSend sends event and waits for every handler to finish. When
// returnErrors is true the handler errors are joined and returned; otherwise
// they are only logged. An error is always returned if ctx is done first.
func (d *Dispatcher) WaitSend(ctx context.Context, signal string, event any, returnErrors bool) error {
	err := d.Send(ctx, signal, event).Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if returnErrors {
		return err
	}
	return nil
}

func (d *Dispatcher) remove(target *subscription) {
	target.removed.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[target.signal]
	for i, sub := range subs {
		if sub == target {
			d.subs[target.signal] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(d.subs[target.signal]) == 0 {
		delete(d.subs, target.signal)
	}
}

// Delivery tracks the handlers invoked by one Send.
type Delivery struct {
	mu      sync.Mutex
	pending int
	errs    []error
	done    chan struct{}
}

func newDelivery(n int) *Delivery {
	d := &Delivery{pending: n, errs: make([]error, n), done: make(chan struct{})}
	if n == 0 {
		close(d.done)
	}
	return d
}

// Wait blocks until every handler has run or ctx is done. It returns the
// handler errors joined in the order the handlers were registered.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return errors.Join(d.errs...)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed once every handler has run.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

func (d *Delivery) finish(target int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.errs[target] = err
	d.pending--
	if d.pending == 0 {
		close(d.done)
	}
}

type job struct {
	ctx   context.Context
	event any
	done  func(error)
}

type subscription struct {
	signal    string
	predicate Predicate
	handler   Handler
	log       logrus.FieldLogger
	removed   atomic.Bool

	mu      sync.Mutex
	queue   []job
	running bool
}

func (s *subscription) enqueue(j job) {
	s.mu.Lock()
	s.queue = append(s.queue, j)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.drain()
}

func (s *subscription) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = job{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		j.done(s.invoke(j))
	}
}

func (s *subscription) invoke(j job) (err error) {
	if s.removed.Load() {
		return nil
	}
	if err := j.ctx.Err(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			s.log.WithField("signal", s.signal).Errorf("Handler for signal panicked: %v", r)
		}
	}()

	if err := s.handler(j.ctx, j.event); err != nil {
		s.log.WithField("signal", s.signal).WithError(err).Warn("Handler for signal failed")
		return err
	}
	return nil
}
