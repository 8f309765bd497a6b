// Package heostest provides a mock HEOS device for tests. The device listens
// on a real TCP socket, answers commands from YAML fixtures or per-test
// handlers, and can push events or drop connections on demand.
package heostest

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is a command received by the device.
type Request struct {
	Command string
	Params  map[string]string
	Raw     string
}

// Responder returns the lines written back for a request, without line
// separators. Returning no lines leaves the request unanswered.
type Responder func(req Request) []string

// Device is a mock HEOS device.
type Device struct {
	listener net.Listener
	host     string
	port     int

	mu       sync.Mutex
	handlers map[string]Responder
	conns    []net.Conn
	requests []Request
	changed  chan struct{}
	stopped  bool

	wg sync.WaitGroup
}

// Start starts a device on host with a random free port. The device is
// stopped when the test finishes.
func Start(t testing.TB, host string) *Device {
	t.Helper()
	return StartOn(t, host, 0)
}

// StartOn starts a device on host and port. Starting a second device on the
// same port of another loopback address simulates another device in the
// same system.
func StartOn(t testing.TB, host string, port int) *Device {
	t.Helper()

	listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("failed to start mock device on %s: %v", host, err)
	}

	d := &Device{
		listener: listener,
		host:     host,
		port:     listener.Addr().(*net.TCPAddr).Port,
		handlers: make(map[string]Responder),
		changed:  make(chan struct{}),
	}
	for command, responder := range defaultHandlers() {
		d.handlers[command] = responder
	}

	d.wg.Add(1)
	go d.acceptLoop()

	t.Cleanup(d.Stop)
	return d
}

// Host returns the address the device listens on.
func (d *Device) Host() string {
	return d.host
}

// Port returns the port the device listens on.
func (d *Device) Port() int {
	return d.port
}

// Handle sets the responder for command, replacing any fixture.
func (d *Device) Handle(command string, responder Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[command] = responder
}

// HandleFixture answers command with the named fixture.
func (d *Device) HandleFixture(command, fixture string) {
	d.Handle(command, Reply(MustFixture(fixture).Line()))
}

// WriteEvent sends an event to every connected client.
func (d *Device) WriteEvent(command, message string) {
	d.WriteLine(EventLine(command, message))
}

// WriteLine sends a raw line to every connected client.
func (d *Device) WriteLine(line string) {
	d.mu.Lock()
	conns := append([]net.Conn(nil), d.conns...)
	d.mu.Unlock()

	for _, conn := range conns {
		_, _ = fmt.Fprint(conn, line+"\r\n")
	}
}

// Connections returns the number of open client connections.
func (d *Device) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// WaitForConnections waits until n clients are connected.
func (d *Device) WaitForConnections(n int, timeout time.Duration) bool {
	return d.waitFor(timeout, func() bool { return len(d.conns) == n })
}

// DropConnections closes every client connection, keeping the listener open.
func (d *Device) DropConnections() {
	d.mu.Lock()
	conns := d.conns
	d.conns = nil
	d.notifyLocked()
	d.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Stop closes the listener and every connection and waits for the device's
// goroutines to exit. Stop may be called more than once.
func (d *Device) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	_ = d.listener.Close()
	d.DropConnections()
	d.wg.Wait()
}

// Requests returns every request received so far.
func (d *Device) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Request(nil), d.requests...)
}

// RequestCount returns how many times command was received.
func (d *Device) RequestCount(command string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.countLocked(command)
}

// WaitForRequest waits until command has been received n times.
func (d *Device) WaitForRequest(command string, n int, timeout time.Duration) bool {
	return d.waitFor(timeout, func() bool { return d.countLocked(command) >= n })
}

func (d *Device) countLocked(command string) int {
	count := 0
	for _, req := range d.requests {
		if req.Command == command {
			count++
		}
	}
	return count
}

// waitFor waits until cond, evaluated with mu held, is true.
func (d *Device) waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		d.mu.Lock()
		ok := cond()
		changed := d.changed
		d.mu.Unlock()
		if ok {
			return true
		}

		select {
		case <-changed:
		case <-deadline.C:
			return false
		}
	}
}

func (d *Device) notifyLocked() {
	close(d.changed)
	d.changed = make(chan struct{})
}

func (d *Device) acceptLoop() {
	defer d.wg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}

		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			_ = conn.Close()
			return
		}
		d.conns = append(d.conns, conn)
		d.notifyLocked()
		d.mu.Unlock()

		d.wg.Add(1)
		go d.handleConnection(conn)
	}
}

func (d *Device) handleConnection(conn net.Conn) {
	defer d.wg.Done()
	defer d.removeConn(conn)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		req := parseRequest(line)

		d.mu.Lock()
		d.requests = append(d.requests, req)
		d.notifyLocked()
		responder, ok := d.handlers[req.Command]
		d.mu.Unlock()

		if !ok {
			responder = Echo
		}
		for _, out := range responder(req) {
			if _, err := fmt.Fprint(conn, out+"\r\n"); err != nil {
				return
			}
		}
	}
}

func (d *Device) removeConn(conn net.Conn) {
	_ = conn.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.conns {
		if c == conn {
			d.conns = append(d.conns[:i], d.conns[i+1:]...)
			d.notifyLocked()
			return
		}
	}
}

// parseRequest parses "heos://command?k=v&...". The url parameter is last
// and unescaped.
func parseRequest(line string) Request {
	rest := strings.TrimPrefix(line, "heos://")
	command, query, _ := strings.Cut(rest, "?")
	req := Request{Command: command, Params: make(map[string]string), Raw: line}
	if query == "" {
		return req
	}
	if i := strings.Index(query, "url="); i == 0 || (i > 0 && query[i-1] == '&') {
		req.Params["url"] = query[i+len("url="):]
		query = strings.TrimSuffix(query[:i], "&")
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if v, err := url.PathUnescape(value); err == nil {
			value = v
		}
		req.Params[key] = value
	}
	return req
}
