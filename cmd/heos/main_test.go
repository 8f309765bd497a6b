package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/heoskit/heos/heosprotocol"
	"github.com/heoskit/heos/heostest"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

// safeBuffer is a bytes.Buffer that can be read while commands write to it.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the CLI with args, reading in as standard input.
func execute(t *testing.T, ctx context.Context, in string, args ...string) result {
	t.Helper()
	var stdout, stderr safeBuffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// isolate keeps the user's config and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if key, _, _ := strings.Cut(kv, "="); strings.HasPrefix(key, "HEOS_") {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

// deviceArgs appends flags that point the CLI at d.
func deviceArgs(d *heostest.Device, args ...string) []string {
	return append(args,
		"--host", d.Host(),
		"--port", strconv.Itoa(d.Port()),
		"--timeout", "2s",
		"--reconnect=false",
		"--heart-beat=false",
		"--log-level", "error",
	)
}

func TestFullTitle(t *testing.T) {
	assert.True(t, strings.HasPrefix(fullTitle(), "heos v"+version+" (go"))
}

func TestWelcomeBanner(t *testing.T) {
	banner := welcomeBanner("127.0.0.1")
	assert.Contains(t, banner, fullTitle())
	assert.Contains(t, banner, "Connected to 127.0.0.1")
	assert.Contains(t, banner, ".help")
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	res := execute(t, context.Background(), "", "version")
	require.NoError(t, res.err)
	assert.Equal(t, fullTitle()+"\n", res.stdout)
}

func TestSend(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")

	res := execute(t, context.Background(), "", deviceArgs(d, "send", "player/get_volume", "pid=1")...)
	require.NoError(t, res.err)
	assert.Equal(t, "player/get_volume level=36&pid=1\n", res.stdout)

	// Without events the session does not register for them.
	assert.Zero(t, d.RequestCount(heosprotocol.CommandRegisterForChangeEvents))
}

func TestSendShortForm(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")

	res := execute(t, context.Background(), "", deviceArgs(d, "send", "volume", "1", "30")...)
	require.NoError(t, res.err)
	assert.Equal(t, "player/set_volume level=30&pid=1\n", res.stdout)
}

func TestSendPrintsPayload(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")

	res := execute(t, context.Background(), "", deviceArgs(d, "send", "heos://player/get_players")...)
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "player/get_players\n["))
	assert.Contains(t, res.stdout, `"name": "Back Patio"`)
}

func TestSendParseError(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")

	res := execute(t, context.Background(), "", deviceArgs(d, "send", "volume", "one")...)
	var parseErr *heosprotocol.ParseError
	require.ErrorAs(t, res.err, &parseErr)
	assert.Zero(t, d.Connections())
	assert.Empty(t, d.Requests())
}

func TestSendCommandFailed(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")
	d.Handle(heosprotocol.CommandGetMute, heostest.Reply(
		heostest.FailureLine(heosprotocol.CommandGetMute, 2, "ID Not Valid"),
	))

	res := execute(t, context.Background(), "", deviceArgs(d, "send", "mute", "9")...)
	var failed *heosprotocol.CommandFailedError
	require.ErrorAs(t, res.err, &failed)
	assert.Equal(t, "ID Not Valid", failed.Text)
	assert.Empty(t, res.stdout)
}

func TestSendRequiresHost(t *testing.T) {
	isolate(t)
	res := execute(t, context.Background(), "", "send", "heartbeat")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no host configured")
}

func TestSendConnectFailure(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")
	args := deviceArgs(d, "send", "heartbeat")
	d.Stop()

	res := execute(t, context.Background(), "", args...)
	var connErr *heosprotocol.ConnectionError
	assert.ErrorAs(t, res.err, &connErr)
}

func TestPlayers(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")

	res := execute(t, context.Background(), "", deviceArgs(d, "players")...)
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "PID")
	assert.Contains(t, lines[1], "Back Patio")
	assert.Contains(t, lines[1], "*")
	assert.Contains(t, lines[2], "Front Porch")
	assert.Contains(t, lines[2], "127.0.0.2")
	assert.NotContains(t, lines[2], "*")
}

func TestPlayersSignedIn(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")
	d.HandleFixture(heosprotocol.CommandCheckAccount, "system.check_account.signed_in")

	res := execute(t, context.Background(), "", deviceArgs(d, "players")...)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Signed in as example@example.com")
}

func TestConfigFile(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")
	path := filepath.Join(t.TempDir(), "heos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"host: "+d.Host()+"\n"+
			"connection:\n"+
			"  port: "+strconv.Itoa(d.Port())+"\n"+
			"  reconnect: false\n"+
			"log:\n"+
			"  level: error\n",
	), 0o600))

	res := execute(t, context.Background(), "", "--config", path, "send", "heartbeat")
	require.NoError(t, res.err)
	assert.Equal(t, "system/heart_beat\n", res.stdout)
}

func TestEnvironmentHost(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")
	t.Setenv("HEOS_HOST", d.Host())
	t.Setenv("HEOS_CONNECTION_PORT", strconv.Itoa(d.Port()))
	t.Setenv("HEOS_LOG_LEVEL", "error")

	res := execute(t, context.Background(), "", "send", "heartbeat")
	require.NoError(t, res.err)
	assert.Equal(t, "system/heart_beat\n", res.stdout)
}

func TestInvalidConfig(t *testing.T) {
	isolate(t)
	res := execute(t, context.Background(), "", "--port", "0", "version")
	assert.Error(t, res.err)
}

func TestLogFile(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")
	path := filepath.Join(t.TempDir(), "logs", "heos.log")

	args := deviceArgs(d, "send", "signin", "example@example.com", "secret")
	args = append(args, "--log-level", "debug", "--log-file", path)
	res := execute(t, context.Background(), "", args...)
	require.NoError(t, res.err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Connected to device")
	assert.Contains(t, string(data), "system/sign_in")
	assert.NotContains(t, string(data), "secret")
}
