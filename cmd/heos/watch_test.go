package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/heoskit/heos/heostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	isolate(t)
	d := heostest.Start(t, "127.0.0.1")

	var stdout safeBuffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&safeBuffer{})
	cmd.SetArgs(deviceArgs(d, "watch", "--player", "1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "Watching 127.0.0.1") }, waitFor, tick)

	d.WriteEvent("player_state_changed", "pid=2&state=stop")
	d.WriteEvent("player_state_changed", "pid=1&state=play")
	d.WriteEvent("groups_changed", "")
	require.Eventually(t, func() bool {
		out := stdout.String()
		return strings.Contains(out, "player 1 pid=1&state=play") && strings.Contains(out, "event/groups_changed")
	}, waitFor, tick)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("watch did not stop")
	}

	out := stdout.String()
	assert.Contains(t, out, "*** connected")
	assert.NotContains(t, out, "pid=2")
	assert.Equal(t, 1, d.RequestCount("system/register_for_change_events"))
}

func TestWatchRequiresHost(t *testing.T) {
	isolate(t)
	res := execute(t, context.Background(), "", "watch")
	assert.Error(t, res.err)
}
