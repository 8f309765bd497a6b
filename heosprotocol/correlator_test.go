package heosprotocol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelatorSetThenWait(t *testing.T) {
	c := NewCorrelator()
	msg := NewMessage(CommandHeartBeat, true, nil, nil)

	require.NoError(t, c.Set(msg))
	assert.True(t, c.IsSet())

	got, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, msg, got)
}

func TestCorrelatorWaitThenSet(t *testing.T) {
	c := NewCorrelator()
	msg := NewMessage(CommandHeartBeat, true, nil, nil)

	result := make(chan *Message, 1)
	go func() {
		got, err := c.Wait(context.Background())
		if err == nil {
			result <- got
		}
		close(result)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Set(msg))

	select {
	case got := <-result:
		assert.Same(t, msg, got)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestCorrelatorWaitTimeout(t *testing.T) {
	c := NewCorrelator()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCorrelatorClear(t *testing.T) {
	c := NewCorrelator()
	require.NoError(t, c.Set(NewMessage(CommandHeartBeat, true, nil, nil)))

	c.Clear()
	assert.False(t, c.IsSet())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Clearing an empty slot is a no-op.
	c.Clear()
	assert.False(t, c.IsSet())
}

func TestCorrelatorSetReplaces(t *testing.T) {
	c := NewCorrelator()
	first := NewMessage(CommandHeartBeat, true, nil, nil)
	second := NewMessage(CommandCheckAccount, true, nil, nil)

	require.NoError(t, c.Set(first))
	require.NoError(t, c.Set(second))

	got, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestCorrelatorSetNil(t *testing.T) {
	c := NewCorrelator()

	assert.ErrorIs(t, c.Set(nil), ErrNilMessage)
	assert.False(t, c.IsSet())
}

func TestCorrelatorClearAfterSetKeepsWaiterMessage(t *testing.T) {
	for range 200 {
		c := NewCorrelator()
		msg := NewMessage(CommandHeartBeat, true, nil, nil)

		type result struct {
			msg *Message
			err error
		}
		done := make(chan result, 1)
		waiting := make(chan struct{})
		go func() {
			close(waiting)
			got, err := c.Wait(context.Background())
			done <- result{got, err}
		}()
		<-waiting
		time.Sleep(time.Millisecond)

		require.NoError(t, c.Set(msg))
		c.Clear()

		select {
		case r := <-done:
			require.NoError(t, r.err)
			require.Same(t, msg, r.msg)
		case <-time.After(time.Second):
			t.Fatal("waiter was not woken")
		}
		assert.False(t, c.IsSet())
	}
}

func TestCorrelatorSetAfterClearStartsNewSlot(t *testing.T) {
	c := NewCorrelator()
	first := NewMessage(CommandHeartBeat, true, nil, nil)
	second := NewMessage(CommandCheckAccount, true, nil, nil)

	require.NoError(t, c.Set(first))
	c.Clear()
	require.NoError(t, c.Set(second))

	got, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, got)
}
