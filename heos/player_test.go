package heos

import (
	"testing"
	"time"

	"github.com/heoskit/heos/heosprotocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(command, message string) *heosprotocol.Message {
	msg, err := heosprotocol.ParseMessage(`{"heos":{"command":"` + command + `","message":"` + message + `"}}`)
	if err != nil {
		panic(err)
	}
	return msg
}

func loadedPlayers(t *testing.T) playerSet {
	t.Helper()
	ps := playerSet(nil).load(fixturePlayers(t))
	require.Len(t, ps, 2)
	ps[1].State = PlayStatePlay
	ps[1].Volume = 20
	return ps
}

func TestPlayerSetLoad(t *testing.T) {
	t.Run("keeps state of listed players", func(t *testing.T) {
		ps := loadedPlayers(t)
		reloaded := ps.load(fixturePlayers(t))

		assert.Same(t, ps[1], reloaded[1])
		assert.Equal(t, PlayStatePlay, reloaded[1].State)
		assert.Equal(t, 20, reloaded[1].Volume)
	})

	t.Run("matches renumbered player after upgrade", func(t *testing.T) {
		ps := loadedPlayers(t)
		data := fixturePlayers(t)
		data[0].PID = 11
		data[0].Version = "2.0.0"

		reloaded := ps.load(data)
		require.Contains(t, reloaded, 11)
		assert.Same(t, ps[1], reloaded[11])
		assert.Equal(t, 11, reloaded[11].PlayerID)
		assert.Equal(t, "2.0.0", reloaded[11].Version)
		assert.Equal(t, 20, reloaded[11].Volume)
		assert.NotContains(t, reloaded, 1)
	})

	t.Run("marks unlisted players unavailable", func(t *testing.T) {
		ps := loadedPlayers(t)
		reloaded := ps.load(fixturePlayers(t)[:1])
		require.Len(t, reloaded, 2)
		assert.True(t, reloaded[1].Available)
		assert.False(t, reloaded[2].Available)

		back := reloaded.load(fixturePlayers(t))
		assert.True(t, back[2].Available)
	})
}

func TestPlayerApplyEvent(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		msg   *heosprotocol.Message
		check func(t *testing.T, p *Player)
	}{
		{"state", eventMessage(EventPlayerStateChanged, "pid=1&state=stop"), func(t *testing.T, p *Player) {
			assert.Equal(t, PlayStateStop, p.State)
		}},
		{"unknown state", eventMessage(EventPlayerStateChanged, "pid=1&state=rewind"), func(t *testing.T, p *Player) {
			assert.Equal(t, PlayStateUnknown, p.State)
		}},
		{"volume", eventMessage(EventPlayerVolumeChanged, "pid=1&level=15&mute=off"), func(t *testing.T, p *Player) {
			assert.Equal(t, 15, p.Volume)
			assert.False(t, p.Muted)
		}},
		{"repeat", eventMessage(EventRepeatModeChanged, "pid=1&repeat=on_all"), func(t *testing.T, p *Player) {
			assert.Equal(t, RepeatAll, p.Repeat)
		}},
		{"unknown repeat", eventMessage(EventRepeatModeChanged, "pid=1&repeat=sometimes"), func(t *testing.T, p *Player) {
			assert.Equal(t, RepeatOff, p.Repeat)
		}},
		{"shuffle", eventMessage(EventShuffleModeChanged, "pid=1&shuffle=on"), func(t *testing.T, p *Player) {
			assert.True(t, p.Shuffle)
		}},
		{"playback error", eventMessage(EventPlayerPlaybackError, "pid=1&error=Unable to play"), func(t *testing.T, p *Player) {
			assert.Equal(t, "Unable to play", p.PlaybackError)
		}},
		{"progress", eventMessage(EventPlayerNowPlayingProgress, "pid=1&cur_pos=1500&duration=60000"), func(t *testing.T, p *Player) {
			assert.Equal(t, 1500*time.Millisecond, p.NowPlaying.Position)
			assert.Equal(t, time.Minute, p.NowPlaying.Duration)
			assert.Equal(t, now, p.NowPlaying.PositionUpdated)
		}},
		{"queue changed", eventMessage(EventPlayerQueueChanged, "pid=1"), func(t *testing.T, p *Player) {
			assert.Equal(t, PlayStateUnknown, p.State)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlayer(fixturePlayers(t)[0])
			assert.True(t, p.applyEvent(tt.msg, false, now))
			tt.check(t, p)
		})
	}
}

func TestPlayerProgressSuppression(t *testing.T) {
	now := time.Now()
	progress := eventMessage(EventPlayerNowPlayingProgress, "pid=1&cur_pos=1000&duration=2000")

	p := newPlayer(fixturePlayers(t)[0])
	assert.True(t, p.applyEvent(progress, false, now))
	assert.False(t, p.applyEvent(progress, false, now))
	assert.True(t, p.applyEvent(progress, true, now))

	p.applyEvent(eventMessage(EventPlayerStateChanged, "pid=1&state=pause"), false, now)
	assert.True(t, p.NowPlaying.HasPosition())

	p.applyEvent(eventMessage(EventPlayerStateChanged, "pid=1&state=play"), false, now)
	assert.False(t, p.NowPlaying.HasPosition())
	assert.True(t, p.applyEvent(progress, false, now))
}

func TestNowPlayingPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload nowPlayingPayload
		queue   int
		source  int
	}{
		{"numbers", nowPlayingPayload{QueueID: "3", SourceID: "1024"}, 3, 1024},
		{"missing", nowPlayingPayload{}, 0, 0},
		{"not a number", nowPlayingPayload{QueueID: "x"}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := tt.payload.nowPlaying()
			assert.Equal(t, tt.queue, np.QueueID)
			assert.Equal(t, tt.source, np.SourceID)
			assert.False(t, np.HasPosition())
		})
	}
}
