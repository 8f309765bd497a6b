package heosprotocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"CLIPort", CLIPort, 1255},
		{"Separator", Separator, "\r\n"},
		{"BaseURI", BaseURI, "heos://"},
		{"EventPrefix", EventPrefix, "event/"},
		{"UnderProcessKey", UnderProcessKey, "command under process"},
		{"Mask", Mask, "********"},
		{"DefaultReconnectMaxAttempts", DefaultReconnectMaxAttempts, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestCommandURI(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{
			name:     "no parameters",
			cmd:      NewCommand("player/get_players", nil),
			expected: "heos://player/get_players",
		},
		{
			name:     "empty parameter map",
			cmd:      NewCommand("system/heart_beat", map[string]any{}),
			expected: "heos://system/heart_beat",
		},
		{
			name:     "parameters sorted by key",
			cmd:      NewCommand("player/set_volume", map[string]any{"pid": 1, "level": 30}),
			expected: "heos://player/set_volume?level=30&pid=1",
		},
		{
			name:     "reserved characters escaped",
			cmd:      NewCommand("browse/search", map[string]any{"search": "rock & roll = 100%"}),
			expected: "heos://browse/search?search=rock %26 roll %3D 100%25",
		},
		{
			name: "url last and unescaped",
			cmd: NewCommand("browse/play_stream", map[string]any{
				"pid": 1,
				"url": "http://example.com/stream?a=1&b=2",
				"aa":  "x",
			}),
			expected: "heos://browse/play_stream?aa=x&pid=1&url=http://example.com/stream?a=1&b=2",
		},
		{
			name:     "booleans as on and off",
			cmd:      NewRegisterForChangeEventsCommand(false),
			expected: "heos://system/register_for_change_events?enable=off",
		},
		{
			name:     "password sent in clear",
			cmd:      NewSignInCommand("example@example.com", "pa&ss"),
			expected: "heos://system/sign_in?pw=pa%26ss&un=example@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.URI())
			assert.Equal(t, tt.expected+"\r\n", tt.cmd.FormatLine())
		})
	}
}

func TestCommandMaskedURI(t *testing.T) {
	cmd := NewSignInCommand("example@example.com", "secret")

	assert.Equal(t, "heos://system/sign_in?pw=********&un=example@example.com", cmd.MaskedURI())
	assert.Equal(t, cmd.MaskedURI(), cmd.String())
	assert.NotContains(t, cmd.String(), "secret")
}

func TestCommandIsImmutable(t *testing.T) {
	params := map[string]any{"pid": 1}
	cmd := NewCommand(CommandGetVolume, params)
	params["pid"] = 2

	got := cmd.Params()
	got["pid"] = 3

	v, ok := cmd.Param("pid")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"HeartBeat", NewHeartBeatCommand(), "heos://system/heart_beat"},
		{"RegisterForChangeEvents", NewRegisterForChangeEventsCommand(true), "heos://system/register_for_change_events?enable=on"},
		{"CheckAccount", NewCheckAccountCommand(), "heos://system/check_account"},
		{"SignOut", NewSignOutCommand(), "heos://system/sign_out"},
		{"Reboot", NewRebootCommand(), "heos://system/reboot"},
		{"GetPlayers", NewGetPlayersCommand(), "heos://player/get_players"},
		{"GetPlayerInfo", NewGetPlayerInfoCommand(1), "heos://player/get_player_info?pid=1"},
		{"GetPlayState", NewGetPlayStateCommand(1), "heos://player/get_play_state?pid=1"},
		{"GetNowPlayingMedia", NewGetNowPlayingMediaCommand(1), "heos://player/get_now_playing_media?pid=1"},
		{"GetVolume", NewGetVolumeCommand(1), "heos://player/get_volume?pid=1"},
		{"GetMute", NewGetMuteCommand(1), "heos://player/get_mute?pid=1"},
		{"SetMute", NewSetMuteCommand(1, true), "heos://player/set_mute?pid=1&state=on"},
		{"ToggleMute", NewToggleMuteCommand(1), "heos://player/toggle_mute?pid=1"},
		{"GetPlayMode", NewGetPlayModeCommand(1), "heos://player/get_play_mode?pid=1"},
		{"PlayNext", NewPlayNextCommand(1), "heos://player/play_next?pid=1"},
		{"PlayPrevious", NewPlayPreviousCommand(1), "heos://player/play_previous?pid=1"},
		{"ClearQueue", NewClearQueueCommand(1), "heos://player/clear_queue?pid=1"},
		{"GetGroups", NewGetGroupsCommand(), "heos://group/get_groups"},
		{"GetGroupVolume", NewGetGroupVolumeCommand(2), "heos://group/get_volume?gid=2"},
		{"GetGroupMute", NewGetGroupMuteCommand(2), "heos://group/get_mute?gid=2"},
		{"SetGroupMute", NewSetGroupMuteCommand(2, false), "heos://group/set_mute?gid=2&state=off"},
		{"ToggleGroupMute", NewToggleGroupMuteCommand(2), "heos://group/toggle_mute?gid=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.URI())
		})
	}
}

func TestValidatedCommandBuilders(t *testing.T) {
	tests := []struct {
		name     string
		build    func() (Command, error)
		expected string
	}{
		{"SetPlayState", func() (Command, error) { return NewSetPlayStateCommand(1, PlayStatePause) }, "heos://player/set_play_state?pid=1&state=pause"},
		{"SetVolume", func() (Command, error) { return NewSetVolumeCommand(1, 100) }, "heos://player/set_volume?level=100&pid=1"},
		{"VolumeUp", func() (Command, error) { return NewVolumeUpCommand(1, 5) }, "heos://player/volume_up?pid=1&step=5"},
		{"VolumeDown", func() (Command, error) { return NewVolumeDownCommand(1, 10) }, "heos://player/volume_down?pid=1&step=10"},
		{"SetPlayMode", func() (Command, error) { return NewSetPlayModeCommand(1, RepeatOnAll, true) }, "heos://player/set_play_mode?pid=1&repeat=on_all&shuffle=on"},
		{"PlayURL", func() (Command, error) { return NewPlayURLCommand(1, "http://example.com/a.mp3") }, "heos://browse/play_stream?pid=1&url=http://example.com/a.mp3"},
		{"SetGroup", func() (Command, error) { return NewSetGroupCommand([]int{1, 2, 3}) }, "heos://group/set_group?pid=1,2,3"},
		{"SetGroupVolume", func() (Command, error) { return NewSetGroupVolumeCommand(2, 0) }, "heos://group/set_volume?gid=2&level=0"},
		{"GroupVolumeUp", func() (Command, error) { return NewGroupVolumeUpCommand(2, 1) }, "heos://group/volume_up?gid=2&step=1"},
		{"GroupVolumeDown", func() (Command, error) { return NewGroupVolumeDownCommand(2, 3) }, "heos://group/volume_down?gid=2&step=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd.URI())
		})
	}
}

func TestValidatedCommandBuildersReject(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Command, error)
		kind  ParseErrorKind
	}{
		{"play state", func() (Command, error) { return NewSetPlayStateCommand(1, "rewind") }, ErrKindInvalidValue},
		{"volume below range", func() (Command, error) { return NewSetVolumeCommand(1, -1) }, ErrKindInvalidValue},
		{"volume above range", func() (Command, error) { return NewSetVolumeCommand(1, 101) }, ErrKindInvalidValue},
		{"step zero", func() (Command, error) { return NewVolumeUpCommand(1, 0) }, ErrKindInvalidValue},
		{"step above range", func() (Command, error) { return NewGroupVolumeDownCommand(1, 11) }, ErrKindInvalidValue},
		{"repeat mode", func() (Command, error) { return NewSetPlayModeCommand(1, "always", false) }, ErrKindInvalidValue},
		{"empty url", func() (Command, error) { return NewPlayURLCommand(1, "") }, ErrKindMissingArgument},
		{"no players", func() (Command, error) { return NewSetGroupCommand(nil) }, ErrKindMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %v", err)
			assert.Equal(t, tt.kind, parseErr.Kind)
		})
	}
}
