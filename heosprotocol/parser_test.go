package heosprotocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandParsing(t *testing.T) {
	parser := NewCommandParser()

	tests := []struct {
		input    string
		expected string
	}{
		// Full URIs
		{"heos://system/heart_beat", "heos://system/heart_beat"},
		{"heos://player/set_volume?pid=1&level=30", "heos://player/set_volume?level=30&pid=1"},
		{"heos://browse/play_stream?pid=1&url=http://x/y?a=1&b=2", "heos://browse/play_stream?pid=1&url=http://x/y?a=1&b=2"},
		{"  heos://player/get_players  ", "heos://player/get_players"},

		// Named commands
		{"player/get_volume pid=1", "heos://player/get_volume?pid=1"},
		{"system/sign_in un=a@b.c pw=x", "heos://system/sign_in?pw=x&un=a@b.c"},
		{"browse/get_music_sources", "heos://browse/get_music_sources"},

		// System
		{"heartbeat", "heos://system/heart_beat"},
		{"hb", "heos://system/heart_beat"},
		{"events on", "heos://system/register_for_change_events?enable=on"},
		{"events off", "heos://system/register_for_change_events?enable=off"},
		{"account", "heos://system/check_account"},
		{"whoami", "heos://system/check_account"},
		{"signin a@b.c secret", "heos://system/sign_in?pw=secret&un=a@b.c"},
		{"signout", "heos://system/sign_out"},
		{"reboot", "heos://system/reboot"},

		// Players
		{"players", "heos://player/get_players"},
		{"PLAYERS", "heos://player/get_players"},
		{"info 1", "heos://player/get_player_info?pid=1"},
		{"state 1", "heos://player/get_play_state?pid=1"},
		{"state 1 PLAY", "heos://player/set_play_state?pid=1&state=play"},
		{"play 1", "heos://player/set_play_state?pid=1&state=play"},
		{"pause 1", "heos://player/set_play_state?pid=1&state=pause"},
		{"stop 1", "heos://player/set_play_state?pid=1&state=stop"},
		{"nowplaying 1", "heos://player/get_now_playing_media?pid=1"},
		{"np 1", "heos://player/get_now_playing_media?pid=1"},
		{"next 1", "heos://player/play_next?pid=1"},
		{"prev 1", "heos://player/play_previous?pid=1"},
		{"clear 1", "heos://player/clear_queue?pid=1"},
		{"volume 1", "heos://player/get_volume?pid=1"},
		{"vol 1 30", "heos://player/set_volume?level=30&pid=1"},
		{"volume 1 up", "heos://player/volume_up?pid=1&step=5"},
		{"volume 1 down 2", "heos://player/volume_down?pid=1&step=2"},
		{"mute 1", "heos://player/get_mute?pid=1"},
		{"mute 1 on", "heos://player/set_mute?pid=1&state=on"},
		{"mute 1 toggle", "heos://player/toggle_mute?pid=1"},
		{"mode 1", "heos://player/get_play_mode?pid=1"},
		{"mode 1 on_one off", "heos://player/set_play_mode?pid=1&repeat=on_one&shuffle=off"},
		{"url 1 http://example.com/a.mp3", "heos://browse/play_stream?pid=1&url=http://example.com/a.mp3"},

		// Groups
		{"groups", "heos://group/get_groups"},
		{"group 1,2", "heos://group/set_group?pid=1,2"},
		{"group 1 2 3", "heos://group/set_group?pid=1,2,3"},
		{"gvolume 5", "heos://group/get_volume?gid=5"},
		{"gvol 5 20", "heos://group/set_volume?gid=5&level=20"},
		{"gvolume 5 up 1", "heos://group/volume_up?gid=5&step=1"},
		{"gmute 5 off", "heos://group/set_mute?gid=5&state=off"},
		{"gmute 5 toggle", "heos://group/toggle_mute?gid=5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := parser.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd.URI())
		})
	}
}

func TestCommandParsingErrors(t *testing.T) {
	parser := NewCommandParser()

	tests := []struct {
		input string
		kind  ParseErrorKind
	}{
		{"", ErrKindInvalidCommand},
		{"   ", ErrKindInvalidCommand},
		{"frobnicate", ErrKindInvalidCommand},
		{"heos://", ErrKindInvalidCommand},
		{"player/get_volume pid", ErrKindInvalidParameter},
		{"player/get_volume =1", ErrKindInvalidParameter},
		{"events", ErrKindMissingArgument},
		{"events maybe", ErrKindInvalidValue},
		{"signin user", ErrKindMissingArgument},
		{"info", ErrKindMissingArgument},
		{"info abc", ErrKindInvalidValue},
		{"play", ErrKindMissingArgument},
		{"state 1 rewind", ErrKindInvalidValue},
		{"volume", ErrKindMissingArgument},
		{"volume 1 loud", ErrKindInvalidValue},
		{"volume 1 101", ErrKindInvalidValue},
		{"volume 1 up 20", ErrKindInvalidValue},
		{"volume 1 30 40", ErrKindMissingArgument},
		{"mute 1 maybe", ErrKindInvalidValue},
		{"mode 1 on_all", ErrKindMissingArgument},
		{"mode 1 sometimes on", ErrKindInvalidValue},
		{"url 1", ErrKindMissingArgument},
		{"group", ErrKindMissingArgument},
		{"group 1,x", ErrKindInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parser.Parse(tt.input)
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %v", err)
			assert.Equal(t, tt.kind, parseErr.Kind)
		})
	}
}

func TestCommandParsingLineTooLong(t *testing.T) {
	parser := NewCommandParser()

	_, err := parser.Parse("player/get_volume pid=" + strings.Repeat("1", MaxLineLength))
	assert.ErrorIs(t, err, ErrLineTooLong)
}
