package heosprotocol

import (
	"strconv"
	"strings"
)

// Command names.
const (
	CommandHeartBeat               = "system/heart_beat"
	CommandRegisterForChangeEvents = "system/register_for_change_events"
	CommandCheckAccount            = "system/check_account"
	CommandSignIn                  = "system/sign_in"
	CommandSignOut                 = "system/sign_out"
	CommandReboot                  = "system/reboot"

	CommandGetPlayers         = "player/get_players"
	CommandGetPlayerInfo      = "player/get_player_info"
	CommandGetPlayState       = "player/get_play_state"
	CommandSetPlayState       = "player/set_play_state"
	CommandGetNowPlayingMedia = "player/get_now_playing_media"
	CommandGetVolume          = "player/get_volume"
	CommandSetVolume          = "player/set_volume"
	CommandVolumeUp           = "player/volume_up"
	CommandVolumeDown         = "player/volume_down"
	CommandGetMute            = "player/get_mute"
	CommandSetMute            = "player/set_mute"
	CommandToggleMute         = "player/toggle_mute"
	CommandGetPlayMode        = "player/get_play_mode"
	CommandSetPlayMode        = "player/set_play_mode"
	CommandPlayNext           = "player/play_next"
	CommandPlayPrevious       = "player/play_previous"
	CommandClearQueue         = "player/clear_queue"
	CommandPlayStream         = "browse/play_stream"
	CommandGetGroups          = "group/get_groups"
	CommandSetGroup           = "group/set_group"
	CommandGetGroupVolume     = "group/get_volume"
	CommandSetGroupVolume     = "group/set_volume"
	CommandGroupVolumeUp      = "group/volume_up"
	CommandGroupVolumeDown    = "group/volume_down"
	CommandGetGroupMute       = "group/get_mute"
	CommandSetGroupMute       = "group/set_mute"
	CommandToggleGroupMute    = "group/toggle_mute"
)

// Play states.
const (
	PlayStatePlay  = "play"
	PlayStatePause = "pause"
	PlayStateStop  = "stop"
)

// Repeat modes.
const (
	RepeatOff   = "off"
	RepeatOnAll = "on_all"
	RepeatOnOne = "on_one"
)

// Volume limits.
const (
	MinVolume   = 0
	MaxVolume   = 100
	MinStep     = 1
	MaxStep     = 10
	DefaultStep = 5
)

// NewHeartBeatCommand creates a no-op command used to keep the connection alive.
func NewHeartBeatCommand() Command {
	return NewCommand(CommandHeartBeat, nil)
}

// NewRegisterForChangeEventsCommand enables or disables unsolicited events
// on the connection.
func NewRegisterForChangeEventsCommand(enable bool) Command {
	return NewCommand(CommandRegisterForChangeEvents, map[string]any{ParamEnable: enable})
}

// NewCheckAccountCommand creates a command that reports the signed-in account.
func NewCheckAccountCommand() Command {
	return NewCommand(CommandCheckAccount, nil)
}

// NewSignInCommand creates a sign-in command. The password is masked when
// the command is logged.
func NewSignInCommand(username, password string) Command {
	return NewCommand(CommandSignIn, map[string]any{
		ParamUsername: username,
		ParamPassword: password,
	})
}

// NewSignOutCommand creates a sign-out command.
func NewSignOutCommand() Command {
	return NewCommand(CommandSignOut, nil)
}

// NewRebootCommand creates a command that reboots the connected device.
func NewRebootCommand() Command {
	return NewCommand(CommandReboot, nil)
}

// NewGetPlayersCommand creates a command that lists every player in the system.
func NewGetPlayersCommand() Command {
	return NewCommand(CommandGetPlayers, nil)
}

// NewGetPlayerInfoCommand creates a command that describes one player.
func NewGetPlayerInfoCommand(playerID int) Command {
	return playerCommand(CommandGetPlayerInfo, playerID)
}

// NewGetPlayStateCommand creates a command that reads the play state.
func NewGetPlayStateCommand(playerID int) Command {
	return playerCommand(CommandGetPlayState, playerID)
}

// NewSetPlayStateCommand creates a command that sets the play state to
// play, pause or stop.
func NewSetPlayStateCommand(playerID int, state string) (Command, error) {
	switch state {
	case PlayStatePlay, PlayStatePause, PlayStateStop:
	default:
		return Command{}, newInvalidValueError(state, "play state must be play, pause or stop")
	}
	return NewCommand(CommandSetPlayState, map[string]any{
		ParamPlayerID: playerID,
		ParamState:    state,
	}), nil
}

// NewGetNowPlayingMediaCommand creates a command that reads the current media.
func NewGetNowPlayingMediaCommand(playerID int) Command {
	return playerCommand(CommandGetNowPlayingMedia, playerID)
}

// NewGetVolumeCommand creates a command that reads a player's volume.
func NewGetVolumeCommand(playerID int) Command {
	return playerCommand(CommandGetVolume, playerID)
}

// NewSetVolumeCommand creates a command that sets a player's volume (0-100).
func NewSetVolumeCommand(playerID, level int) (Command, error) {
	if err := validateVolume(level); err != nil {
		return Command{}, err
	}
	return NewCommand(CommandSetVolume, map[string]any{
		ParamPlayerID: playerID,
		ParamLevel:    level,
	}), nil
}

// NewVolumeUpCommand creates a command that raises a player's volume by step (1-10).
func NewVolumeUpCommand(playerID, step int) (Command, error) {
	return stepCommand(CommandVolumeUp, ParamPlayerID, playerID, step)
}

// NewVolumeDownCommand creates a command that lowers a player's volume by step (1-10).
func NewVolumeDownCommand(playerID, step int) (Command, error) {
	return stepCommand(CommandVolumeDown, ParamPlayerID, playerID, step)
}

// NewGetMuteCommand creates a command that reads a player's mute state.
func NewGetMuteCommand(playerID int) Command {
	return playerCommand(CommandGetMute, playerID)
}

// NewSetMuteCommand creates a command that mutes or unmutes a player.
func NewSetMuteCommand(playerID int, mute bool) Command {
	return NewCommand(CommandSetMute, map[string]any{
		ParamPlayerID: playerID,
		ParamState:    mute,
	})
}

// NewToggleMuteCommand creates a command that toggles a player's mute state.
func NewToggleMuteCommand(playerID int) Command {
	return playerCommand(CommandToggleMute, playerID)
}

// NewGetPlayModeCommand creates a command that reads repeat and shuffle.
func NewGetPlayModeCommand(playerID int) Command {
	return playerCommand(CommandGetPlayMode, playerID)
}

// NewSetPlayModeCommand creates a command that sets repeat and shuffle.
func NewSetPlayModeCommand(playerID int, repeat string, shuffle bool) (Command, error) {
	switch repeat {
	case RepeatOff, RepeatOnAll, RepeatOnOne:
	default:
		return Command{}, newInvalidValueError(repeat, "repeat must be off, on_all or on_one")
	}
	return NewCommand(CommandSetPlayMode, map[string]any{
		ParamPlayerID: playerID,
		ParamRepeat:   repeat,
		ParamShuffle:  shuffle,
	}), nil
}

// NewPlayNextCommand creates a command that skips to the next track.
func NewPlayNextCommand(playerID int) Command {
	return playerCommand(CommandPlayNext, playerID)
}

// NewPlayPreviousCommand creates a command that returns to the previous track.
func NewPlayPreviousCommand(playerID int) Command {
	return playerCommand(CommandPlayPrevious, playerID)
}

// NewClearQueueCommand creates a command that empties a player's queue.
func NewClearQueueCommand(playerID int) Command {
	return playerCommand(CommandClearQueue, playerID)
}

// NewPlayURLCommand creates a command that plays a stream URL on a player.
func NewPlayURLCommand(playerID int, url string) (Command, error) {
	if url == "" {
		return Command{}, newMissingArgumentError("url is required")
	}
	return NewCommand(CommandPlayStream, map[string]any{
		ParamPlayerID: playerID,
		ParamURL:      url,
	}), nil
}

// NewGetGroupsCommand creates a command that lists every group.
func NewGetGroupsCommand() Command {
	return NewCommand(CommandGetGroups, nil)
}

// NewSetGroupCommand groups players with the first id as leader. A single
// id ungroups that player's group.
func NewSetGroupCommand(playerIDs []int) (Command, error) {
	if len(playerIDs) == 0 {
		return Command{}, newMissingArgumentError("at least one player id is required")
	}
	ids := make([]string, len(playerIDs))
	for i, id := range playerIDs {
		ids[i] = strconv.Itoa(id)
	}
	return NewCommand(CommandSetGroup, map[string]any{
		ParamPlayerID: strings.Join(ids, ","),
	}), nil
}

// NewGetGroupVolumeCommand creates a command that reads a group's volume.
func NewGetGroupVolumeCommand(groupID int) Command {
	return groupCommand(CommandGetGroupVolume, groupID)
}

// NewSetGroupVolumeCommand creates a command that sets a group's volume (0-100).
func NewSetGroupVolumeCommand(groupID, level int) (Command, error) {
	if err := validateVolume(level); err != nil {
		return Command{}, err
	}
	return NewCommand(CommandSetGroupVolume, map[string]any{
		ParamGroupID: groupID,
		ParamLevel:   level,
	}), nil
}

// NewGroupVolumeUpCommand creates a command that raises a group's volume by step (1-10).
func NewGroupVolumeUpCommand(groupID, step int) (Command, error) {
	return stepCommand(CommandGroupVolumeUp, ParamGroupID, groupID, step)
}

// NewGroupVolumeDownCommand creates a command that lowers a group's volume by step (1-10).
func NewGroupVolumeDownCommand(groupID, step int) (Command, error) {
	return stepCommand(CommandGroupVolumeDown, ParamGroupID, groupID, step)
}

// NewGetGroupMuteCommand creates a command that reads a group's mute state.
func NewGetGroupMuteCommand(groupID int) Command {
	return groupCommand(CommandGetGroupMute, groupID)
}

// NewSetGroupMuteCommand creates a command that mutes or unmutes a group.
func NewSetGroupMuteCommand(groupID int, mute bool) Command {
	return NewCommand(CommandSetGroupMute, map[string]any{
		ParamGroupID: groupID,
		ParamState:   mute,
	})
}

// NewToggleGroupMuteCommand creates a command that toggles a group's mute state.
func NewToggleGroupMuteCommand(groupID int) Command {
	return groupCommand(CommandToggleGroupMute, groupID)
}

func playerCommand(name string, playerID int) Command {
	return NewCommand(name, map[string]any{ParamPlayerID: playerID})
}

func groupCommand(name string, groupID int) Command {
	return NewCommand(name, map[string]any{ParamGroupID: groupID})
}

func stepCommand(name, idKey string, id, step int) (Command, error) {
	if step < MinStep || step > MaxStep {
		return Command{}, newInvalidValueError(strconv.Itoa(step), "step must be in the range 1-10")
	}
	return NewCommand(name, map[string]any{idKey: id, ParamStep: step}), nil
}

func validateVolume(level int) error {
	if level < MinVolume || level > MaxVolume {
		return newInvalidValueError(strconv.Itoa(level), "level must be in the range 0-100")
	}
	return nil
}
