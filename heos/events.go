package heos

import (
	"github.com/heoskit/heos/dispatch"
	"github.com/heoskit/heos/heosprotocol"
)

// Signals sent on the session's dispatcher.
const (
	// SignalHeos carries a SessionEvent.
	SignalHeos = "heos"
	// SignalPlayer carries a PlayerEvent.
	SignalPlayer = "player"
	// SignalGroup carries a GroupEvent.
	SignalGroup = "group"
	// SignalController carries a ControllerEvent.
	SignalController = "controller"
)

// SessionEvent is a session lifecycle change sent on SignalHeos.
type SessionEvent string

// Session events.
const (
	EventConnected    SessionEvent = "connected"
	EventDisconnected SessionEvent = "disconnected"
)

// Device event commands.
const (
	EventPlayerStateChanged       = "event/player_state_changed"
	EventPlayerNowPlayingChanged  = "event/player_now_playing_changed"
	EventPlayerNowPlayingProgress = "event/player_now_playing_progress"
	EventPlayerVolumeChanged      = "event/player_volume_changed"
	EventRepeatModeChanged        = "event/repeat_mode_changed"
	EventShuffleModeChanged       = "event/shuffle_mode_changed"
	EventPlayerPlaybackError      = "event/player_playback_error"
	EventPlayerQueueChanged       = "event/player_queue_changed"
	EventGroupVolumeChanged       = "event/group_volume_changed"
	EventSourcesChanged           = "event/sources_changed"
	EventPlayersChanged           = "event/players_changed"
	EventGroupsChanged            = "event/groups_changed"
	EventUserChanged              = "event/user_changed"

	// EventUserCredentialsInvalid is sent on SignalController when the
	// stored credentials were rejected on connect.
	EventUserCredentialsInvalid = "event/user_credentials_invalid"
)

var playerEvents = map[string]bool{
	EventPlayerStateChanged:       true,
	EventPlayerNowPlayingChanged:  true,
	EventPlayerNowPlayingProgress: true,
	EventPlayerVolumeChanged:      true,
	EventRepeatModeChanged:        true,
	EventShuffleModeChanged:       true,
	EventPlayerPlaybackError:      true,
	EventPlayerQueueChanged:       true,
}

var controllerEvents = map[string]bool{
	EventSourcesChanged: true,
	EventPlayersChanged: true,
	EventGroupsChanged:  true,
	EventUserChanged:    true,
}

// PlayerEvent is a device event about one player.
type PlayerEvent struct {
	PlayerID int
	Command  string
	Message  *heosprotocol.Message
}

// GroupEvent is a device event about one group.
type GroupEvent struct {
	GroupID int
	Command string
	Message *heosprotocol.Message
}

// ControllerEvent is a device event about the whole system. Message is nil
// for events raised by the session itself.
type ControllerEvent struct {
	Command string
	Message *heosprotocol.Message
}

// ForPlayer matches PlayerEvents for playerID.
func ForPlayer(playerID int) dispatch.Predicate {
	return ForPlayerFunc(func() int { return playerID })
}

// ForPlayerFunc matches PlayerEvents for the id returned by id, which is
// evaluated for every event.
func ForPlayerFunc(id func() int) dispatch.Predicate {
	return func(event any) bool {
		e, ok := event.(PlayerEvent)
		return ok && e.PlayerID == id()
	}
}

// ForGroup matches GroupEvents for groupID.
func ForGroup(groupID int) dispatch.Predicate {
	return func(event any) bool {
		e, ok := event.(GroupEvent)
		return ok && e.GroupID == groupID
	}
}

// ForCommand matches player, group and controller events for command.
func ForCommand(command string) dispatch.Predicate {
	return func(event any) bool {
		switch e := event.(type) {
		case PlayerEvent:
			return e.Command == command
		case GroupEvent:
			return e.Command == command
		case ControllerEvent:
			return e.Command == command
		default:
			return false
		}
	}
}
