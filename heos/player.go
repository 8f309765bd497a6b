package heos

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/heoskit/heos/heosprotocol"
)

// PlayState is a player's transport state.
type PlayState string

// Play states reported by devices.
const (
	PlayStatePlay    PlayState = "play"
	PlayStatePause   PlayState = "pause"
	PlayStateStop    PlayState = "stop"
	PlayStateUnknown PlayState = "unknown"
)

func parsePlayState(s string) PlayState {
	switch state := PlayState(s); state {
	case PlayStatePlay, PlayStatePause, PlayStateStop:
		return state
	default:
		return PlayStateUnknown
	}
}

// RepeatMode is a player's repeat setting.
type RepeatMode string

// Repeat modes reported by devices.
const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "on_all"
	RepeatOne RepeatMode = "on_one"
)

func parseRepeatMode(s string) RepeatMode {
	switch mode := RepeatMode(s); mode {
	case RepeatAll, RepeatOne:
		return mode
	default:
		return RepeatOff
	}
}

const valueOn = "on"

// NowPlaying is the media a player is playing. Position and Duration are
// only meaningful once PositionUpdated is set by a progress event.
type NowPlaying struct {
	Type     string
	Song     string
	Station  string
	Album    string
	Artist   string
	ImageURL string
	AlbumID  string
	MediaID  string
	QueueID  int
	SourceID int

	Position        time.Duration
	Duration        time.Duration
	PositionUpdated time.Time
}

// HasPosition reports whether a progress event was received for the
// current media.
func (n NowPlaying) HasPosition() bool {
	return !n.PositionUpdated.IsZero()
}

func (n *NowPlaying) clearProgress() {
	n.Position = 0
	n.Duration = 0
	n.PositionUpdated = time.Time{}
}

// nowPlayingPayload is the player/get_now_playing_media payload.
type nowPlayingPayload struct {
	Type     string      `json:"type"`
	Song     string      `json:"song"`
	Station  string      `json:"station"`
	Album    string      `json:"album"`
	Artist   string      `json:"artist"`
	ImageURL string      `json:"image_url"`
	AlbumID  string      `json:"album_id"`
	MediaID  string      `json:"mid"`
	QueueID  json.Number `json:"qid"`
	SourceID json.Number `json:"sid"`
}

func (p nowPlayingPayload) nowPlaying() NowPlaying {
	return NowPlaying{
		Type:     p.Type,
		Song:     p.Song,
		Station:  p.Station,
		Album:    p.Album,
		Artist:   p.Artist,
		ImageURL: p.ImageURL,
		AlbumID:  p.AlbumID,
		MediaID:  p.MediaID,
		QueueID:  numberOrZero(p.QueueID),
		SourceID: numberOrZero(p.SourceID),
	}
}

func numberOrZero(n json.Number) int {
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0
	}
	return i
}

// Player is the last known state of a player in the system. Base fields come
// from player/get_players; the rest is kept current from player events.
type Player struct {
	PlayerID int
	// GroupID is zero when the player is not grouped.
	GroupID   int
	Name      string
	Model     string
	Serial    string
	Version   string
	IPAddress string
	Network   NetworkType
	// Available is false once the player is no longer listed by the device.
	Available bool

	State         PlayState
	Volume        int
	Muted         bool
	Repeat        RepeatMode
	Shuffle       bool
	PlaybackError string
	NowPlaying    NowPlaying
}

func newPlayer(data playerPayload) *Player {
	p := &Player{State: PlayStateUnknown, Repeat: RepeatOff}
	p.update(data)
	return p
}

func (p *Player) update(data playerPayload) {
	host := data.host()
	p.PlayerID = data.PID
	p.GroupID = data.GID
	p.Name = host.Name
	p.Model = host.Model
	p.Serial = host.Serial
	p.Version = host.Version
	p.IPAddress = host.IPAddress
	p.Network = host.Network
	p.Available = true
}

// applyEvent updates the player from a player event. It reports whether the
// event changed anything subscribers should hear about; progress events are
// only reported while no position is known unless allProgress is set.
func (p *Player) applyEvent(msg *heosprotocol.Message, allProgress bool, now time.Time) bool {
	switch msg.Command() {
	case EventPlayerNowPlayingProgress:
		if !allProgress && p.NowPlaying.HasPosition() {
			return false
		}
		pos, _ := msg.ParamInt(heosprotocol.ParamCurrentPosition)
		duration, _ := msg.ParamInt(heosprotocol.ParamDuration)
		p.NowPlaying.Position = time.Duration(pos) * time.Millisecond
		p.NowPlaying.Duration = time.Duration(duration) * time.Millisecond
		p.NowPlaying.PositionUpdated = now

	case EventPlayerStateChanged:
		state, _ := msg.Param(heosprotocol.ParamState)
		p.State = parsePlayState(state)
		if p.State == PlayStatePlay {
			p.NowPlaying.clearProgress()
		}

	case EventPlayerVolumeChanged:
		if level, err := msg.ParamInt(heosprotocol.ParamLevel); err == nil {
			p.Volume = level
		}
		mute, _ := msg.Param(heosprotocol.ParamMute)
		p.Muted = mute == valueOn

	case EventRepeatModeChanged:
		repeat, _ := msg.Param(heosprotocol.ParamRepeat)
		p.Repeat = parseRepeatMode(repeat)

	case EventShuffleModeChanged:
		shuffle, _ := msg.Param(heosprotocol.ParamShuffle)
		p.Shuffle = shuffle == valueOn

	case EventPlayerPlaybackError:
		p.PlaybackError, _ = msg.Param(heosprotocol.ParamError)
	}
	return true
}

// playerSet tracks the players of the system by id.
type playerSet map[int]*Player

// load merges the player/get_players payload into the known players. A
// known player is matched by id, or by name when its firmware version
// changed since device ids change on upgrade. Players no longer listed are
// kept but marked unavailable.
func (ps playerSet) load(data []playerPayload) playerSet {
	existing := make([]*Player, 0, len(ps))
	for _, p := range ps {
		existing = append(existing, p)
	}
	slices.SortFunc(existing, func(a, b *Player) int { return a.PlayerID - b.PlayerID })

	loaded := make(playerSet, len(data))
	for _, d := range data {
		i := slices.IndexFunc(existing, func(p *Player) bool {
			return p.PlayerID == d.PID || (p.Name == d.Name && p.Version != d.Version)
		})
		if i < 0 {
			loaded[d.PID] = newPlayer(d)
			continue
		}
		p := existing[i]
		existing = slices.Delete(existing, i, i+1)
		p.update(d)
		loaded[d.PID] = p
	}
	for _, p := range existing {
		p.Available = false
		loaded[p.PlayerID] = p
	}
	return loaded
}

// Players returns a snapshot of the known players ordered by id.
func (h *Heos) Players() []Player {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := make([]Player, 0, len(h.players))
	for _, p := range h.players {
		list = append(list, *p)
	}
	slices.SortFunc(list, func(a, b Player) int { return a.PlayerID - b.PlayerID })
	return list
}

// Player returns a snapshot of the player with playerID.
func (h *Heos) Player(playerID int) (Player, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.players[playerID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// RefreshPlayer reads the play state, volume, mute, play mode and current
// media of a known player from the device.
func (h *Heos) RefreshPlayer(ctx context.Context, playerID int) (Player, error) {
	stateMsg, err := h.Command(ctx, heosprotocol.NewGetPlayStateCommand(playerID))
	if err != nil {
		return Player{}, err
	}
	volumeMsg, err := h.Command(ctx, heosprotocol.NewGetVolumeCommand(playerID))
	if err != nil {
		return Player{}, err
	}
	muteMsg, err := h.Command(ctx, heosprotocol.NewGetMuteCommand(playerID))
	if err != nil {
		return Player{}, err
	}
	modeMsg, err := h.Command(ctx, heosprotocol.NewGetPlayModeCommand(playerID))
	if err != nil {
		return Player{}, err
	}
	nowPlaying, err := h.fetchNowPlaying(ctx, playerID)
	if err != nil {
		return Player{}, err
	}

	state, _ := stateMsg.Param(heosprotocol.ParamState)
	volume, err := volumeMsg.ParamInt(heosprotocol.ParamLevel)
	if err != nil {
		return Player{}, err
	}
	mute, _ := muteMsg.Param(heosprotocol.ParamState)
	repeat, _ := modeMsg.Param(heosprotocol.ParamRepeat)
	shuffle, _ := modeMsg.Param(heosprotocol.ParamShuffle)

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		p = &Player{PlayerID: playerID}
	}
	p.State = parsePlayState(state)
	p.Volume = volume
	p.Muted = mute == valueOn
	p.Repeat = parseRepeatMode(repeat)
	p.Shuffle = shuffle == valueOn
	p.NowPlaying = nowPlaying
	return *p, nil
}

// RefreshNowPlaying reads the current media of a player from the device.
// Progress is cleared until the next progress event.
func (h *Heos) RefreshNowPlaying(ctx context.Context, playerID int) (NowPlaying, error) {
	nowPlaying, err := h.fetchNowPlaying(ctx, playerID)
	if err != nil {
		return NowPlaying{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[playerID]; ok {
		p.NowPlaying = nowPlaying
	}
	return nowPlaying, nil
}

func (h *Heos) fetchNowPlaying(ctx context.Context, playerID int) (NowPlaying, error) {
	msg, err := h.Command(ctx, heosprotocol.NewGetNowPlayingMediaCommand(playerID))
	if err != nil {
		return NowPlaying{}, err
	}
	var payload nowPlayingPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return NowPlaying{}, err
	}
	return payload.nowPlaying(), nil
}

// updatePlayer applies a player event to the known player and reports
// whether it should be sent to subscribers. Events for unknown players are
// passed through, except progress events when they are suppressed.
func (h *Heos) updatePlayer(ctx context.Context, playerID int, msg *heosprotocol.Message) bool {
	if msg.Command() == EventPlayerNowPlayingChanged {
		if _, err := h.RefreshNowPlaying(ctx, playerID); err != nil {
			h.log.WithError(err).WithField("pid", playerID).Debug("Failed to refresh now playing media")
		}
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		return msg.Command() != EventPlayerNowPlayingProgress || h.opts.AllProgressEvents
	}
	return p.applyEvent(msg, h.opts.AllProgressEvents, time.Now())
}
