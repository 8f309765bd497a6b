package main

import (
	"fmt"
	"io"
	"strings"
)

// printHelp prints the command overview, or the help for one topic.
func printHelp(out, errOut io.Writer, topic string) {
	if topic == "" {
		fmt.Fprint(out, helpOverview)
		return
	}

	key := strings.TrimPrefix(strings.ToLower(topic), ".")
	if text, ok := shellHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}
	if text, ok := commandHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprintf(errOut, "Error: No help for '%s'. Type .help to see available commands.\n", topic)
}

const helpOverview = `Shell Commands:
  .help [cmd]         Show help (or help for a specific command)
  .status             Show connection and account status
  .events [on|off]    Show or hide device events
  .quit               Disconnect and exit (also .exit)

System:
  heartbeat           Send a heart beat
  events on|off       Register for change events
  account             Show the signed in account
  signin <un> <pw>    Sign in to a HEOS account
  signout             Sign out
  reboot              Reboot the connected device

Players:
  players             List players
  info <pid>          Show player details
  state <pid> [s]     Show or set the play state (play, pause, stop)
  play|pause|stop <pid>
  nowplaying <pid>    Show the playing media
  next|prev <pid>     Skip forward or back
  clear <pid>         Clear the queue
  volume <pid> [v]    Show or set the volume (0-100, up [n], down [n])
  mute <pid> [m]      Show or set mute (on, off, toggle)
  mode <pid> [r s]    Show or set repeat and shuffle
  url <pid> <url>     Play a stream URL

Groups:
  groups              List groups
  group <pid>,...     Create, change or remove a group (leader first)
  gvolume <gid> [v]   Show or set the group volume
  gmute <gid> [m]     Show or set the group mute

Any other command is sent as written:
  player/get_volume pid=1
  heos://player/get_volume?pid=1
`

// shellHelp holds the help for dot commands, keyed without the dot.
var shellHelp = map[string]string{
	"help": `  .help [command]
    Show all commands, or the help for one command.
    Examples:
      .help
      .help volume
      .help .events`,

	"status": `  .status
    Show the connected host, connection state, signed in account,
    number of players, failover hosts and whether events are shown.`,

	"events": `  .events [on|off]
    Show or hide device events between commands. Without an argument
    prints the current setting. Events are hidden at start.

  events on|off
    Register (or unregister) the connection for change events on the
    device.`,

	"quit": `  .quit
    Disconnect from the device and exit. Ctrl-D does the same.`,

	"exit": `  .exit
    Alias for .quit.`,
}

// commandHelp holds the help for device commands.
var commandHelp = map[string]string{
	"heartbeat": `  heartbeat
    Send system/heart_beat. Alias: hb.`,

	"account": `  account
    Send system/check_account and show the signed in user.
    Alias: whoami.`,

	"signin": `  signin <username> <password>
    Sign in to a HEOS account. The password is masked in logs.
    Alias: login.`,

	"signout": `  signout
    Sign out of the HEOS account. Alias: logout.`,

	"reboot": `  reboot
    Reboot the connected device. The shell reconnects when reconnect
    is enabled.`,

	"players": `  players
    Send player/get_players.`,

	"info": `  info <pid>
    Send player/get_player_info.`,

	"state": `  state <pid> [play|pause|stop]
    Show the play state, or set it.
    Examples:
      state 1
      state 1 pause`,

	"play": `  play <pid>
    Start playback. pause and stop work the same way.`,

	"nowplaying": `  nowplaying <pid>
    Send player/get_now_playing_media. Alias: np.`,

	"next": `  next <pid>
    Play the next queue item.`,

	"prev": `  prev <pid>
    Play the previous queue item. Alias: previous.`,

	"clear": `  clear <pid>
    Clear the play queue.`,

	"volume": `  volume <pid> [level | up [step] | down [step]]
    Show the volume, set it (0-100), or step it up or down (1-10,
    default 5). Alias: vol.
    Examples:
      volume 1
      volume 1 30
      volume 1 up
      volume 1 down 10`,

	"mute": `  mute <pid> [on|off|toggle]
    Show or set the mute state.`,

	"mode": `  mode <pid> [off|on_all|on_one on|off]
    Show the play mode, or set repeat and shuffle.
    Example:
      mode 1 on_all off`,

	"url": `  url <pid> <url>
    Play a stream URL. The URL is sent as is.`,

	"groups": `  groups
    Send group/get_groups.`,

	"group": `  group <pid>[,<pid>...]
    Group players with the first as leader. A single id removes the
    group led by that player.
    Examples:
      group 1,2,3
      group 1`,

	"gvolume": `  gvolume <gid> [level | up [step] | down [step]]
    Group volume, like volume. Alias: gvol.`,

	"gmute": `  gmute <gid> [on|off|toggle]
    Group mute, like mute.`,
}
