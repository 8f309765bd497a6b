package heosprotocol

import (
	"strconv"
	"strings"
)

// CommandParser parses commands typed by a user. It accepts a full request
// URI ("heos://player/get_volume?pid=1"), a command name followed by
// key=value arguments ("player/get_volume pid=1") and short forms
// ("volume 1", "volume 1 30", "mute 1 on").
type CommandParser struct{}

// NewCommandParser creates a new command parser.
func NewCommandParser() *CommandParser {
	return &CommandParser{}
}

// Parse parses a command line into a Command.
func (p *CommandParser) Parse(line string) (Command, error) {
	commandLine := strings.TrimSpace(line)
	if len(commandLine) > MaxLineLength {
		return Command{}, ErrLineTooLong
	}
	if commandLine == "" {
		return Command{}, newInvalidCommandError("")
	}

	if strings.HasPrefix(commandLine, BaseURI) {
		return p.parseURI(commandLine)
	}

	fields := strings.Fields(commandLine)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	if strings.Contains(command, "/") {
		return p.parseNamed(fields[0], args)
	}

	switch command {
	// System
	case "heartbeat", "hb":
		return NewHeartBeatCommand(), nil
	case "events":
		return p.parseEvents(args)
	case "account", "whoami":
		return NewCheckAccountCommand(), nil
	case "signin", "login":
		if len(args) != 2 {
			return Command{}, newMissingArgumentError("usage: signin <username> <password>")
		}
		return NewSignInCommand(args[0], args[1]), nil
	case "signout", "logout":
		return NewSignOutCommand(), nil
	case "reboot":
		return NewRebootCommand(), nil

	// Players
	case "players":
		return NewGetPlayersCommand(), nil
	case "info":
		return p.withID(args, "info", NewGetPlayerInfoCommand)
	case "state":
		return p.parseState(args)
	case "play", "pause", "stop":
		id, err := p.requireID(args, command)
		if err != nil {
			return Command{}, err
		}
		return NewSetPlayStateCommand(id, command)
	case "nowplaying", "np":
		return p.withID(args, "nowplaying", NewGetNowPlayingMediaCommand)
	case "next":
		return p.withID(args, "next", NewPlayNextCommand)
	case "prev", "previous":
		return p.withID(args, "prev", NewPlayPreviousCommand)
	case "clear":
		return p.withID(args, "clear", NewClearQueueCommand)
	case "volume", "vol":
		return p.parseVolume(args, false)
	case "mute":
		return p.parseMute(args, false)
	case "mode":
		return p.parseMode(args)
	case "url":
		if len(args) != 2 {
			return Command{}, newMissingArgumentError("usage: url <pid> <url>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, err
		}
		return NewPlayURLCommand(id, args[1])

	// Groups
	case "groups":
		return NewGetGroupsCommand(), nil
	case "group":
		return p.parseGroup(args)
	case "gvolume", "gvol":
		return p.parseVolume(args, true)
	case "gmute":
		return p.parseMute(args, true)

	default:
		return Command{}, newInvalidCommandError(command)
	}
}

// parseURI parses "heos://name?k=v&...".
func (p *CommandParser) parseURI(uri string) (Command, error) {
	rest := strings.TrimPrefix(uri, BaseURI)
	name, query, _ := strings.Cut(rest, "?")
	if name == "" {
		return Command{}, newInvalidCommandError(uri)
	}

	params := make(map[string]any)
	if query != "" {
		// The url parameter is last and unescaped, so it may itself
		// contain & and =.
		if i := strings.Index(query, ParamURL+"="); i == 0 || (i > 0 && query[i-1] == '&') {
			params[ParamURL] = query[i+len(ParamURL)+1:]
			query = strings.TrimSuffix(query[:i], "&")
		}
		for key, value := range decodeParams(query) {
			params[key] = value
		}
	}
	return NewCommand(name, params), nil
}

// parseNamed parses "name k=v k=v".
func (p *CommandParser) parseNamed(name string, args []string) (Command, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return Command{}, newInvalidParameterError(arg)
		}
		params[key] = value
	}
	return NewCommand(name, params), nil
}

func (p *CommandParser) parseEvents(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, newMissingArgumentError("usage: events on|off")
	}
	enable, err := parseOnOff(args[0])
	if err != nil {
		return Command{}, err
	}
	return NewRegisterForChangeEventsCommand(enable), nil
}

func (p *CommandParser) parseState(args []string) (Command, error) {
	switch len(args) {
	case 1:
		return p.withID(args, "state", NewGetPlayStateCommand)
	case 2:
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, err
		}
		return NewSetPlayStateCommand(id, strings.ToLower(args[1]))
	default:
		return Command{}, newMissingArgumentError("usage: state <pid> [play|pause|stop]")
	}
}

// parseVolume parses "volume <id> [level|up [step]|down [step]]".
func (p *CommandParser) parseVolume(args []string, group bool) (Command, error) {
	usage := "usage: volume <pid> [level|up [step]|down [step]]"
	get, set, up, down := NewGetVolumeCommand, NewSetVolumeCommand, NewVolumeUpCommand, NewVolumeDownCommand
	if group {
		usage = "usage: gvolume <gid> [level|up [step]|down [step]]"
		get, set, up, down = NewGetGroupVolumeCommand, NewSetGroupVolumeCommand, NewGroupVolumeUpCommand, NewGroupVolumeDownCommand
	}

	if len(args) == 0 || len(args) > 3 {
		return Command{}, newMissingArgumentError(usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	if len(args) == 1 {
		return get(id), nil
	}

	switch strings.ToLower(args[1]) {
	case "up", "+":
		step, err := parseStep(args[2:])
		if err != nil {
			return Command{}, err
		}
		return up(id, step)
	case "down", "-":
		step, err := parseStep(args[2:])
		if err != nil {
			return Command{}, err
		}
		return down(id, step)
	}

	if len(args) != 2 {
		return Command{}, newMissingArgumentError(usage)
	}
	level, err := strconv.Atoi(args[1])
	if err != nil {
		return Command{}, newInvalidValueError(args[1], "expected a volume level, up or down")
	}
	return set(id, level)
}

// parseMute parses "mute <id> [on|off|toggle]".
func (p *CommandParser) parseMute(args []string, group bool) (Command, error) {
	get, set, toggle := NewGetMuteCommand, NewSetMuteCommand, NewToggleMuteCommand
	if group {
		get, set, toggle = NewGetGroupMuteCommand, NewSetGroupMuteCommand, NewToggleGroupMuteCommand
	}

	if len(args) == 0 || len(args) > 2 {
		return Command{}, newMissingArgumentError("usage: mute <id> [on|off|toggle]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	if len(args) == 1 {
		return get(id), nil
	}
	if strings.EqualFold(args[1], "toggle") {
		return toggle(id), nil
	}
	mute, err := parseOnOff(args[1])
	if err != nil {
		return Command{}, err
	}
	return set(id, mute), nil
}

// parseMode parses "mode <pid> [off|on_all|on_one on|off]".
func (p *CommandParser) parseMode(args []string) (Command, error) {
	switch len(args) {
	case 1:
		return p.withID(args, "mode", NewGetPlayModeCommand)
	case 3:
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, err
		}
		shuffle, err := parseOnOff(args[2])
		if err != nil {
			return Command{}, err
		}
		return NewSetPlayModeCommand(id, strings.ToLower(args[1]), shuffle)
	default:
		return Command{}, newMissingArgumentError("usage: mode <pid> [off|on_all|on_one on|off]")
	}
}

// parseGroup parses "group <pid>[,<pid>...]" or space-separated ids.
func (p *CommandParser) parseGroup(args []string) (Command, error) {
	var ids []int
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			if field == "" {
				continue
			}
			id, err := parseID(field)
			if err != nil {
				return Command{}, err
			}
			ids = append(ids, id)
		}
	}
	return NewSetGroupCommand(ids)
}

func (p *CommandParser) withID(args []string, command string, build func(int) Command) (Command, error) {
	id, err := p.requireID(args, command)
	if err != nil {
		return Command{}, err
	}
	return build(id), nil
}

func (p *CommandParser) requireID(args []string, command string) (int, error) {
	if len(args) != 1 {
		return 0, newMissingArgumentError("usage: " + command + " <id>")
	}
	return parseID(args[0])
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, newInvalidValueError(s, "expected a numeric id")
	}
	return id, nil
}

func parseStep(args []string) (int, error) {
	if len(args) == 0 {
		return DefaultStep, nil
	}
	step, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, newInvalidValueError(args[0], "expected a step of 1-10")
	}
	return step, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, newInvalidValueError(s, "expected on or off")
	}
}
