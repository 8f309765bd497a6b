package heosprotocol

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Parameter keys with special handling or shared between commands.
const (
	ParamPlayerID          = "pid"
	ParamGroupID           = "gid"
	ParamLevel             = "level"
	ParamStep              = "step"
	ParamState             = "state"
	ParamURL               = "url"
	ParamUsername          = "un"
	ParamPassword          = "pw"
	ParamEnable            = "enable"
	ParamRepeat            = "repeat"
	ParamShuffle           = "shuffle"
	ParamText              = "text"
	ParamErrorID           = "eid"
	ParamSystemErrorNumber = "syserrno"
	ParamSignedIn          = "signed_in"
	ParamSignedOut         = "signed_out"
	ParamCurrentPosition   = "cur_pos"
	ParamDuration          = "duration"
	ParamMute              = "mute"
	ParamError             = "error"
)

// maskedParams render as Mask in MaskedURI.
var maskedParams = map[string]bool{
	ParamPassword: true,
}

// valueEscaper substitutes the characters that would break the query
// string. Percent must be replaced first, which strings.Replacer does by
// scanning the input once.
var valueEscaper = strings.NewReplacer(
	"%", "%25",
	"&", "%26",
	"=", "%3D",
)

// Command is a request sent to a HEOS device: a command name such as
// "player/get_volume" plus scalar parameters. Commands are immutable once
// constructed.
type Command struct {
	name   string
	params map[string]any
}

// NewCommand creates a command. The parameter map is copied.
func NewCommand(name string, params map[string]any) Command {
	return Command{name: name, params: maps.Clone(params)}
}

// Name returns the command name, e.g. "system/heart_beat".
func (c Command) Name() string {
	return c.name
}

// Param returns the parameter value for key.
func (c Command) Param(key string) (any, bool) {
	v, ok := c.params[key]
	return v, ok
}

// Params returns a copy of the command parameters.
func (c Command) Params() map[string]any {
	return maps.Clone(c.params)
}

// URI returns the wire form of the command without the line separator.
// Parameters are sorted by key, except url which always goes last.
func (c Command) URI() string {
	return c.format(false)
}

// MaskedURI returns the wire form with sensitive values replaced by Mask.
func (c Command) MaskedURI() string {
	return c.format(true)
}

// FormatLine returns the command formatted for transmission including the
// line separator.
func (c Command) FormatLine() string {
	return c.URI() + Separator
}

// String returns the masked URI so commands are safe to log.
func (c Command) String() string {
	return c.MaskedURI()
}

func (c Command) format(mask bool) string {
	if len(c.params) == 0 {
		return BaseURI + c.name
	}

	keys := slices.Sorted(maps.Keys(c.params))
	parts := make([]string, 0, len(keys))
	var url string
	hasURL := false
	for _, key := range keys {
		value := formatValue(c.params[key])
		if key == ParamURL {
			url, hasURL = value, true
			continue
		}
		if mask && maskedParams[key] {
			value = Mask
		} else {
			value = valueEscaper.Replace(value)
		}
		parts = append(parts, key+"="+value)
	}
	// The url value is passed through verbatim and must be last because the
	// device reads it to the end of the line.
	if hasURL {
		parts = append(parts, ParamURL+"="+url)
	}
	return BaseURI + c.name + "?" + strings.Join(parts, "&")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "on"
		}
		return "off"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
