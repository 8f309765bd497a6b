package heosprotocol

import (
	"bytes"
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Message is one line received from a HEOS device: either the response to
// a command or an unsolicited event. Messages are immutable. The message
// parameters are decoded on first access and memoized.
type Message struct {
	raw        string
	command    string
	result     bool
	rawParams  string
	payload    json.RawMessage
	options    json.RawMessage
	paramsOnce sync.Once
	params     map[string]string
}

type envelope struct {
	Heos    *heosSection    `json:"heos"`
	Payload json.RawMessage `json:"payload"`
	Options json.RawMessage `json:"options"`
}

type heosSection struct {
	Command *string `json:"command"`
	Result  *string `json:"result"`
	Message string  `json:"message"`
}

// ParseMessage parses a single line received from a device, without the
// line separator. A line that is not a JSON object or that lacks the heos
// section or its command returns a *ParseError.
func ParseMessage(line string) (*Message, error) {
	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		return nil, newInvalidJSONError(err)
	}
	if env.Heos == nil {
		return nil, newMissingSectionError(attrHeos)
	}
	if env.Heos.Command == nil {
		return nil, newMissingSectionError(attrHeos + "." + attrCommand)
	}

	return &Message{
		raw:       line,
		command:   *env.Heos.Command,
		result:    env.Heos.Result == nil || *env.Heos.Result == valueSuccess,
		rawParams: env.Heos.Message,
		payload:   nullToNil(env.Payload),
		options:   nullToNil(env.Options),
	}, nil
}

// NewMessage builds a message directly. It is used by callers that
// synthesize responses, such as tests.
func NewMessage(command string, result bool, params map[string]string, payload json.RawMessage) *Message {
	m := &Message{
		command: command,
		result:  result,
		payload: nullToNil(payload),
	}
	m.paramsOnce.Do(func() {
		m.params = maps.Clone(params)
		if m.params == nil {
			m.params = map[string]string{}
		}
	})
	return m
}

// Command returns the command name the message is for.
func (m *Message) Command() string {
	return m.command
}

// Result reports whether the device reported success. A message without a
// result field is successful.
func (m *Message) Result() bool {
	return m.result
}

// IsEvent reports whether the message is an unsolicited event.
func (m *Message) IsEvent() bool {
	return strings.HasPrefix(m.command, EventPrefix)
}

// IsUnderProcess reports whether the message is a provisional notice that
// the command is still executing.
func (m *Message) IsUnderProcess() bool {
	_, ok := m.parameters()[UnderProcessKey]
	return ok
}

// Param returns the message parameter for key.
func (m *Message) Param(key string) (string, bool) {
	v, ok := m.parameters()[key]
	return v, ok
}

// HasParam reports whether the message carries the parameter key.
func (m *Message) HasParam(key string) bool {
	_, ok := m.parameters()[key]
	return ok
}

// ParamInt returns the message parameter for key as an integer. Devices
// sometimes send integers with a decimal point, so the value is parsed as
// a float and truncated.
func (m *Message) ParamInt(key string) (int, error) {
	v, ok := m.Param(key)
	if !ok {
		return 0, newMissingParameterError(key)
	}
	return parseIntParam(v)
}

// ParamFloat returns the message parameter for key as a float.
func (m *Message) ParamFloat(key string) (float64, error) {
	v, ok := m.Param(key)
	if !ok {
		return 0, newMissingParameterError(key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, newInvalidValueError(v, "not a number")
	}
	return f, nil
}

// Params returns a copy of all message parameters.
func (m *Message) Params() map[string]string {
	return maps.Clone(m.parameters())
}

// Payload returns the raw payload, or nil if the message has none.
func (m *Message) Payload() json.RawMessage {
	return m.payload
}

// DecodePayload unmarshals the payload into v.
func (m *Message) DecodePayload(v any) error {
	if m.payload == nil {
		return newMissingSectionError(attrPayload)
	}
	if err := json.Unmarshal(m.payload, v); err != nil {
		return newInvalidJSONError(err)
	}
	return nil
}

// Options returns the raw options section, or nil if the message has none.
func (m *Message) Options() json.RawMessage {
	return m.options
}

// Raw returns the line the message was parsed from.
func (m *Message) Raw() string {
	return m.raw
}

// String returns the raw line, or the command and parameters for
// synthesized messages.
func (m *Message) String() string {
	if m.raw != "" {
		return m.raw
	}
	return m.command + " " + encodeParams(m.parameters())
}

func (m *Message) parameters() map[string]string {
	m.paramsOnce.Do(func() {
		m.params = decodeParams(m.rawParams)
	})
	return m.params
}

// decodeParams decodes a query string keeping blank values. A repeated key
// keeps its last value. Pairs that fail to unescape are kept verbatim.
func decodeParams(s string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[unescape(key)] = unescape(value)
	}
	return params
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func encodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, k+"="+valueEscaper.Replace(params[k]))
	}
	return strings.Join(parts, "&")
}

func parseIntParam(v string) (int, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, newInvalidValueError(v, "not a number")
	}
	return int(f), nil
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}
