package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/heoskit/heos/heos"
	"github.com/heoskit/heos/heosprotocol"
	"github.com/pterm/pterm"
)

// syncWriter serializes writes from event handlers and the command loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// printMessage writes a response: the heos section as command and message,
// then payload and options as indented JSON.
func printMessage(w io.Writer, msg *heosprotocol.Message) error {
	params := msg.Params()
	line := msg.Command()
	if len(params) > 0 {
		line += " " + encodeParams(params)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, section := range []json.RawMessage{msg.Payload(), msg.Options()} {
		if len(section) == 0 {
			continue
		}
		var out bytes.Buffer
		if err := json.Indent(&out, section, "", "  "); err != nil {
			return fmt.Errorf("failed to format response: %w", err)
		}
		out.WriteByte('\n')
		if _, err := out.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// encodeParams renders decoded parameters as sorted key=value pairs. Keys
// with a blank value, such as signed_in, are shown alone.
func encodeParams(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if params[key] == "" {
			pairs = append(pairs, key)
			continue
		}
		pairs = append(pairs, key+"="+params[key])
	}
	return strings.Join(pairs, "&")
}

// player is one entry of the player/get_players payload.
type player struct {
	Name    string `json:"name"`
	PID     int    `json:"pid"`
	GID     int    `json:"gid"`
	Model   string `json:"model"`
	Version string `json:"version"`
	IP      string `json:"ip"`
	Network string `json:"network"`
	Serial  string `json:"serial"`
}

// renderPlayers renders players as a table, marking the connected host.
func renderPlayers(players []player, currentHost string) (string, error) {
	data := pterm.TableData{{"", "PID", "Name", "Model", "Version", "IP", "Network", "Group"}}
	for _, p := range players {
		marker := ""
		if p.IP == currentHost {
			marker = "*"
		}
		group := ""
		if p.GID != 0 {
			group = strconv.Itoa(p.GID)
		}
		data = append(data, []string{
			marker, strconv.Itoa(p.PID), p.Name, p.Model, p.Version, p.IP, p.Network, group,
		})
	}

	table, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false).
		WithData(data).
		Srender()
	if err != nil {
		return "", fmt.Errorf("failed to render table: %w", err)
	}
	return table, nil
}

// formatEvent renders one dispatcher event as a single line, or "" for
// events that are not shown.
func formatEvent(event any) string {
	switch e := event.(type) {
	case heos.SessionEvent:
		return pterm.FgYellow.Sprintf("*** %s", e)
	case heosprotocol.ReconnectingEvent:
		return pterm.FgYellow.Sprintf("*** reconnecting to %s (attempt %d)", e.Host, e.Attempt)
	case heos.PlayerEvent:
		return fmt.Sprintf("%s player %d %s", pterm.FgCyan.Sprint(e.Command), e.PlayerID, messageParams(e.Message))
	case heos.GroupEvent:
		return fmt.Sprintf("%s group %d %s", pterm.FgCyan.Sprint(e.Command), e.GroupID, messageParams(e.Message))
	case heos.ControllerEvent:
		return fmt.Sprintf("%s %s", pterm.FgCyan.Sprint(e.Command), messageParams(e.Message))
	default:
		return ""
	}
}

func messageParams(msg *heosprotocol.Message) string {
	if msg == nil {
		return ""
	}
	return encodeParams(msg.Params())
}

func timestamp(t time.Time) string {
	return t.Format("15:04:05")
}
