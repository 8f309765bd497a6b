package heostest

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// Fixture is a canned device response loaded from fixtures/<name>.yaml.
type Fixture struct {
	Command string `yaml:"command"`
	Result  string `yaml:"result"`
	Message string `yaml:"message"`
	Payload any    `yaml:"payload"`
}

// Line renders the fixture as a response line.
func (f Fixture) Line() string {
	return responseLine(f.Command, f.Result, f.Message, f.Payload)
}

var (
	fixturesOnce sync.Once
	fixtures     map[string]Fixture
	fixturesErr  error
)

// LoadFixture returns the fixture with the given name, e.g.
// "player.get_players".
func LoadFixture(name string) (Fixture, error) {
	fixturesOnce.Do(func() {
		fixtures, fixturesErr = loadFixtures()
	})
	if fixturesErr != nil {
		return Fixture{}, fixturesErr
	}
	f, ok := fixtures[name]
	if !ok {
		return Fixture{}, fmt.Errorf("fixture %q not found", name)
	}
	return f, nil
}

// MustFixture is like LoadFixture but panics if the fixture is missing.
func MustFixture(name string) Fixture {
	f, err := LoadFixture(name)
	if err != nil {
		panic(err)
	}
	return f
}

func loadFixtures() (map[string]Fixture, error) {
	entries, err := fixtureFS.ReadDir("fixtures")
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]Fixture, len(entries))
	for _, entry := range entries {
		data, err := fixtureFS.ReadFile(path.Join("fixtures", entry.Name()))
		if err != nil {
			return nil, err
		}
		var f Fixture
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", entry.Name(), err)
		}
		if f.Result == "" {
			f.Result = "success"
		}
		loaded[strings.TrimSuffix(entry.Name(), ".yaml")] = f
	}
	return loaded, nil
}

// defaultHandlers answers the commands every session issues on connect.
func defaultHandlers() map[string]Responder {
	handlers := make(map[string]Responder)
	for _, name := range []string{
		"system.heart_beat",
		"system.register_for_change_events",
		"system.check_account",
		"system.sign_in",
		"system.sign_out",
		"player.get_players",
		"player.get_player_info",
		"group.get_groups",
	} {
		f := MustFixture(name)
		handlers[f.Command] = Reply(f.Line())
	}
	return handlers
}
