package heos

import (
	"encoding/json"
	"testing"

	"github.com/heoskit/heos/heostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixturePlayers(t *testing.T) []playerPayload {
	t.Helper()
	f := heostest.MustFixture("player.get_players")
	raw, err := json.Marshal(f.Payload)
	require.NoError(t, err)

	var players []playerPayload
	require.NoError(t, json.Unmarshal(raw, &players))
	return players
}

func TestNewSystem(t *testing.T) {
	system := newSystem("example@example.com", "127.0.0.1", fixturePlayers(t))

	require.Len(t, system.Hosts, 2)
	assert.Equal(t, Host{
		Name:      "Back Patio",
		Model:     "HEOS Drive",
		Serial:    "B1A2C3K",
		Version:   "1.493.180",
		IPAddress: "127.0.0.1",
		Network:   NetworkWired,
	}, system.Hosts[0])
	assert.Equal(t, NetworkWifi, system.Hosts[1].Network)

	require.NotNil(t, system.Host)
	assert.Equal(t, "Back Patio", system.Host.Name)
	assert.True(t, system.IsSignedIn())
	assert.Equal(t, []string{"127.0.0.1", "127.0.0.2"}, system.IPAddresses())
}

func TestSystemPreferredHosts(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		preferred bool
	}{
		{"wired host", "127.0.0.1", true},
		{"wifi host", "127.0.0.2", false},
		{"unlisted host", "10.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system := newSystem("", tt.current, fixturePlayers(t))

			preferred := system.PreferredHosts()
			require.Len(t, preferred, 1)
			assert.Equal(t, "127.0.0.1", preferred[0].IPAddress)
			assert.Equal(t, tt.preferred, system.ConnectedToPreferredHost())
			assert.False(t, system.IsSignedIn())
		})
	}
}

func TestUnknownNetwork(t *testing.T) {
	system := newSystem("", "127.0.0.1", []playerPayload{
		{Name: "Den", IP: "127.0.0.1", Network: "powerline"},
		{Name: "Attic", IP: "127.0.0.4"},
	})

	assert.Equal(t, NetworkUnknown, system.Hosts[0].Network)
	assert.Equal(t, NetworkUnknown, system.Hosts[1].Network)
	assert.Empty(t, system.PreferredHosts())
}

func TestEmptySystem(t *testing.T) {
	system := newSystem("", "127.0.0.1", nil)

	assert.Nil(t, system.Host)
	assert.Empty(t, system.Hosts)
	assert.Empty(t, system.IPAddresses())
	assert.False(t, system.ConnectedToPreferredHost())
}
