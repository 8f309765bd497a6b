package heos

import (
	"slices"
)

// NetworkType is how a device is attached to the network.
type NetworkType string

// Network types reported by devices.
const (
	NetworkWired   NetworkType = "wired"
	NetworkWifi    NetworkType = "wifi"
	NetworkUnknown NetworkType = "unknown"
)

// Host describes one device in the system.
type Host struct {
	Name      string
	Model     string
	Serial    string
	Version   string
	IPAddress string
	Network   NetworkType
}

// System describes the HEOS system as seen from the connected device.
type System struct {
	SignedInUsername string
	// Host is the device the session is connected to, or nil if it was
	// not listed.
	Host  *Host
	Hosts []Host
}

// IsSignedIn reports whether an account is signed in.
func (s *System) IsSignedIn() bool {
	return s.SignedInUsername != ""
}

// PreferredHosts returns the hosts on a wired network.
func (s *System) PreferredHosts() []Host {
	var hosts []Host
	for _, h := range s.Hosts {
		if h.Network == NetworkWired {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// ConnectedToPreferredHost reports whether the connected host is wired.
func (s *System) ConnectedToPreferredHost() bool {
	return s.Host != nil && slices.Contains(s.PreferredHosts(), *s.Host)
}

// IPAddresses returns the address of every host.
func (s *System) IPAddresses() []string {
	ips := make([]string, 0, len(s.Hosts))
	for _, h := range s.Hosts {
		ips = append(ips, h.IPAddress)
	}
	return ips
}

// playerPayload is one entry of the player/get_players payload.
type playerPayload struct {
	Name    string `json:"name"`
	PID     int    `json:"pid"`
	GID     int    `json:"gid"`
	Model   string `json:"model"`
	Version string `json:"version"`
	IP      string `json:"ip"`
	Network string `json:"network"`
	Serial  string `json:"serial"`
}

func (p playerPayload) host() Host {
	network := NetworkType(p.Network)
	switch network {
	case NetworkWired, NetworkWifi:
	default:
		network = NetworkUnknown
	}
	return Host{
		Name:      p.Name,
		Model:     p.Model,
		Serial:    p.Serial,
		Version:   p.Version,
		IPAddress: p.IP,
		Network:   network,
	}
}

func newSystem(username, currentHost string, players []playerPayload) *System {
	s := &System{SignedInUsername: username, Hosts: make([]Host, 0, len(players))}
	for _, p := range players {
		s.Hosts = append(s.Hosts, p.host())
	}
	for i := range s.Hosts {
		if s.Hosts[i].IPAddress == currentHost {
			s.Host = &s.Hosts[i]
			break
		}
	}
	return s
}
