package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Mount represents a keypad endpoint found on the network
type Mount struct {
	// Instance is the advertised service instance name (e.g., "GM2000 HPS")
	Instance string

	// Hostname is the mDNS hostname (e.g., "gm2000.local.")
	Hostname string

	// IP is the address to dial, IPv4 when the mount announced one
	IP string

	// Port is the keypad WebSocket port (8000 unless announced otherwise)
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the mount answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the mount
func (m *Mount) String() string {
	return fmt.Sprintf("Mount %q (%s) at %s", m.Instance, m.Hostname, m.Address())
}

// Address returns host:port for the keypad endpoint
func (m *Mount) Address() string {
	return net.JoinHostPort(m.IP, strconv.Itoa(m.Port))
}

// URL returns the keypad WebSocket URL
func (m *Mount) URL() string {
	return "ws://" + m.Address() + "/"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (m *Mount) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}
