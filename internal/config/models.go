package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultPort is the port the mount serves its virtual keypad on
const DefaultPort = 8000

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int               `yaml:"version"`
	Mounts      map[string]*Mount `yaml:"mounts,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// Mount is a telescope mount whose keypad can be reached
type Mount struct {
	Host        string    `yaml:"host"`
	Port        int       `yaml:"port,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Source      string    `yaml:"source,omitempty"`    // "manual" or "mdns"
	LastSeen    time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
}

// Address returns host:port, filling in DefaultPort
func (m *Mount) Address() string {
	port := m.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(m.Host, strconv.Itoa(port))
}

// URL returns the keypad WebSocket endpoint
func (m *Mount) URL() string {
	return "ws://" + m.Address() + "/"
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultMount      string `yaml:"default_mount,omitempty"` // Mount used when none is named
	ReconnectDelayMs  int    `yaml:"reconnect_delay_ms"`      // Wait between close and reconnect
	ReceiveBufferSize int    `yaml:"receive_buffer_size"`     // Initial receive queue size in bytes
	LogLevel          string `yaml:"log_level,omitempty"`     // debug, info, warn, error; empty = silent
	CaptureDir        string `yaml:"capture_dir,omitempty"`   // JSONL capture directory; empty = off
	MetricsAddr       string `yaml:"metrics_addr,omitempty"`  // e.g. ":9464"; empty = off
	DiscoverTimeout   int    `yaml:"discover_timeout"`        // mDNS discovery timeout in seconds
	ShowPixels        bool   `yaml:"show_pixels"`             // Render the pixel plane in the TUI
}

// ReconnectDelay returns the reconnect delay as a duration
func (p *Preferences) ReconnectDelay() time.Duration {
	return time.Duration(p.ReconnectDelayMs) * time.Millisecond
}

func defaultPreferences() *Preferences {
	return &Preferences{
		ReconnectDelayMs:  3000,
		ReceiveBufferSize: 4 * 1024 * 1024,
		DiscoverTimeout:   5,
	}
}

// fillDefaults replaces unset numeric preferences, as found in files written
// by older builds
func (p *Preferences) fillDefaults() {
	d := defaultPreferences()
	if p.ReconnectDelayMs <= 0 {
		p.ReconnectDelayMs = d.ReconnectDelayMs
	}
	if p.ReceiveBufferSize <= 0 {
		p.ReceiveBufferSize = d.ReceiveBufferSize
	}
	if p.DiscoverTimeout <= 0 {
		p.DiscoverTimeout = d.DiscoverTimeout
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Mounts:      make(map[string]*Mount),
		Preferences: defaultPreferences(),
	}
}

// GetMount retrieves a mount by name.
// Returns nil if the mount doesn't exist in the registry.
func (r *Registry) GetMount(name string) *Mount {
	return r.Mounts[name]
}

// AddMount adds or replaces a named mount
func (r *Registry) AddMount(name, host string, port int) (*Mount, error) {
	name = strings.TrimSpace(name)
	host = strings.TrimSpace(host)
	if name == "" {
		return nil, fmt.Errorf("mount name is required")
	}
	if host == "" {
		return nil, fmt.Errorf("mount host is required")
	}
	if port == 0 {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	if r.Mounts == nil {
		r.Mounts = make(map[string]*Mount)
	}
	m := &Mount{Host: host, Port: port, Source: "manual"}
	r.Mounts[name] = m
	return m, nil
}

// RemoveMount deletes a mount. It reports whether the mount existed. The
// default mount preference is cleared if it named this mount.
func (r *Registry) RemoveMount(name string) bool {
	if _, ok := r.Mounts[name]; !ok {
		return false
	}
	delete(r.Mounts, name)
	if r.Preferences != nil && r.Preferences.DefaultMount == name {
		r.Preferences.DefaultMount = ""
	}
	return true
}

// MountNames returns the mount names in sorted order
func (r *Registry) MountNames() []string {
	names := make([]string, 0, len(r.Mounts))
	for name := range r.Mounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateMountLastSeen records a discovery or connection, creating the mount
// entry when it is new.
func (r *Registry) UpdateMountLastSeen(name, host string, port int, source string) *Mount {
	if r.Mounts == nil {
		r.Mounts = make(map[string]*Mount)
	}
	m, ok := r.Mounts[name]
	if !ok {
		m = &Mount{Source: source}
		r.Mounts[name] = m
	}
	m.Host = host
	if port != 0 {
		m.Port = port
	}
	m.LastSeen = time.Now()
	return m
}

// ResolveMount turns a mount name, a host or a host:port into a Mount. An
// empty target selects the default mount. Names take precedence over hosts.
func (r *Registry) ResolveMount(target string) (*Mount, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		if r.Preferences == nil || r.Preferences.DefaultMount == "" {
			return nil, fmt.Errorf("no mount given and no default mount configured")
		}
		target = r.Preferences.DefaultMount
		m := r.Mounts[target]
		if m == nil {
			return nil, fmt.Errorf("default mount %q is not in the registry", target)
		}
		return m, nil
	}

	if m := r.Mounts[target]; m != nil {
		return m, nil
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port given
		return &Mount{Host: target, Port: DefaultPort}, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid port in %q", target)
	}
	return &Mount{Host: host, Port: port}, nil
}
