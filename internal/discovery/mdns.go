package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/virtkeypad/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type browsed for mounts
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for mount discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the keypad WebSocket port
	DefaultPort = 8000

	// KeypadTXTKey marks a service as a keypad endpoint. Its value, when set,
	// is the keypad port.
	KeypadTXTKey = "keypad"
)

// mountPattern matches instance or host names that belong to a mount
var mountPattern = regexp.MustCompile(`(?i)(10micron|gm\d{3,4}|keypad)`)

// Scanner handles mDNS mount discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration

	// ServiceType overrides the browsed service type
	ServiceType string
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:     DefaultScanTimeout,
		ServiceType: ServiceType,
	}
}

// ScanForMounts browses until the timeout and returns every mount that
// answered, sorted by instance name. Repeated answers for the same address
// are merged.
func (s *Scanner) ScanForMounts(ctx context.Context) ([]*Mount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]*Mount)
	var mu sync.Mutex

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if m := s.parseServiceEntry(entry); m != nil {
				logging.Debug("mount answered", zap.String("instance", m.Instance), zap.String("address", m.Address()))
				mu.Lock()
				found[m.Address()] = m
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, s.serviceType(), ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	mounts := make([]*Mount, 0, len(found))
	for _, m := range found {
		mounts = append(mounts, m)
	}
	mu.Unlock()
	sort.Slice(mounts, func(i, j int) bool {
		if mounts[i].Instance != mounts[j].Instance {
			return mounts[i].Instance < mounts[j].Instance
		}
		return mounts[i].Address() < mounts[j].Address()
	})
	return mounts, nil
}

// WaitForMount returns the first mount whose instance or host name contains
// name (case-insensitive).
func (s *Scanner) WaitForMount(ctx context.Context, name string) (*Mount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	mountChan := make(chan *Mount, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			m := s.parseServiceEntry(entry)
			if m != nil && m.matches(name) {
				select {
				case mountChan <- m:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, s.serviceType(), ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case m := <-mountChan:
		return m, nil
	case <-ctx.Done():
		select {
		case m := <-mountChan:
			return m, nil
		default:
		}
		return nil, fmt.Errorf("mount %q not found within %v", name, s.Timeout)
	}
}

func (s *Scanner) serviceType() string {
	if s.ServiceType == "" {
		return ServiceType
	}
	return s.ServiceType
}

// parseServiceEntry converts a zeroconf service entry to a Mount.
// Returns nil if the entry is not a keypad endpoint.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Mount {
	if entry == nil || (entry.HostName == "" && entry.Instance == "") {
		return nil
	}

	metadata := parseTXT(entry.Text)
	_, tagged := metadata[KeypadTXTKey]
	if !tagged && !mountPattern.MatchString(entry.Instance) && !mountPattern.MatchString(entry.HostName) {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	// The HTTP port a mount advertises serves its web UI, not the keypad.
	port := DefaultPort
	if v := metadata[KeypadTXTKey]; v != "" {
		if p, err := parsePort(v); err == nil {
			port = p
		}
	}

	return &Mount{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func (m *Mount) matches(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(strings.ToLower(m.Instance), name) ||
		strings.Contains(strings.ToLower(m.Hostname), name)
}

// parseTXT splits "key=value" records; a bare key maps to ""
func parseTXT(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

func parsePort(v string) (int, error) {
	p, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", p)
	}
	return p, nil
}

// Advertise registers a keypad endpoint under ServiceType so scanners can
// find it. The caller shuts the returned server down.
func Advertise(instance string, port int, text ...string) (*zeroconf.Server, error) {
	txt := append([]string{fmt.Sprintf("%s=%d", KeypadTXTKey, port)}, text...)
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return server, nil
}

// ScanForMounts is a convenience function to scan with a custom timeout
func ScanForMounts(ctx context.Context, timeout time.Duration) ([]*Mount, error) {
	scanner := NewScanner()
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	return scanner.ScanForMounts(ctx)
}
