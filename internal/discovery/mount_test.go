package discovery

import (
	"testing"
)

func TestMount_String(t *testing.T) {
	m := &Mount{
		Instance: "GM2000 HPS",
		Hostname: "gm2000.local.",
		IP:       "192.168.2.15",
		Port:     8000,
	}

	expected := `Mount "GM2000 HPS" (gm2000.local.) at 192.168.2.15:8000`
	if m.String() != expected {
		t.Errorf("Mount.String() = %v, want %v", m.String(), expected)
	}
}

func TestMount_URL(t *testing.T) {
	tests := []struct {
		name     string
		mount    *Mount
		expected string
	}{
		{
			name:     "default keypad port",
			mount:    &Mount{IP: "192.168.2.15", Port: 8000},
			expected: "ws://192.168.2.15:8000/",
		},
		{
			name:     "custom port",
			mount:    &Mount{IP: "10.0.0.5", Port: 8080},
			expected: "ws://10.0.0.5:8080/",
		},
		{
			name:     "ipv6",
			mount:    &Mount{IP: "fe80::1", Port: 8000},
			expected: "ws://[fe80::1]:8000/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mount.URL(); got != tt.expected {
				t.Errorf("Mount.URL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMount_GetMetadata(t *testing.T) {
	m := &Mount{Metadata: map[string]string{"keypad": "8000"}}
	if got := m.GetMetadata("keypad"); got != "8000" {
		t.Errorf("GetMetadata(keypad) = %q, want 8000", got)
	}
	if got := m.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}
	if got := (&Mount{}).GetMetadata("keypad"); got != "" {
		t.Errorf("GetMetadata on nil metadata = %q, want empty", got)
	}
}
