package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "virtkeypad") {
		t.Errorf("GetConfigDir() = %v, should contain 'virtkeypad'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != "/tmp/xdg-test/virtkeypad" {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg-test/virtkeypad", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}

	t.Setenv(ConfigPathEnvVar, "/etc/keypad.yaml")
	if configPath, _ := GetConfigPath(); configPath != "/etc/keypad.yaml" {
		t.Errorf("GetConfigPath() = %v, want the env override", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Mounts == nil {
		t.Error("NewRegistry().Mounts should not be nil")
	}
	if reg.Preferences.ReconnectDelay() != 3*time.Second {
		t.Errorf("ReconnectDelay() = %v, want 3s", reg.Preferences.ReconnectDelay())
	}
	if reg.Preferences.ReceiveBufferSize != 4*1024*1024 {
		t.Errorf("ReceiveBufferSize = %v, want 4 MiB", reg.Preferences.ReceiveBufferSize)
	}
}

func TestRegistryAddMount(t *testing.T) {
	tests := []struct {
		name    string
		mount   string
		host    string
		port    int
		wantURL string
		wantErr bool
	}{
		{"default port", "obs", "192.168.2.15", 0, "ws://192.168.2.15:8000/", false},
		{"explicit port", "lab", "mount.local", 8080, "ws://mount.local:8080/", false},
		{"ipv6", "v6", "fe80::1", 8000, "ws://[fe80::1]:8000/", false},
		{"missing name", "", "192.168.2.15", 0, "", true},
		{"missing host", "obs", " ", 0, "", true},
		{"bad port", "obs", "192.168.2.15", 70000, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			m, err := reg.AddMount(tt.mount, tt.host, tt.port)
			if tt.wantErr {
				if err == nil {
					t.Errorf("AddMount() = %+v, want error", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddMount() error = %v", err)
			}
			if got := m.URL(); got != tt.wantURL {
				t.Errorf("URL() = %q, want %q", got, tt.wantURL)
			}
			if reg.GetMount(tt.mount) != m {
				t.Error("GetMount() should return the added mount")
			}
		})
	}
}

func TestRegistryRemoveMount(t *testing.T) {
	reg := NewRegistry()
	_, _ = reg.AddMount("obs", "192.168.2.15", 0)
	reg.Preferences.DefaultMount = "obs"

	if !reg.RemoveMount("obs") {
		t.Error("RemoveMount() = false for an existing mount")
	}
	if reg.RemoveMount("obs") {
		t.Error("RemoveMount() = true for a missing mount")
	}
	if reg.Preferences.DefaultMount != "" {
		t.Error("removing the default mount should clear the preference")
	}
}

func TestRegistryUpdateMountLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	m := reg.UpdateMountLastSeen("gm2000", "192.168.2.20", 8000, "mdns")
	if m.LastSeen.Before(before) {
		t.Error("LastSeen should be updated")
	}
	if m.Source != "mdns" || m.Host != "192.168.2.20" {
		t.Errorf("mount = %+v", m)
	}

	_, _ = reg.AddMount("obs", "10.0.0.1", 0)
	m = reg.UpdateMountLastSeen("obs", "10.0.0.2", 0, "mdns")
	if m.Source != "manual" || m.Host != "10.0.0.2" || m.Port != DefaultPort {
		t.Errorf("existing mount should keep its source and port: %+v", m)
	}
}

func TestRegistryResolveMount(t *testing.T) {
	reg := NewRegistry()
	_, _ = reg.AddMount("obs", "192.168.2.15", 8000)

	tests := []struct {
		target  string
		wantURL string
		wantErr bool
	}{
		{"obs", "ws://192.168.2.15:8000/", false},
		{"10.0.0.7", "ws://10.0.0.7:8000/", false},
		{"10.0.0.7:9000", "ws://10.0.0.7:9000/", false},
		{"10.0.0.7:http", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		m, err := reg.ResolveMount(tt.target)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveMount(%q) = %+v, want error", tt.target, m)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveMount(%q) error = %v", tt.target, err)
			continue
		}
		if m.URL() != tt.wantURL {
			t.Errorf("ResolveMount(%q).URL() = %q, want %q", tt.target, m.URL(), tt.wantURL)
		}
	}

	reg.Preferences.DefaultMount = "obs"
	if m, err := reg.ResolveMount(""); err != nil || m.Host != "192.168.2.15" {
		t.Errorf("ResolveMount(\"\") = %+v, %v, want the default mount", m, err)
	}
	reg.Preferences.DefaultMount = "gone"
	if _, err := reg.ResolveMount(""); err == nil {
		t.Error("a dangling default mount should be an error")
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	_, _ = reg.AddMount("obs", "192.168.2.15", 0)
	reg.Preferences.DefaultMount = "obs"
	reg.Preferences.CaptureDir = "/var/tmp/captures"

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# virtkeypad configuration file") {
		t.Error("saved file should start with the header comment")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if loaded.GetMount("obs") == nil || loaded.GetMount("obs").Host != "192.168.2.15" {
		t.Errorf("loaded mounts = %+v", loaded.Mounts)
	}
	if loaded.Preferences.DefaultMount != "obs" || loaded.Preferences.CaptureDir != "/var/tmp/captures" {
		t.Errorf("loaded preferences = %+v", loaded.Preferences)
	}
}

func TestLoadRegistryFrom_Missing(t *testing.T) {
	reg, err := LoadRegistryFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Version != 1 || reg.Preferences == nil {
		t.Errorf("missing file should give defaults, got %+v", reg)
	}
}

func TestLoadRegistryFrom_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\nmounts:\n  obs:\n    host: 192.168.2.15\npreferences:\n  log_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	p := reg.Preferences
	if p.LogLevel != "debug" || p.ReconnectDelayMs != 3000 || p.DiscoverTimeout != 5 {
		t.Errorf("preferences = %+v", p)
	}
	if got := reg.GetMount("obs").URL(); got != "ws://192.168.2.15:8000/" {
		t.Errorf("URL() = %q", got)
	}
}

func TestLoadRegistryFrom_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad version":     "version: 2\n",
		"bad yaml":        "version: [1\n",
		"mount host":      "version: 1\nmounts:\n  obs:\n    port: 8000\n",
		"mount port":      "version: 1\nmounts:\n  obs:\n    host: obs.local\n    port: 70000\n",
		"default missing": "version: 1\npreferences:\n  default_mount: obs\n",
		"log level":       "version: 1\npreferences:\n  log_level: loud\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRegistryFrom(path); err == nil {
				t.Error("LoadRegistryFrom() should fail")
			}
		})
	}
}

func TestLoadRegistry_Global(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(ConfigPathEnvVar, path)

	reg := NewRegistry()
	_, _ = reg.AddMount("obs", "192.168.2.15", 0)
	if err := reg.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	if loaded.GetMount("obs") == nil {
		t.Error("global registry should read VIRTKEYPAD_CONFIG")
	}
	again, _ := LoadRegistry()
	if again != loaded {
		t.Error("LoadRegistry() should return the cached instance")
	}
}

func BenchmarkResolveMount(b *testing.B) {
	reg := NewRegistry()
	_, _ = reg.AddMount("obs", "192.168.2.15", 0)
	for i := 0; i < b.N; i++ {
		_, _ = reg.ResolveMount("10.0.0.7:8000")
	}
}
