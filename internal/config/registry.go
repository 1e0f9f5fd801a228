package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "virtkeypad"
	configFile = "config.yaml"

	// ConfigPathEnvVar overrides the configuration file location
	ConfigPathEnvVar = "VIRTKEYPAD_CONFIG"

	// registryVersion is the only file layout this build reads
	registryVersion = 1
)

var (
	// process-wide registry, read on first use
	shared     *Registry
	sharedErr  error
	sharedOnce sync.Once

	// serializes writers within this process
	writeMu sync.Mutex
)

// GetConfigDir returns the directory holding the configuration file:
//   - Linux: $XDG_CONFIG_HOME/virtkeypad, else ~/.config/virtkeypad
//   - macOS: ~/.config/virtkeypad
//   - Windows: %LOCALAPPDATA%\virtkeypad
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("cannot locate the config directory: LOCALAPPDATA and USERPROFILE are unset")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil
	}

	if runtime.GOOS != "darwin" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate the home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the configuration file path. VIRTKEYPAD_CONFIG wins
// over the per-OS default.
func GetConfigPath() (string, error) {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the process-wide registry, reading it on first call.
// A missing file yields the defaults.
func LoadRegistry() (*Registry, error) {
	sharedOnce.Do(func() {
		path, err := GetConfigPath()
		if err != nil {
			sharedErr = fmt.Errorf("failed to get config path: %w", err)
			return
		}
		shared, sharedErr = LoadRegistryFrom(path)
	})
	return shared, sharedErr
}

// ReloadRegistry drops the process-wide registry and reads it again, picking
// up edits made by another process.
func ReloadRegistry() (*Registry, error) {
	writeMu.Lock()
	sharedOnce = sync.Once{}
	shared, sharedErr = nil, nil
	writeMu.Unlock()
	return LoadRegistry()
}

// LoadRegistryFrom reads and validates the registry at path. A missing file
// yields a new default registry.
func LoadRegistryFrom(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if r.Version != registryVersion {
		return nil, fmt.Errorf("unsupported config version %d in %s (this build reads %d)",
			r.Version, path, registryVersion)
	}

	if r.Mounts == nil {
		r.Mounts = make(map[string]*Mount)
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	} else {
		r.Preferences.fillDefaults()
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &r, nil
}

// Validate reports the first mount or preference that cannot be used
func (r *Registry) Validate() error {
	for _, name := range r.MountNames() {
		m := r.Mounts[name]
		if m == nil || strings.TrimSpace(m.Host) == "" {
			return fmt.Errorf("mount %q has no host", name)
		}
		if m.Port < 0 || m.Port > 65535 {
			return fmt.Errorf("mount %q has invalid port %d", name, m.Port)
		}
	}

	p := r.Preferences
	if p == nil {
		return nil
	}
	if p.DefaultMount != "" && r.Mounts[p.DefaultMount] == nil {
		return fmt.Errorf("default mount %q is not defined", p.DefaultMount)
	}
	switch strings.ToLower(p.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", p.LogLevel)
	}
	return nil
}

// Save writes the registry to GetConfigPath
func (r *Registry) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return r.SaveTo(path)
}

// SaveTo writes the registry to path through a temporary file and a rename,
// so a crash never leaves a half-written config behind.
func (r *Registry) SaveTo(path string) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	body, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# virtkeypad configuration file\n")
	b.WriteString("# Named mounts and client preferences.\n#\n")
	b.WriteString("# Location: " + path + "\n\n")
	b.Write(body)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
