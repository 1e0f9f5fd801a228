// Package config manages the user configuration for the virtual keypad tools.
//
// A YAML file stores named mounts (host, port, where they came from and when
// they were last seen) and client preferences: default mount, reconnect
// delay, receive buffer size, log level, capture directory, metrics address
// and discovery timeout. Command-line flags override the file.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/virtkeypad/config.yaml or $HOME/.config/virtkeypad/config.yaml
//   - macOS: $HOME/.config/virtkeypad/config.yaml
//   - Windows: %LOCALAPPDATA%\virtkeypad\config.yaml
//
// VIRTKEYPAD_CONFIG overrides the location.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := registry.AddMount("observatory", "192.168.2.15", 0); err != nil {
//	    log.Fatal(err)
//	}
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
//	mount, err := registry.ResolveMount("observatory")
//	// mount.URL() == "ws://192.168.2.15:8000/"
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are serialized by a mutex and are atomic (temp file + rename).
package config
