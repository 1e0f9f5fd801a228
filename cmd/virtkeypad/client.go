package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/muurk/virtkeypad/internal/capture"
	"github.com/muurk/virtkeypad/internal/config"
	"github.com/muurk/virtkeypad/internal/discovery"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/metrics"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/transport"
	"github.com/muurk/virtkeypad/internal/version"
)

// Connection flags shared by every command that talks to a mount
var (
	mountTarget    string
	configPath     string
	logLevel       string
	logFile        string
	captureDir     string
	metricsAddr    string
	reconnectDelay time.Duration
	discoverMount  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&mountTarget, "mount", "m", "", "Mount name, host or host:port (default: configured default mount)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $"+config.ConfigPathEnvVar+" or ~/.config/virtkeypad/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); empty uses the config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture-dir", "", "Record every message to a JSONL capture in this directory")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	rootCmd.PersistentFlags().DurationVar(&reconnectDelay, "reconnect-delay", 0, "Wait between a dropped link and the next attempt (default from config, 3s)")
	rootCmd.PersistentFlags().BoolVar(&discoverMount, "discover", false, "Find the mount by name over mDNS instead of the registry")
}

// loadRegistry reads --config when given, else the global registry
func loadRegistry() (*config.Registry, error) {
	if configPath != "" {
		return config.LoadRegistryFrom(configPath)
	}
	return config.LoadRegistry()
}

// saveRegistry writes back to wherever loadRegistry read from
func saveRegistry(r *config.Registry) error {
	if configPath != "" {
		return r.SaveTo(configPath)
	}
	return r.Save()
}

// initLogging applies --log-level over the config file. Full-screen commands
// pass fullScreen so that logs go to a file rather than the terminal.
func initLogging(prefs *config.Preferences, fullScreen bool) error {
	level := logLevel
	if level == "" {
		level = prefs.LogLevel
	}

	path := logFile
	if path == "" && fullScreen && level != "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "virtkeypad.log")
	}
	return logging.InitializeToFile(level, path)
}

// client is a transport to one mount plus its optional metrics endpoint and
// capture file
type client struct {
	name      string // registry name, empty for an ad hoc host
	mount     *config.Mount
	registry  *config.Registry
	transport *transport.Transport
	collector *metrics.Collector
	recorder  *capture.Recorder
	metrics   *http.Server
	opened    atomic.Bool
}

// hooks receive what the transport reports. Any of them may be nil.
type hooks struct {
	OnCommand protocol.CommandHandler
	OnState   func(transport.State)
	OnError   func(error)
}

// newClient resolves target against the registry and builds its transport
func newClient(registry *config.Registry, target string, h hooks) (*client, error) {
	c := &client{registry: registry}
	if err := c.resolve(target); err != nil {
		return nil, err
	}
	mount := c.mount

	prefs := registry.Preferences
	delay := reconnectDelay
	if delay <= 0 {
		delay = prefs.ReconnectDelay()
	}

	label := c.name
	if label == "" {
		label = mount.Address()
	}
	c.collector = metrics.New(metrics.WithConstLabels(prometheus.Labels{"mount": label}))

	all := []transport.Option{
		transport.WithDialer(transport.WebSocketDialer{
			Header: http.Header{"User-Agent": []string{version.UserAgent()}},
		}),
		transport.WithMetrics(c.collector),
		transport.WithCommandHandler(h.OnCommand),
		transport.WithStateHandler(c.trackState(h.OnState)),
		transport.WithErrorHandler(h.OnError),
	}

	dir := captureDir
	if dir == "" {
		dir = prefs.CaptureDir
	}
	if dir != "" {
		var err error
		c.recorder, err = capture.NewRecorder(dir, mount.Address())
		if err != nil {
			return nil, fmt.Errorf("failed to open capture: %w", err)
		}
		all = append(all, transport.WithRecorder(c.recorder))
	}

	addr := metricsAddr
	if addr == "" {
		addr = prefs.MetricsAddr
	}
	if addr != "" {
		c.serveMetrics(addr)
	}

	c.transport = transport.New(transport.Config{
		URL:             mount.URL(),
		ReconnectDelay:  delay,
		ReceiveCapacity: prefs.ReceiveBufferSize,
	}, all...)
	return c, nil
}

// resolve finds the mount for target, over mDNS when --discover is set
func (c *client) resolve(target string) error {
	if !discoverMount {
		mount, err := c.registry.ResolveMount(target)
		if err != nil {
			return err
		}
		c.mount = mount
		switch {
		case target == "":
			c.name = c.registry.Preferences.DefaultMount
		case c.registry.GetMount(target) != nil:
			c.name = target
		}
		return nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(c.registry.Preferences.DiscoverTimeout) * time.Second
	found, err := scanner.WaitForMount(context.Background(), target)
	if err != nil {
		return err
	}
	logging.Info("Discovered mount",
		zap.String("instance", found.Instance),
		zap.String("addr", found.Address()),
	)
	c.name = found.Instance
	c.mount = &config.Mount{Host: found.IP, Port: found.Port, Source: "mdns"}
	return nil
}

// trackState notes the first successful open, then passes s on to next
func (c *client) trackState(next func(transport.State)) func(transport.State) {
	return func(s transport.State) {
		if s == transport.StateOpen {
			c.opened.Store(true)
		}
		if next != nil {
			next(s)
		}
	}
}

func (c *client) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.collector.Handler())
	c.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info("Serving metrics", zap.String("addr", addr))
		if err := c.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

// Close stops the transport, the metrics server and the capture, and records
// the mount as seen when the link ever opened.
func (c *client) Close() error {
	err := c.transport.Close()

	if c.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = multierr.Append(err, c.metrics.Shutdown(ctx))
		cancel()
	}
	if c.recorder != nil {
		logging.Info("Capture closed",
			zap.String("filename", c.recorder.Path()),
			zap.Int("messages", c.recorder.Count()),
		)
		err = multierr.Append(err, c.recorder.Close())
	}

	if c.name != "" && c.opened.Load() {
		source := c.mount.Source
		if source == "" {
			source = "manual"
		}
		c.registry.UpdateMountLastSeen(c.name, c.mount.Host, c.mount.Port, source)
		if serr := saveRegistry(c.registry); serr != nil {
			logging.Warn("Failed to record last seen", zap.String("mount", c.name), zap.Error(serr))
		}
	}
	return err
}
