package metrics

import (
	"net/http"

	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "virtkeypad").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics, e.g. the mount name.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: a fresh registry, so several collectors can coexist in tests.
	Registry *prometheus.Registry
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// states lists every value the connection_state gauge can take
var states = []string{"idle", "connecting", "open", "closed"}

// Collector holds the keypad link metrics. Its methods are safe for
// concurrent use.
type Collector struct {
	registry *prometheus.Registry

	bytesTotal      *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	framesTotal     *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	heartbeatsTotal prometheus.Counter
	reconnectsTotal prometheus.Counter
	errorsTotal     *prometheus.CounterVec
	connectionState *prometheus.GaugeVec
}

// New registers the collector's metrics.
//
// Metrics collected:
//   - virtkeypad_bytes_total: bytes by direction (received, sent)
//   - virtkeypad_messages_total: WebSocket messages by direction
//   - virtkeypad_frames_total: frames by result (valid, checksum_mismatch, overlong)
//   - virtkeypad_commands_total: display commands by outcome
//     (dispatched, unknown, decode_error, ignored)
//   - virtkeypad_heartbeats_total: heartbeat frames
//   - virtkeypad_reconnects_total: reconnect attempts
//   - virtkeypad_errors_total: transport errors by kind
//   - virtkeypad_connection_state: 1 for the current state, 0 otherwise
func New(opts ...Option) *Collector {
	config := Config{Namespace: "virtkeypad"}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)
	c := &Collector{
		registry: config.Registry,

		bytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bytes_total",
			Help:        "Bytes carried over the keypad WebSocket",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),

		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_total",
			Help:        "WebSocket messages carried over the keypad link",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),

		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_total",
			Help:        "Inbound frames by validation result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commands_total",
			Help:        "Display commands by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		heartbeatsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "heartbeats_total",
			Help:        "Heartbeat frames received",
			ConstLabels: config.ConstLabels,
		}),

		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Reconnect attempts after the link closed",
			ConstLabels: config.ConstLabels,
		}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Transport errors by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connection_state",
			Help:        "Current connection state (1 for the active state)",
			ConstLabels: config.ConstLabels,
		}, []string{"state"}),
	}

	c.ObserveState("idle")
	return c
}

// Registry returns the registry the metrics live in
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveBytes records one WebSocket message of n bytes
func (c *Collector) ObserveBytes(direction string, n int) {
	c.messagesTotal.WithLabelValues(direction).Inc()
	c.bytesTotal.WithLabelValues(direction).Add(float64(n))
}

// ObserveDispatch adds a dispatcher stats delta
func (c *Collector) ObserveDispatch(d protocol.Stats) {
	addIf(c.framesTotal.WithLabelValues("valid"), d.Frames)
	addIf(c.framesTotal.WithLabelValues("checksum_mismatch"), d.ChecksumDrops)
	addIf(c.framesTotal.WithLabelValues("overlong"), d.Overlong)
	addIf(c.commandsTotal.WithLabelValues("dispatched"), d.Dispatched)
	addIf(c.commandsTotal.WithLabelValues("unknown"), d.Unknown)
	addIf(c.commandsTotal.WithLabelValues("decode_error"), d.DecodeErrors)
	addIf(c.commandsTotal.WithLabelValues("ignored"), d.Ignored)
	addIf(c.heartbeatsTotal, d.Heartbeats)
}

// ObserveReconnect counts one reconnect attempt
func (c *Collector) ObserveReconnect() {
	c.reconnectsTotal.Inc()
}

// ObserveState marks state as the current connection state
func (c *Collector) ObserveState(state string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		c.connectionState.WithLabelValues(s).Set(v)
	}
}

// ObserveError counts one transport error of the given kind
func (c *Collector) ObserveError(kind string) {
	c.errorsTotal.WithLabelValues(kind).Inc()
}

func addIf(c prometheus.Counter, n uint64) {
	if n > 0 {
		c.Add(float64(n))
	}
}
