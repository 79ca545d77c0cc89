// Package config holds the admission pipeline's tunables: the pieces of
// spec.md's data model that have meaningful defaults, plus the handful of
// knobs the out-of-scope socket/CLI layer needs to configure this module
// with (workers, eviction sweep interval, metrics registerer). Several
// fields are held here without any code in this module reading them; each
// field's comment says so.
package config

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quicaccept/quicaccept/internal/protocol"
)

// Default values for transport-parameter fields, per
// spec.md §3's table of fields whose default is semantically meaningful.
const (
	DefaultAckDelayExponent        = 3
	DefaultMaxAckDelay             = 25 * time.Millisecond
	DefaultActiveConnectionIDLimit = 2
	DefaultMaxUDPPayloadSize       = 65527
	DefaultMaxDatagramFrameSize    = 0
)

// Config collects the pipeline's tunables. The zero value is not meant to be
// used directly; call New to get one populated with defaults, then apply
// Options.
type Config struct {
	// Workers bounds the dispatcher's concurrent per-candidate queues.
	// Zero means GOMAXPROCS.
	Workers int

	// IdleEvictionTimeout holds a candidate idle-eviction timeout
	// (spec.md §5). The registry does not read it; it evicts idle
	// candidates after its own fixed 3-second timeout.
	IdleEvictionTimeout time.Duration

	// EvictionSweepInterval is how often the registry sweeps for idle
	// candidates.
	EvictionSweepInterval time.Duration

	// AckDelayExponent holds this server's ACK delay exponent (spec.md
	// §4.6). ACK encoding does not read it; it always uses
	// protocol.DefaultAckDelayExponent.
	AckDelayExponent uint8

	// MaxAckDelay, ActiveConnectionIDLimit, MaxUDPPayloadSize,
	// MaxDatagramFrameSize hold transport-parameter values. Nothing in this
	// module reads them; no transport parameters are built from Config.
	MaxAckDelay             time.Duration
	ActiveConnectionIDLimit uint64
	MaxUDPPayloadSize       uint64
	MaxDatagramFrameSize    uint64

	// Version holds a QUIC version. Header parsing does not read it; it
	// accepts Initial packets for every version in protocol.SupportedVersions.
	Version protocol.Version

	// Registerer receives the candidate package's Prometheus metrics. If
	// nil, metrics are not registered.
	Registerer prometheus.Registerer
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithWorkers overrides the dispatcher's worker count.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithIdleEvictionTimeout overrides the IdleEvictionTimeout field.
func WithIdleEvictionTimeout(d time.Duration) Option {
	return func(c *Config) { c.IdleEvictionTimeout = d }
}

// WithVersion overrides the Version field.
func WithVersion(v protocol.Version) Option {
	return func(c *Config) { c.Version = v }
}

// WithRegisterer sets the Prometheus registerer metrics are published to.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = r }
}

// New returns a Config populated with spec.md §3's defaults, with any
// Options applied on top.
func New(opts ...Option) *Config {
	c := &Config{
		Workers:                 0,
		IdleEvictionTimeout:     3 * time.Second,
		EvictionSweepInterval:   time.Second,
		AckDelayExponent:        DefaultAckDelayExponent,
		MaxAckDelay:             DefaultMaxAckDelay,
		ActiveConnectionIDLimit: DefaultActiveConnectionIDLimit,
		MaxUDPPayloadSize:       DefaultMaxUDPPayloadSize,
		MaxDatagramFrameSize:    DefaultMaxDatagramFrameSize,
		Version:                 protocol.Version1,
		Registerer:              prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
