package candidate

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/slogutil"
)

// idleEvictionTimeout bounds how long a candidate may sit in StateBuffering
// before it is evicted, per spec.md §5's "3 x initial RTT estimate"
// suggestion. There is no RTT sample available this early in the handshake,
// so a fixed conservative duration stands in for it (see SPEC_FULL.md's
// notes on this open question).
const idleEvictionTimeout = 3 * time.Second

// entry is either an in-progress candidate or (after promotion) a live
// connection, keyed by the same DCID.
type entry struct {
	candidate  *Candidate
	connection Connection
}

// Registry maps destination connection IDs to their Candidate (pre-promotion)
// or Connection (post-promotion), with exclusive insertion and atomic
// promotion-time replacement (spec.md §5's "Shared-resource policy").
type Registry struct {
	factory ConnectionFactory
	log     *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry. factory is handed to every
// candidate it creates, to construct connections on promotion.
func NewRegistry(factory ConnectionFactory) *Registry {
	return &Registry{
		factory: factory,
		log:     slogutil.Component(slogutil.New(os.Stderr), "candidate"),
		entries: make(map[string]*entry),
	}
}

// Lookup returns the candidate or connection currently registered under
// dcid, if any. Exactly one of the two return values is non-nil.
func (r *Registry) Lookup(dcid protocol.ConnectionID) (*Candidate, Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[string(dcid)]
	if !ok {
		return nil, nil, false
	}
	return e.candidate, e.connection, true
}

// GetOrCreate returns the existing candidate for dcid, or creates and
// inserts a new one if none exists yet. Insertion is exclusive: only the
// first caller to race on a given dcid creates the candidate.
func (r *Registry) GetOrCreate(dcid protocol.ConnectionID) (c *Candidate, conn Connection, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[string(dcid)]; ok {
		return e.candidate, e.connection, false
	}
	c = NewCandidate(dcid, &promotingFactory{registry: r, dcid: dcid, inner: r.factory})
	r.entries[string(dcid)] = &entry{candidate: c}
	return c, nil, true
}

// promote replaces a candidate's registry entry with its promoted
// connection, atomically with respect to concurrent lookups.
func (r *Registry) promote(dcid protocol.ConnectionID, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[string(dcid)] = &entry{connection: conn}
}

// remove drops dcid from the registry entirely (idle eviction).
func (r *Registry) remove(dcid protocol.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, string(dcid))
}

// EvictIdle sweeps every still-buffering candidate and removes it if its
// last activity predates the idle eviction timeout, per spec.md §5's
// cancellation-and-timeouts rule ("eviction is silent; no reply is sent").
func (r *Registry) EvictIdle(now time.Time) {
	r.mu.Lock()
	var stale []string
	for key, e := range r.entries {
		if e.candidate == nil {
			continue
		}
		if e.candidate.State() != StateBuffering && e.candidate.State() != StateEmpty {
			continue
		}
		if now.Sub(e.candidate.LastActivity()) > idleEvictionTimeout {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		recordDropped(ipVersionOf(r.entries[key].candidate.remoteAddr), DropReasonIdleTimeout)
		r.log.Debug("evicting idle candidate", "dcid", []byte(key))
		delete(r.entries, key)
	}
	r.mu.Unlock()
}

// RunEvictionSweep starts a background goroutine that calls EvictIdle on the
// given interval until stop is closed.
func (r *Registry) RunEvictionSweep(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				r.EvictIdle(t)
			}
		}
	}()
}

// promotingFactory wraps the registry's real ConnectionFactory so that a
// candidate's Promote call also performs the atomic DCID-key replacement in
// the registry, without the candidate itself needing a reference back to it.
type promotingFactory struct {
	registry *Registry
	dcid     protocol.ConnectionID
	inner    ConnectionFactory
}

func (f *promotingFactory) NewConnection(remoteAddr string, scid, dcid protocol.ConnectionID) Connection {
	inner := f.inner.NewConnection(remoteAddr, scid, dcid)
	return &registeringConnection{inner: inner, registry: f.registry, dcid: f.dcid}
}

func (f *promotingFactory) NewTLSEngine(perspective protocol.Perspective) TLSEngine {
	return f.inner.NewTLSEngine(perspective)
}

// registeringConnection decorates a Connection so that the first call to
// Promote also installs it into the registry under its candidate's DCID.
type registeringConnection struct {
	inner    Connection
	registry *Registry
	dcid     protocol.ConnectionID
}

func (c *registeringConnection) Promote(initialPackets []RetainedPacket, trailingBytes []byte, clientHello []byte, remoteAddr string, scid, dcid protocol.ConnectionID) {
	c.inner.Promote(initialPackets, trailingBytes, clientHello, remoteAddr, scid, dcid)
	c.registry.promote(c.dcid, c.inner)
}
