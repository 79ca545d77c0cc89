package candidate

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quicaccept/quicaccept/internal/protocol"
)

// datagramJob is one inbound datagram waiting to be applied to a candidate.
type datagramJob struct {
	dcid       protocol.ConnectionID
	data       []byte
	remoteAddr string
}

// queueIdleTimeout is how long a per-key queue sits empty before its worker
// goroutine retires and frees its slot in the bounded worker pool. Without
// this, a DCID that is promoted, dropped, or simply never heard from again
// would pin a goroutine (and an errgroup.SetLimit slot) for the lifetime of
// the Dispatcher, and once every slot is pinned that way, submit's call to
// d.group.Go for the next new key blocks forever, wedging that Submit
// call. A var, not a
// const, so tests can shrink it instead of waiting out the real timeout.
var queueIdleTimeout = 30 * time.Second

// Dispatcher runs a bounded pool of workers over inbound datagrams while
// guaranteeing that datagrams for the same DCID are applied to their
// candidate in arrival order (spec.md §5's ordering guarantee), by routing
// every datagram for a given key through a single-consumer per-key queue
// rather than locking the candidate across workers.
type Dispatcher struct {
	registry *Registry

	mu     sync.Mutex
	queues map[string]chan datagramJob

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	// seq is a monotonic counter stamped onto every job's DatagramMeta, so
	// logs/metrics can correlate a specific datagram across queues even
	// though each key's queue only orders datagrams relative to itself.
	seq atomic.Uint64
}

// NewDispatcher creates a Dispatcher backed by the given registry. workers
// bounds the number of concurrently running per-key queues; if zero, it
// defaults to GOMAXPROCS.
func NewDispatcher(registry *Registry, workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &Dispatcher{
		registry: registry,
		queues:   make(map[string]chan datagramJob),
		group:    group,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit enqueues one inbound datagram for processing against the candidate
// or connection keyed by dcid. It blocks while that key's queue is full, and
// for a key with no running queue it also waits for a free worker slot.
func (d *Dispatcher) Submit(dcid protocol.ConnectionID, data, remoteAddr []byte) {
	d.submit(datagramJob{dcid: dcid, data: data, remoteAddr: string(remoteAddr)})
}

// SubmitDatagram is the string-address convenience form of Submit.
func (d *Dispatcher) SubmitDatagram(dcid protocol.ConnectionID, data []byte, remoteAddr string) {
	d.submit(datagramJob{dcid: dcid, data: data, remoteAddr: remoteAddr})
}

func (d *Dispatcher) submit(job datagramJob) {
	key := string(job.dcid)

	d.mu.Lock()
	queue, ok := d.queues[key]
	if !ok {
		queue = make(chan datagramJob, 64)
		d.queues[key] = queue
	}
	// The send happens inside the same critical section as the map lookup,
	// so it can never race with runQueue's idle-retirement check below:
	// that check and this send are mutually exclusive under d.mu, so
	// retirement can never observe an empty queue the instant after this
	// job lands in it.
	select {
	case queue <- job:
	case <-d.ctx.Done():
	}
	d.mu.Unlock()

	if !ok {
		// Spawned after releasing d.mu: d.group.Go blocks here if every
		// worker slot is taken, and it must not do that while holding the
		// lock other keys' Submit calls need.
		d.group.Go(func() error {
			return d.runQueue(key, job.dcid, queue)
		})
	}
}

// runQueue drains one key's queue in order, applying each datagram to the
// candidate (or connection, once promoted) registered under dcid. Each
// worker owns exactly one key at a time, which is what makes per-key
// ordering free: no lock is needed around the candidate itself. The worker
// retires itself, freeing its pool slot, once its queue has sat empty for
// queueIdleTimeout; submit transparently spins up a fresh queue and worker
// if another datagram for the same key shows up afterward.
func (d *Dispatcher) runQueue(key string, dcid protocol.ConnectionID, queue chan datagramJob) error {
	idle := time.NewTimer(queueIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case job, ok := <-queue:
			if !ok {
				return nil
			}
			d.apply(dcid, job)
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(queueIdleTimeout)
		case <-idle.C:
			d.mu.Lock()
			if len(queue) > 0 {
				// A job landed in the buffer between the timer firing and
				// this goroutine acquiring d.mu; it is still ours to drain.
				d.mu.Unlock()
				idle.Reset(queueIdleTimeout)
				continue
			}
			delete(d.queues, key)
			d.mu.Unlock()
			return nil
		case <-d.ctx.Done():
			return nil
		}
	}
}

func (d *Dispatcher) apply(dcid protocol.ConnectionID, job datagramJob) {
	c, conn, ok := d.registry.Lookup(dcid)
	if !ok {
		c, _, _ = d.registry.GetOrCreate(dcid)
	}
	if conn != nil {
		// Post-promotion datagrams are out of this module's scope (spec.md's
		// Non-goals exclude post-handshake connection state); the connection
		// reference exists purely so the registry can stop reconstructing a
		// candidate for this DCID.
		return
	}
	meta := DatagramMeta{ReceivedAt: time.Now(), SeqNum: d.seq.Add(1)}
	c.HandleDatagram(meta, job.data, job.remoteAddr)
}

// Close stops accepting new work and waits for all in-flight per-key queues
// to drain.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	err := d.group.Wait()
	d.cancel()
	return err
}
