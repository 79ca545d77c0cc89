package candidate

import (
	"net"
	"sync"
	"time"

	"github.com/quicaccept/quicaccept/amplification"
	"github.com/quicaccept/quicaccept/internal/handshake"
	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/wire"
	"github.com/quicaccept/quicaccept/transportparameters"
)

// ipVersionOf returns "ipv4" or "ipv6" for a host:port address string, or ""
// if it can't be parsed (used only for metric labeling, never for control
// flow).
func ipVersionOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if ip.To4() != nil {
		return "ipv4"
	}
	return "ipv6"
}

// State is the lifecycle state of a Candidate (spec.md §4.5).
type State int

const (
	StateEmpty State = iota
	StateBuffering
	StatePromoted
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuffering:
		return "buffering"
	case StatePromoted:
		return "promoted"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// minimumInitialDatagramSize is RFC 9000 Section 14.1's padding floor for a
// client's first Initial datagram.
const minimumInitialDatagramSize = int(protocol.MinimumInitialDatagramSize)

// Candidate is the pre-connection state machine that owns one
// not-yet-established destination connection ID, accumulating CRYPTO bytes
// across datagrams until a full ClientHello is available or the candidate
// is dropped.
type Candidate struct {
	factory ConnectionFactory

	mu    sync.Mutex
	state State

	remoteAddr string
	version    protocol.Version
	scid       protocol.ConnectionID
	dcid       protocol.ConnectionID

	crypto                 cryptoAccumulator
	retained               []RetainedPacket
	seenPacketNumbers      map[protocol.PacketNumber]bool
	hasCryptoOnlyPacket    bool // at least one accepted packet carried CRYPTO with no disqualifying frame
	cumulativeValidatedLen int
	lastTrailingBytes      []byte
	tlsEngine              TLSEngine

	lastActivity time.Time

	// budget tracks this candidate's own anti-amplification limit (spec.md
	// §4.4/§5): 3x the bytes validated inbound before the peer's address is
	// confirmed. filter is the decorator that feeds every inbound datagram's
	// length into budget before the datagram reaches the state machine
	// proper, so accounting happens even for datagrams that later fail
	// packet-level validation.
	budget *amplification.Budget
	filter *amplification.Filter

	lastMeta DatagramMeta
}

// DatagramMeta carries out-of-band information about one inbound datagram:
// when it arrived and its position in the dispatcher's arrival sequence.
// Carried forward from Kwik's metadata-scoped parse entrypoint
// (parsePackets(datagramNumber, time, buffer, address)); useful for
// correlating logs and metrics with a specific datagram, independent of the
// wall-clock timestamp used for idle eviction.
type DatagramMeta struct {
	ReceivedAt time.Time
	SeqNum     uint64
}

// candidateSink adapts a *Candidate's own datagram-handling logic to the
// amplification.Sink interface so amplification.Filter can decorate it.
type candidateSink struct {
	c *Candidate
}

func (s candidateSink) ProcessDatagram(data []byte, remoteAddr string) {
	s.c.handleDatagram(data, remoteAddr)
}

// NewCandidate creates an Empty candidate for the given destination
// connection ID, ready to receive its first datagram.
func NewCandidate(dcid protocol.ConnectionID, factory ConnectionFactory) *Candidate {
	recordCreated()
	c := &Candidate{
		factory:           factory,
		state:             StateEmpty,
		dcid:              dcid,
		seenPacketNumbers: make(map[protocol.PacketNumber]bool),
		lastActivity:      time.Now(),
		budget:            amplification.NewBudget(),
	}
	c.filter = amplification.NewFilter(c.budget.AddValidatedBytes, candidateSink{c: c})
	return c
}

// Budget returns this candidate's anti-amplification budget, tracking the
// 3x-validated-bytes outbound cap (spec.md §4.4/§5).
func (c *Candidate) Budget() *amplification.Budget {
	return c.budget
}

// State returns the candidate's current lifecycle state.
func (c *Candidate) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastActivity returns the time of the last datagram this candidate
// accepted or attempted to process, for idle-eviction sweeps.
func (c *Candidate) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// OnDatagram passes one inbound UDP datagram through the anti-amplification
// filter and then runs Steps A-C of the candidate state machine on it. ACK
// frames in its Initial packets are decoded with the default ack delay
// exponent, since the peer's transport parameters are not known yet.
func (c *Candidate) OnDatagram(datagram []byte, remoteAddr string) {
	c.filter.ProcessDatagram(datagram, remoteAddr)
}

// HandleDatagram is the metadata-scoped counterpart to OnDatagram: the
// Dispatcher calls this instead so every processed datagram carries its
// arrival time and sequence number for logging/metrics correlation, without
// the candidate state machine itself needing to know where that metadata
// came from.
func (c *Candidate) HandleDatagram(meta DatagramMeta, datagram []byte, remoteAddr string) {
	c.mu.Lock()
	c.lastMeta = meta
	c.mu.Unlock()
	c.OnDatagram(datagram, remoteAddr)
}

// LastDatagramMeta returns the metadata of the most recent datagram handed
// to HandleDatagram, the zero value if none yet.
func (c *Candidate) LastDatagramMeta() DatagramMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMeta
}

// handleDatagram is the state machine proper; it runs behind the
// anti-amplification filter so every inbound byte is accounted for before
// Step A's validation even begins.
func (c *Candidate) handleDatagram(datagram []byte, remoteAddr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePromoted || c.state == StateDropped {
		return
	}
	c.lastActivity = time.Now()
	recordDatagramReceived(ipVersionOf(remoteAddr))

	// Step A: datagram-level gate.
	if c.state == StateEmpty {
		if len(datagram) < minimumInitialDatagramSize {
			c.state = StateDropped
			recordDropped(ipVersionOf(remoteAddr), DropReasonTooShort)
			return
		}
		c.remoteAddr = remoteAddr
		c.state = StateBuffering
	} else if c.remoteAddr != remoteAddr {
		// Subsequent datagram from a different address: ignore silently,
		// candidate keeps buffering from its bound address.
		return
	}

	c.cumulativeValidatedLen += len(datagram)

	// Step B: packet-level loop.
	rest := datagram
	var trailing []byte
	for len(rest) > 0 {
		if !wire.IsLongHeader(rest[0]) {
			trailing = rest
			break
		}
		hdr, packet, remainder, err := wire.ParseInitialHeader(rest)
		if err != nil {
			// Unreadable without keys the candidate lacks, or not an
			// Initial packet at all: stop, retain the remainder as
			// trailing bytes.
			trailing = rest
			break
		}

		if c.scid != nil && (!hdr.SrcConnectionID.Equal(c.scid) || hdr.Version != c.version) {
			// Reject this packet (mismatched SCID/version on a follow-up);
			// stop processing this datagram's remaining packets.
			break
		}

		unpacked, err := handshake.ParseInitial(packet, c.dcid, protocol.DefaultAckDelayExponent)
		if err != nil {
			// DECRYPT_FAILED / MALFORMED_HEADER / PROTOCOL_VIOLATION: drop
			// this packet silently and stop the loop for this datagram.
			break
		}

		if c.scid == nil {
			c.scid = hdr.SrcConnectionID
			c.version = hdr.Version
		}

		if c.seenPacketNumbers[unpacked.PacketNumber] {
			rest = remainder
			continue
		}

		ok := c.applyFrames(unpacked.Frames, unpacked.PacketNumber, packet)
		if !ok {
			break
		}

		rest = remainder
	}
	c.lastTrailingBytes = trailing

	// Step C: promotion test.
	c.tryPromote()
}

// applyFrames validates the frame-content rules for one accepted Initial
// packet and folds any CRYPTO data into the accumulator. It returns false
// if the packet must halt the datagram's packet loop (a CRYPTO byte-range
// mismatch).
func (c *Candidate) applyFrames(frames []any, pn protocol.PacketNumber, packetData []byte) bool {
	var hasCrypto, hasDisqualifying bool
	for _, f := range frames {
		switch frame := f.(type) {
		case *wire.CryptoFrame:
			hasCrypto = true
			if err := c.crypto.insert(int(frame.Offset), frame.Data); err != nil {
				return false
			}
		case *wire.AckFrame, *wire.ConnectionCloseFrame, *wire.PathChallengeFrame:
			hasDisqualifying = true
		}
		// PING and PADDING are neutral and already handled by the frame
		// parser; PATH_CHALLENGE is tolerated by the wire parser but
		// disqualifies promotion rather than causing a packet drop (matches
		// Kwik's ServerConnectionCandidate behavior).
	}

	c.seenPacketNumbers[pn] = true
	c.retained = append(c.retained, RetainedPacket{PacketNumber: pn, Data: append([]byte{}, packetData...)})

	if hasCrypto && !hasDisqualifying {
		c.hasCryptoOnlyPacket = true
	}
	return true
}

// tryPromote implements Step C: promote if a complete ClientHello is
// available, at least one accepted packet qualified, and the cumulative
// validated length meets the datagram-size floor.
func (c *Candidate) tryPromote() {
	if c.state != StateBuffering {
		return
	}
	if !c.hasCryptoOnlyPacket {
		return
	}
	if c.cumulativeValidatedLen < minimumInitialDatagramSize {
		return
	}

	prefix := c.crypto.contiguousPrefix()
	if len(prefix) == 0 {
		return
	}

	if c.tlsEngine == nil {
		c.tlsEngine = c.factory.NewTLSEngine(protocol.PerspectiveServer)
	}
	complete, transportParamsExt, err := c.tlsEngine.FeedClientHello(prefix)
	if err != nil || !complete {
		return
	}

	// A client's ClientHello carries its transport parameters as a TLS
	// extension; malformed or server-only parameters are a protocol
	// violation this candidate should never hand off to a connection
	// (RFC 9000 Section 18.2). An absent extension is not itself an error
	// here: some TLSEngine implementations (and this module's own stub)
	// surface it lazily, after the handshake continues past Initial.
	if len(transportParamsExt) > 0 {
		if _, err := transportparameters.Unmarshal(transportParamsExt, protocol.PerspectiveClient); err != nil {
			c.state = StateDropped
			recordDropped(ipVersionOf(c.remoteAddr), DropReasonProtocolViolation)
			return
		}
	}

	conn := c.factory.NewConnection(c.remoteAddr, c.scid, c.dcid)
	conn.Promote(c.retained, c.lastTrailingBytes, prefix, c.remoteAddr, c.scid, c.dcid)
	c.state = StatePromoted
	// Promotion only means a complete ClientHello is in hand; it is not
	// itself address validation (RFC 9000 Section 8.1 requires a received
	// Handshake-level packet or handshake completion for that), so the
	// budget is handed to the promoted connection still locked.
	recordPromoted(ipVersionOf(c.remoteAddr))
}
