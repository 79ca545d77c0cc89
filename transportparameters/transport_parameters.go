package transportparameters

import (
	"bytes"
	"io"
	"net/netip"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/qerr"
	"github.com/quicaccept/quicaccept/quicvarint"
)

// Parameters is the parsed/constructed form of a QUIC transport parameters
// extension (RFC 9000, Section 18.2). Every field is optional on the wire;
// the pointer/slice/bool fields distinguish "absent" from the zero value so
// that spec-defined defaults apply only when the peer truly omitted them.
type Parameters struct {
	OriginalDestinationConnectionID protocol.ConnectionID
	MaxIdleTimeoutMillis             *uint64
	StatelessResetToken              *[16]byte
	MaxUDPPayloadSize                *uint64
	InitialMaxData                   *uint64
	InitialMaxStreamDataBidiLocal    *uint64
	InitialMaxStreamDataBidiRemote   *uint64
	InitialMaxStreamDataUni          *uint64
	InitialMaxStreamsBidi            *uint64
	InitialMaxStreamsUni             *uint64
	AckDelayExponent                 *uint64
	MaxAckDelayMillis                *uint64
	DisableActiveMigration           bool
	PreferredAddress                 *PreferredAddress
	ActiveConnectionIDLimit          *uint64
	InitialSourceConnectionID        protocol.ConnectionID
	RetrySourceConnectionID          protocol.ConnectionID
	VersionInformation               *VersionInformation
	MaxDatagramFrameSize             *uint64
	GREASEQUICBit                    bool

	// raw preserves GREASE-pattern IDs so Marshal can round-trip them;
	// discardParamID and other unknown IDs are skipped on parse.
	raw []rawParameter
}

// serverOnlyIDs are the parameter IDs a client MUST NOT send (RFC 9000,
// Section 18.2): receiving one from a client is a transport error.
var serverOnlyIDs = map[uint64]bool{
	idOriginalDestinationConnectionID: true,
	idStatelessResetToken:             true,
	idPreferredAddress:                true,
	idRetrySourceConnectionID:         true,
}

// Unmarshal parses the (id, length, value) triples of a transport parameters
// extension payload (not including the TLS extension header). role is the
// perspective of the PEER that sent these parameters: if role is
// PerspectiveClient, any server-only parameter present is a transport error.
func Unmarshal(data []byte, peerRole protocol.Perspective) (*Parameters, error) {
	p := &Parameters{}
	seen := make(map[uint64]bool)
	r := bytes.NewReader(data)

	for r.Len() > 0 {
		id, err := quicvarint.Read(r)
		if err != nil {
			return nil, qerr.New(qerr.DecodeError, "reading parameter id: %v", err)
		}
		length, err := quicvarint.Read(r)
		if err != nil {
			return nil, qerr.New(qerr.DecodeError, "reading parameter length: %v", err)
		}
		if uint64(r.Len()) < length {
			return nil, qerr.New(qerr.DecodeError, "parameter %#x declares length %d beyond remaining data", id, length)
		}
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, qerr.New(qerr.DecodeError, "reading parameter value: %v", err)
		}

		if seen[id] {
			return nil, qerr.New(qerr.TransportParameterErr, "duplicate transport parameter id %#x", id)
		}
		seen[id] = true

		if peerRole == protocol.PerspectiveClient && serverOnlyIDs[id] {
			return nil, qerr.New(qerr.TransportParameterErr, "client sent server-only parameter %#x", id)
		}

		if err := p.consume(id, value); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Parameters) consume(id uint64, value []byte) error {
	switch id {
	case idOriginalDestinationConnectionID:
		p.OriginalDestinationConnectionID = protocol.ConnectionID(value)
	case idMaxIdleTimeout:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.MaxIdleTimeoutMillis = &v
	case idStatelessResetToken:
		if len(value) != 16 {
			return qerr.New(qerr.DecodeError, "stateless_reset_token must be 16 bytes, got %d", len(value))
		}
		var tok [16]byte
		copy(tok[:], value)
		p.StatelessResetToken = &tok
	case idMaxUDPPayloadSize:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.MaxUDPPayloadSize = &v
	case idInitialMaxData:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.InitialMaxData = &v
	case idInitialMaxStreamDataBidiLocal:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamDataBidiLocal = &v
	case idInitialMaxStreamDataBidiRemote:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamDataBidiRemote = &v
	case idInitialMaxStreamDataUni:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamDataUni = &v
	case idInitialMaxStreamsBidi:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamsBidi = &v
	case idInitialMaxStreamsUni:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamsUni = &v
	case idAckDelayExponent:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.AckDelayExponent = &v
	case idMaxAckDelay:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.MaxAckDelayMillis = &v
	case idDisableActiveMigration:
		p.DisableActiveMigration = true
	case idPreferredAddress:
		pa, err := parsePreferredAddress(value)
		if err != nil {
			return err
		}
		p.PreferredAddress = pa
	case idActiveConnectionIDLimit:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.ActiveConnectionIDLimit = &v
	case idInitialSourceConnectionID:
		p.InitialSourceConnectionID = protocol.ConnectionID(value)
	case idRetrySourceConnectionID:
		p.RetrySourceConnectionID = protocol.ConnectionID(value)
	case idVersionInformation:
		vi, err := parseVersionInformation(value)
		if err != nil {
			return err
		}
		p.VersionInformation = vi
	case idMaxDatagramFrameSize:
		v, err := readVarIntValue(value)
		if err != nil {
			return err
		}
		p.MaxDatagramFrameSize = &v
	case idGreaseQUICBit:
		p.GREASEQUICBit = true
	case discardParamID:
		// silently accepted and dropped, not round-tripped.
	default:
		if isGREASEID(id) {
			p.raw = append(p.raw, rawParameter{id: id, value: value})
			return nil
		}
		// Unknown, non-GREASE ID: skip per spec (already consumed its
		// declared length above), nothing further to do.
	}
	return nil
}

func readVarIntValue(value []byte) (uint64, error) {
	v, n, err := quicvarint.Parse(value)
	if err != nil || n != len(value) {
		return 0, qerr.New(qerr.DecodeError, "malformed varint-valued parameter")
	}
	return v, nil
}

func parseVersionInformation(value []byte) (*VersionInformation, error) {
	if len(value) == 0 || len(value)%4 != 0 {
		return nil, qerr.New(qerr.DecodeError, "version_information length must be a non-zero multiple of 4")
	}
	vi := &VersionInformation{ChosenVersion: beUint32(value[0:4])}
	for i := 4; i < len(value); i += 4 {
		vi.AvailableVersions = append(vi.AvailableVersions, beUint32(value[i:i+4]))
	}
	return vi, nil
}

func parsePreferredAddress(value []byte) (*PreferredAddress, error) {
	// 4 (v4 addr) + 2 (v4 port) + 16 (v6 addr) + 2 (v6 port) + 1 (cid len) + cid + 16 (reset token)
	if len(value) < 4+2+16+2+1 {
		return nil, qerr.New(qerr.DecodeError, "preferred_address too short")
	}
	v4Addr := value[0:4]
	v4Port := beUint16(value[4:6])
	v6Addr := value[6:22]
	v6Port := beUint16(value[22:24])
	cidLen := int(value[24])
	if len(value) != 4+2+16+2+1+cidLen+16 {
		return nil, qerr.New(qerr.DecodeError, "preferred_address length inconsistent with connection ID length")
	}
	cid := append([]byte{}, value[25:25+cidLen]...)
	var resetToken [16]byte
	copy(resetToken[:], value[25+cidLen:])

	pa := &PreferredAddress{ConnectionID: cid, StatelessResetToken: resetToken}
	if !allZero(v4Addr) {
		addr, ok := netip.AddrFromSlice(v4Addr)
		if ok {
			pa.IPv4 = netip.AddrPortFrom(addr, v4Port)
		}
	}
	if !allZero(v6Addr) {
		addr, ok := netip.AddrFromSlice(v6Addr)
		if ok {
			pa.IPv6 = netip.AddrPortFrom(addr, v6Port)
		}
	}
	if !pa.IPv4.IsValid() && !pa.IPv6.IsValid() {
		return nil, qerr.New(qerr.DecodeError, "preferred_address has neither IPv4 nor IPv6 address")
	}
	return pa, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func beUint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Marshal serialises p as a sequence of (id, length, value) triples. role is
// this endpoint's own perspective: server-only parameters are only emitted
// when role is PerspectiveServer, and preferred_address is never emitted
// regardless of role (this server role never offers connection migration).
func (p *Parameters) Marshal(role protocol.Perspective) []byte {
	var params []TransportParameter

	if role == protocol.PerspectiveServer {
		if p.OriginalDestinationConnectionID != nil {
			params = append(params, OriginalDestinationConnectionID(p.OriginalDestinationConnectionID))
		}
		if p.StatelessResetToken != nil {
			params = append(params, StatelessResetToken(*p.StatelessResetToken))
		}
		if p.RetrySourceConnectionID != nil {
			params = append(params, RetrySourceConnectionID(p.RetrySourceConnectionID))
		}
	}

	if p.MaxIdleTimeoutMillis != nil {
		params = append(params, MaxIdleTimeout(*p.MaxIdleTimeoutMillis))
	}
	if p.MaxUDPPayloadSize != nil {
		params = append(params, MaxUDPPayloadSize(*p.MaxUDPPayloadSize))
	}
	if p.InitialMaxData != nil {
		params = append(params, InitialMaxData(*p.InitialMaxData))
	}
	if p.InitialMaxStreamDataBidiLocal != nil {
		params = append(params, InitialMaxStreamDataBidiLocal(*p.InitialMaxStreamDataBidiLocal))
	}
	if p.InitialMaxStreamDataBidiRemote != nil {
		params = append(params, InitialMaxStreamDataBidiRemote(*p.InitialMaxStreamDataBidiRemote))
	}
	if p.InitialMaxStreamDataUni != nil {
		params = append(params, InitialMaxStreamDataUni(*p.InitialMaxStreamDataUni))
	}
	if p.InitialMaxStreamsBidi != nil {
		params = append(params, InitialMaxStreamsBidi(*p.InitialMaxStreamsBidi))
	}
	if p.InitialMaxStreamsUni != nil {
		params = append(params, InitialMaxStreamsUni(*p.InitialMaxStreamsUni))
	}
	if p.AckDelayExponent != nil {
		params = append(params, AckDelayExponent(*p.AckDelayExponent))
	}
	if p.MaxAckDelayMillis != nil {
		params = append(params, MaxAckDelay(*p.MaxAckDelayMillis))
	}
	if p.DisableActiveMigration {
		params = append(params, DisableActiveMigration{})
	}
	if p.ActiveConnectionIDLimit != nil {
		params = append(params, ActiveConnectionIDLimit(*p.ActiveConnectionIDLimit))
	}
	if p.InitialSourceConnectionID != nil {
		params = append(params, InitialSourceConnectionID(p.InitialSourceConnectionID))
	}
	if p.VersionInformation != nil {
		params = append(params, *p.VersionInformation)
	}
	if p.MaxDatagramFrameSize != nil {
		params = append(params, MaxDatagramFrameSize(*p.MaxDatagramFrameSize))
	}
	if p.GREASEQUICBit {
		params = append(params, GREASEQUICBit{})
	}
	for _, raw := range p.raw {
		params = append(params, raw)
	}

	var b []byte
	for _, tp := range params {
		b = quicvarint.Append(b, tp.ID())
		b = quicvarint.Append(b, uint64(len(tp.Value())))
		b = append(b, tp.Value()...)
	}
	return b
}

// AppendDiscardParameter appends a quantum-readiness "discard" parameter
// (id 0x173e) of n zero bytes, per RFC 9000 Section 18.1 GREASE guidance.
func AppendDiscardParameter(b []byte, n int) []byte {
	b = quicvarint.Append(b, discardParamID)
	b = quicvarint.Append(b, uint64(n))
	return append(b, make([]byte, n)...)
}

// AppendGREASEParameter appends a randomly-keyed parameter with random
// padding, per RFC 9287 Section 3.1.
func AppendGREASEParameter(b []byte, valueLen int) []byte {
	b = quicvarint.Append(b, randomGREASEID())
	b = quicvarint.Append(b, uint64(valueLen))
	return append(b, make([]byte, valueLen)...)
}
