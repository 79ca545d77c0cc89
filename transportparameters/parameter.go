package transportparameters

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"net/netip"

	"github.com/quicaccept/quicaccept/quicvarint"
)

// Transport parameter IDs, RFC 9000 Section 18.2, plus RFC 9221 (datagrams)
// and RFC 9368 (version_information).
const (
	idOriginalDestinationConnectionID uint64 = 0x00
	idMaxIdleTimeout                  uint64 = 0x01
	idStatelessResetToken             uint64 = 0x02
	idMaxUDPPayloadSize                uint64 = 0x03
	idInitialMaxData                  uint64 = 0x04
	idInitialMaxStreamDataBidiLocal   uint64 = 0x05
	idInitialMaxStreamDataBidiRemote  uint64 = 0x06
	idInitialMaxStreamDataUni         uint64 = 0x07
	idInitialMaxStreamsBidi           uint64 = 0x08
	idInitialMaxStreamsUni            uint64 = 0x09
	idAckDelayExponent                uint64 = 0x0a
	idMaxAckDelay                     uint64 = 0x0b
	idDisableActiveMigration          uint64 = 0x0c
	idPreferredAddress                uint64 = 0x0d
	idActiveConnectionIDLimit         uint64 = 0x0e
	idInitialSourceConnectionID       uint64 = 0x0f
	idRetrySourceConnectionID         uint64 = 0x10
	idVersionInformation              uint64 = 0x11 // RFC 9368
	idMaxDatagramFrameSize            uint64 = 0x20 // RFC 9221
	idGreaseQUICBit                   uint64 = 0x2ab2

	// discardParamID is the quantum-readiness discard parameter some stacks
	// send to pad their transport parameters; it is parsed and discarded,
	// never surfaced as an unknown-parameter error.
	discardParamID uint64 = 0x173e
)

// TransportParameter is one entry of a transport parameters extension.
// Implementations mirror RFC 9000's wire layout directly: an ID, then a
// varint length, then Value()'s raw bytes.
type TransportParameter interface {
	ID() uint64
	Value() []byte
}

type MaxIdleTimeout uint64

func (MaxIdleTimeout) ID() uint64        { return idMaxIdleTimeout }
func (m MaxIdleTimeout) Value() []byte   { return quicvarint.Append(nil, uint64(m)) }

type MaxUDPPayloadSize uint64

func (MaxUDPPayloadSize) ID() uint64      { return idMaxUDPPayloadSize }
func (m MaxUDPPayloadSize) Value() []byte { return quicvarint.Append(nil, uint64(m)) }

type InitialMaxData uint64

func (InitialMaxData) ID() uint64      { return idInitialMaxData }
func (i InitialMaxData) Value() []byte { return quicvarint.Append(nil, uint64(i)) }

type InitialMaxStreamDataBidiLocal uint64

func (InitialMaxStreamDataBidiLocal) ID() uint64      { return idInitialMaxStreamDataBidiLocal }
func (i InitialMaxStreamDataBidiLocal) Value() []byte { return quicvarint.Append(nil, uint64(i)) }

type InitialMaxStreamDataBidiRemote uint64

func (InitialMaxStreamDataBidiRemote) ID() uint64      { return idInitialMaxStreamDataBidiRemote }
func (i InitialMaxStreamDataBidiRemote) Value() []byte { return quicvarint.Append(nil, uint64(i)) }

type InitialMaxStreamDataUni uint64

func (InitialMaxStreamDataUni) ID() uint64      { return idInitialMaxStreamDataUni }
func (i InitialMaxStreamDataUni) Value() []byte { return quicvarint.Append(nil, uint64(i)) }

type InitialMaxStreamsBidi uint64

func (InitialMaxStreamsBidi) ID() uint64      { return idInitialMaxStreamsBidi }
func (i InitialMaxStreamsBidi) Value() []byte { return quicvarint.Append(nil, uint64(i)) }

type InitialMaxStreamsUni uint64

func (InitialMaxStreamsUni) ID() uint64      { return idInitialMaxStreamsUni }
func (i InitialMaxStreamsUni) Value() []byte { return quicvarint.Append(nil, uint64(i)) }

type AckDelayExponent uint64

func (AckDelayExponent) ID() uint64      { return idAckDelayExponent }
func (a AckDelayExponent) Value() []byte { return quicvarint.Append(nil, uint64(a)) }

type MaxAckDelay uint64

func (MaxAckDelay) ID() uint64      { return idMaxAckDelay }
func (m MaxAckDelay) Value() []byte { return quicvarint.Append(nil, uint64(m)) }

// DisableActiveMigration's Value MUST always be empty.
type DisableActiveMigration struct{}

func (DisableActiveMigration) ID() uint64    { return idDisableActiveMigration }
func (DisableActiveMigration) Value() []byte { return []byte{} }

type ActiveConnectionIDLimit uint64

func (ActiveConnectionIDLimit) ID() uint64      { return idActiveConnectionIDLimit }
func (a ActiveConnectionIDLimit) Value() []byte { return quicvarint.Append(nil, uint64(a)) }

// InitialSourceConnectionID, OriginalDestinationConnectionID and
// RetrySourceConnectionID carry raw connection ID bytes with no length
// prefix of their own (the outer parameter length field covers it).
type InitialSourceConnectionID []byte

func (InitialSourceConnectionID) ID() uint64      { return idInitialSourceConnectionID }
func (i InitialSourceConnectionID) Value() []byte { return []byte(i) }

type OriginalDestinationConnectionID []byte

func (OriginalDestinationConnectionID) ID() uint64      { return idOriginalDestinationConnectionID }
func (i OriginalDestinationConnectionID) Value() []byte { return []byte(i) }

type RetrySourceConnectionID []byte

func (RetrySourceConnectionID) ID() uint64      { return idRetrySourceConnectionID }
func (i RetrySourceConnectionID) Value() []byte { return []byte(i) }

// StatelessResetToken is always exactly 16 bytes (RFC 9000, Section 10.3).
type StatelessResetToken [16]byte

func (StatelessResetToken) ID() uint64           { return idStatelessResetToken }
func (t StatelessResetToken) Value() []byte      { return t[:] }

// PreferredAddress is parsed on receipt and has a Value encoding, but
// Parameters.Marshal never emits it for either role.
type PreferredAddress struct {
	IPv4                netip.AddrPort
	IPv6                netip.AddrPort
	ConnectionID        []byte
	StatelessResetToken [16]byte
}

func (PreferredAddress) ID() uint64 { return idPreferredAddress }

func (p PreferredAddress) Value() []byte {
	var b []byte
	b = append(b, p.IPv4.Addr().AsSlice()...)
	b = binary.BigEndian.AppendUint16(b, p.IPv4.Port())
	b = append(b, p.IPv6.Addr().AsSlice()...)
	b = binary.BigEndian.AppendUint16(b, p.IPv6.Port())
	b = append(b, byte(len(p.ConnectionID)))
	b = append(b, p.ConnectionID...)
	b = append(b, p.StatelessResetToken[:]...)
	return b
}

// VersionInformation is the RFC 9368 version_information parameter.
type VersionInformation struct {
	ChosenVersion     uint32
	AvailableVersions []uint32
}

func (VersionInformation) ID() uint64 { return idVersionInformation }

func (v VersionInformation) Value() []byte {
	b := binary.BigEndian.AppendUint32(nil, v.ChosenVersion)
	for _, ver := range v.AvailableVersions {
		b = binary.BigEndian.AppendUint32(b, ver)
	}
	return b
}

type MaxDatagramFrameSize uint64

func (MaxDatagramFrameSize) ID() uint64      { return idMaxDatagramFrameSize }
func (m MaxDatagramFrameSize) Value() []byte { return quicvarint.Append(nil, uint64(m)) }

// GREASEQUICBit's Value MUST always be empty (RFC 9287).
type GREASEQUICBit struct{}

func (GREASEQUICBit) ID() uint64    { return idGreaseQUICBit }
func (GREASEQUICBit) Value() []byte { return []byte{} }

// rawParameter is used to preserve a GREASE ID (RFC 9287 Section 3) on parse
// so Marshal can still round-trip it without this package needing to
// understand it. discardParamID and other unknown IDs are dropped, not kept.
type rawParameter struct {
	id    uint64
	value []byte
}

func (r rawParameter) ID() uint64    { return r.id }
func (r rawParameter) Value() []byte { return r.value }

// isGREASEID reports whether id follows the GREASE pattern from RFC 9287,
// Section 3.1: 31*N+27 for some non-negative integer N.
func isGREASEID(id uint64) bool {
	return id >= 27 && (id-27)%31 == 0
}

// randomGREASEID returns a randomly chosen valid GREASE transport parameter ID.
func randomGREASEID() uint64 {
	const maxN = (1<<62 - 1 - 27) / 31
	n, err := rand.Int(rand.Reader, big.NewInt(maxN))
	if err != nil {
		return 27
	}
	return 27 + n.Uint64()*31
}
