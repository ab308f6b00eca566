// Package pdcpsec implements the PDCP security engine: the ciphering and
// integrity-protection primitives described in 3GPP TS 33.401 Annex B, exposed
// as a stateless capability rather than embedded in the TX/RX state machines.
//
// Integrity and ciphering are pure functions of (key, count, bearer, direction,
// payload); a given algorithm identifier selects one Engine implementation,
// shared freely across bearers since it carries no mutable state of its own.
package pdcpsec

import (
	"errors"
	"fmt"
)

// Direction identifies which link direction an algorithm invocation applies to.
// Per 3GPP TS 33.401 Annex B, DIRECTION is a single bit: 0 for uplink, 1 for
// downlink.
type Direction uint8

const (
	Uplink   Direction = 0
	Downlink Direction = 1
)

func (d Direction) String() string {
	if d == Downlink {
		return "downlink"
	}
	return "uplink"
}

// IntegrityAlgorithm identifies one of the closed set of standardised
// 128-bit integrity algorithms (EIA0..EIA3).
type IntegrityAlgorithm uint8

const (
	EIA0 IntegrityAlgorithm = iota // null
	EIA1                           // SNOW-3G
	EIA2                           // AES-CMAC
	EIA3                           // ZUC
)

func (a IntegrityAlgorithm) String() string {
	switch a {
	case EIA0:
		return "EIA0"
	case EIA1:
		return "EIA1"
	case EIA2:
		return "EIA2"
	case EIA3:
		return "EIA3"
	default:
		return fmt.Sprintf("EIA?(%d)", uint8(a))
	}
}

// CipherAlgorithm identifies one of the closed set of standardised ciphering
// algorithms (EEA0..EEA3).
type CipherAlgorithm uint8

const (
	EEA0 CipherAlgorithm = iota // null
	EEA1                        // SNOW-3G
	EEA2                        // AES-CTR
	EEA3                        // ZUC
)

func (a CipherAlgorithm) String() string {
	switch a {
	case EEA0:
		return "EEA0"
	case EEA1:
		return "EEA1"
	case EEA2:
		return "EEA2"
	case EEA3:
		return "EEA3"
	default:
		return fmt.Sprintf("EEA?(%d)", uint8(a))
	}
}

// MACLen is the width in bytes of a PDCP MAC-I field.
const MACLen = 4

// ErrUnsupportedAlgorithm is returned by algorithm slots that have no
// grounded implementation available (EIA1/EEA1 SNOW-3G, EIA3/EEA3 ZUC).
// Rather than fabricate cryptographic primitives with no reference to check
// them against, these slots fail closed.
var ErrUnsupportedAlgorithm = errors.New("pdcpsec: algorithm not implemented")

// IntegrityInput bundles the parameters of a single MAC-I computation or
// verification, per 3GPP TS 33.401 Annex B: a 128- or 256-bit KEY, the 32-bit
// COUNT, the 5-bit BEARER identity (lcid-1), the 1-bit DIRECTION, and the
// message (header || plaintext payload) being authenticated.
type IntegrityInput struct {
	Key       []byte
	Count     uint32
	Bearer    uint8 // 0..31 (5 bits)
	Direction Direction
	Message   []byte
}

// CipherInput bundles the parameters of a single ciphering/deciphering
// operation. Ciphering is symmetric (EEA-family algorithms are stream
// ciphers), so the same call shape serves both directions of travel.
type CipherInput struct {
	Key       []byte
	Count     uint32
	Bearer    uint8
	Direction Direction
	Payload   []byte
}

// IntegrityEngine computes and verifies MAC-I values for one algorithm.
type IntegrityEngine interface {
	Algorithm() IntegrityAlgorithm
	// ComputeMAC returns the 4-byte MAC-I for the given input.
	ComputeMAC(in IntegrityInput) ([MACLen]byte, error)
}

// CipherEngine ciphers and deciphers payloads for one algorithm. Because the
// EEA family are all additive stream ciphers, Cipher also deciphers: XOR-ing
// a keystream with itself is self-inverse.
type CipherEngine interface {
	Algorithm() CipherAlgorithm
	Cipher(in CipherInput) ([]byte, error)
}

// VerifyMAC computes the expected MAC-I and compares it in constant time
// against the one attached to a received PDU.
func VerifyMAC(e IntegrityEngine, in IntegrityInput, received [MACLen]byte) (bool, error) {
	expected, err := e.ComputeMAC(in)
	if err != nil {
		return false, err
	}
	return constantTimeEqual(expected[:], received[:]), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
