package pdcp

import (
	"fmt"
	"time"

	"github.com/marmos91/pdcpgo/pkg/pdcpsec"
)

// DirectionEnable is a bitmask of which link directions a security function
// (integrity or ciphering) is currently active on. A bearer can have, say,
// ciphering enabled only in the downlink while integrity runs both ways.
type DirectionEnable uint8

const (
	DirNone DirectionEnable = 0
	DirTX   DirectionEnable = 1 << 0
	DirRX   DirectionEnable = 1 << 1
	DirBoth DirectionEnable = DirTX | DirRX
)

// Enabled reports whether dir is set in m.
func (m DirectionEnable) Enabled(dir pdcpsec.Direction, txDirection pdcpsec.Direction) bool {
	if dir == txDirection {
		return m&DirTX != 0
	}
	return m&DirRX != 0
}

// SecurityConfig bundles the key material, algorithm selection and
// enablement mask a bearer's security engine is configured with. It is
// supplied in full by config_security and may be replaced wholesale on
// reestablishment with fresh keys per the handover/reestablishment design
// note.
type SecurityConfig struct {
	IntegrityAlgorithm pdcpsec.IntegrityAlgorithm
	IntegrityKey       []byte // K_int, 16 or 32 bytes depending on algorithm
	CipherAlgorithm    pdcpsec.CipherAlgorithm
	CipherKey          []byte // K_enc

	// IntegrityEnabled/CipherEnabled gate whether the corresponding engine
	// actually runs on TX and RX independently of the algorithm selected;
	// EIA0/EEA0 (null) make the distinction moot, but a non-null algorithm
	// configured with the direction bit clear still does not run.
	IntegrityEnabled DirectionEnable
	CipherEnabled    DirectionEnable
}

// Validate checks sec for internal consistency. A config with a non-null
// algorithm and no key material is rejected rather than silently producing
// garbage MAC-I/ciphertext at the first write. Key lengths and the
// enablement masks are not checked.
func (sec SecurityConfig) Validate() error {
	if sec.IntegrityAlgorithm != pdcpsec.EIA0 && len(sec.IntegrityKey) == 0 {
		return fmt.Errorf("%w: %s requires a non-empty integrity key", ErrInvalidSecurityConfig, sec.IntegrityAlgorithm)
	}
	if sec.CipherAlgorithm != pdcpsec.EEA0 && len(sec.CipherKey) == 0 {
		return fmt.Errorf("%w: %s requires a non-empty cipher key", ErrInvalidSecurityConfig, sec.CipherAlgorithm)
	}
	return nil
}

// BearerConfig describes the static shape of one PDCP bearer: which RAT and
// bearer type it is, its SN length, timer durations, and which link
// direction this endpoint transmits on (the other direction is implicitly
// receive).
type BearerConfig struct {
	BearerID uint32 // logical channel identifier (LCID), 1-based per 3GPP
	RAT      RAT
	Type     BearerType
	SNLength SNLength

	// TXDirection is the direction this endpoint transmits on (Uplink for a
	// UE, Downlink for an eNB/gNB); RX runs the opposite direction.
	TXDirection pdcpsec.Direction

	// DiscardTimer is the TX discard timer duration; <= 0 means disabled
	// ("infinity" — entries are never discarded on a timer, only on
	// delivery confirmation or teardown).
	DiscardTimer time.Duration

	// ReorderTimer is the NR t-Reordering timer duration. The LTE RX path
	// does not use it.
	ReorderTimer time.Duration

	// ReorderPolicy names an LTE RX delivery discipline. The RX state
	// machine does not read it: LTE bearers deliver on receipt with
	// duplicate suppression whichever value is set, and NR bearers always
	// reorder.
	ReorderPolicy ReorderPolicy

	// StatusReportRequired mirrors the RRC-configured
	// status_report_required flag; send_status_report refuses when false.
	StatusReportRequired bool

	// UndeliveredLimit bounds the TX undelivered-SDU table; 0 selects the
	// default of SNLength.Window() entries (the TX window's cardinality
	// bound, used regardless of discard-timer setting).
	UndeliveredLimit int
}

// Validate validates cfg and returns any error. Called from configure and from
// NewEntity.
func (cfg BearerConfig) Validate() error {
	if cfg.BearerID == 0 {
		return fmt.Errorf("%w: bearer id must be non-zero", ErrInvalidBearerConfig)
	}
	if !cfg.SNLength.Valid() {
		return fmt.Errorf("%w: unsupported SN length %d", ErrInvalidBearerConfig, cfg.SNLength)
	}
	if cfg.Type == SRB && cfg.SNLength != SN5 && cfg.SNLength != SN12 {
		return fmt.Errorf("%w: SRB bearers use a 5-bit or 12-bit SN, got %s", ErrInvalidBearerConfig, cfg.SNLength)
	}
	if cfg.DiscardTimer < 0 {
		return fmt.Errorf("%w: discard timer duration must be >= 0", ErrInvalidBearerConfig)
	}
	if cfg.ReorderTimer < 0 {
		return fmt.Errorf("%w: reorder timer duration must be >= 0", ErrInvalidBearerConfig)
	}
	return nil
}

// rxDirection returns the direction this bearer receives on: the opposite
// of TXDirection.
func (cfg BearerConfig) rxDirection() pdcpsec.Direction {
	if cfg.TXDirection == pdcpsec.Uplink {
		return pdcpsec.Downlink
	}
	return pdcpsec.Uplink
}

// bearerID5Bit returns the 5-bit BEARER identity fed to the security engine:
// lcid - 1, per 3GPP TS 33.401 Annex B.
func (cfg BearerConfig) bearerID5Bit() uint8 {
	return uint8((cfg.BearerID - 1) & 0x1F)
}

// undeliveredLimit resolves the effective undelivered-SDU table bound.
func (cfg BearerConfig) undeliveredLimit() int {
	if cfg.UndeliveredLimit > 0 {
		return cfg.UndeliveredLimit
	}
	return int(cfg.SNLength.Window())
}
