package pdcpconfig

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/marmos91/pdcpgo/pkg/pdcp"
	"github.com/marmos91/pdcpgo/pkg/pdcpsec"
)

// ToBearerConfig converts a config-file bearer entry into the pdcp.BearerConfig
// NewEntity expects. Call pdcp.BearerConfig.Validate on the result (NewEntity
// does this already) rather than duplicating validation here.
func (e BearerEntry) ToBearerConfig() (pdcp.BearerConfig, error) {
	rat, err := parseRAT(e.RAT)
	if err != nil {
		return pdcp.BearerConfig{}, err
	}
	bearerType, err := parseBearerType(e.Type)
	if err != nil {
		return pdcp.BearerConfig{}, err
	}
	direction, err := parseDirection(e.TXDirection)
	if err != nil {
		return pdcp.BearerConfig{}, err
	}

	return pdcp.BearerConfig{
		BearerID:             e.BearerID,
		RAT:                  rat,
		Type:                 bearerType,
		SNLength:             pdcp.SNLength(e.SNLength),
		TXDirection:          direction,
		DiscardTimer:         e.DiscardTimer,
		ReorderTimer:         e.ReorderTimer,
		StatusReportRequired: e.StatusReportRequired,
		UndeliveredLimit:     e.UndeliveredLimit,
	}, nil
}

// ToSecurityConfig converts the entry's hex-encoded key material into the
// pdcp.SecurityConfig NewEntity expects.
func (e BearerEntry) ToSecurityConfig() (pdcp.SecurityConfig, error) {
	integrityAlg, err := parseIntegrityAlgorithm(e.Security.IntegrityAlgorithm)
	if err != nil {
		return pdcp.SecurityConfig{}, err
	}
	cipherAlg, err := parseCipherAlgorithm(e.Security.CipherAlgorithm)
	if err != nil {
		return pdcp.SecurityConfig{}, err
	}
	integrityKey, err := decodeKeyHex(e.Security.IntegrityKeyHex)
	if err != nil {
		return pdcp.SecurityConfig{}, fmt.Errorf("integrity_key: %w", err)
	}
	cipherKey, err := decodeKeyHex(e.Security.CipherKeyHex)
	if err != nil {
		return pdcp.SecurityConfig{}, fmt.Errorf("cipher_key: %w", err)
	}
	integrityEnabled, err := parseDirectionEnable(e.Security.IntegrityEnabled)
	if err != nil {
		return pdcp.SecurityConfig{}, err
	}
	cipherEnabled, err := parseDirectionEnable(e.Security.CipherEnabled)
	if err != nil {
		return pdcp.SecurityConfig{}, err
	}

	return pdcp.SecurityConfig{
		IntegrityAlgorithm: integrityAlg,
		IntegrityKey:       integrityKey,
		CipherAlgorithm:    cipherAlg,
		CipherKey:          cipherKey,
		IntegrityEnabled:   integrityEnabled,
		CipherEnabled:      cipherEnabled,
	}, nil
}

func decodeKeyHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

func parseRAT(s string) (pdcp.RAT, error) {
	switch strings.ToUpper(s) {
	case "LTE":
		return pdcp.LTE, nil
	case "NR":
		return pdcp.NR, nil
	default:
		return 0, fmt.Errorf("pdcpconfig: unknown rat %q", s)
	}
}

func parseBearerType(s string) (pdcp.BearerType, error) {
	switch strings.ToUpper(s) {
	case "SRB":
		return pdcp.SRB, nil
	case "DRB":
		return pdcp.DRB, nil
	default:
		return 0, fmt.Errorf("pdcpconfig: unknown bearer type %q", s)
	}
}

func parseDirection(s string) (pdcpsec.Direction, error) {
	switch strings.ToLower(s) {
	case "uplink":
		return pdcpsec.Uplink, nil
	case "downlink":
		return pdcpsec.Downlink, nil
	default:
		return 0, fmt.Errorf("pdcpconfig: unknown tx_direction %q", s)
	}
}

func parseDirectionEnable(s string) (pdcp.DirectionEnable, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return pdcp.DirNone, nil
	case "tx":
		return pdcp.DirTX, nil
	case "rx":
		return pdcp.DirRX, nil
	case "both":
		return pdcp.DirBoth, nil
	default:
		return 0, fmt.Errorf("pdcpconfig: unknown direction-enable %q", s)
	}
}

func parseIntegrityAlgorithm(s string) (pdcpsec.IntegrityAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "", "EIA0":
		return pdcpsec.EIA0, nil
	case "EIA1":
		return pdcpsec.EIA1, nil
	case "EIA2":
		return pdcpsec.EIA2, nil
	case "EIA3":
		return pdcpsec.EIA3, nil
	default:
		return 0, fmt.Errorf("pdcpconfig: unknown integrity_algorithm %q", s)
	}
}

func parseCipherAlgorithm(s string) (pdcpsec.CipherAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "", "EEA0":
		return pdcpsec.EEA0, nil
	case "EEA1":
		return pdcpsec.EEA1, nil
	case "EEA2":
		return pdcpsec.EEA2, nil
	case "EEA3":
		return pdcpsec.EEA3, nil
	default:
		return 0, fmt.Errorf("pdcpconfig: unknown cipher_algorithm %q", s)
	}
}
