package pdcp

// PersistedState is the five-field handover/restart state layout of
// spec.md §6.4: tx_hfn, next_pdcp_tx_sn, rx_hfn, next_pdcp_rx_sn and
// last_submitted_pdcp_rx_sn, each a 32-bit field serialized in that fixed
// order. It is a caller-supplied byte layout, not PDCP's own persistence
// mechanism — the entity only knows how to export to and restore from it.
type PersistedState struct {
	TxHFN                 uint32
	NextPDCPTxSN          uint32
	RxHFN                 uint32
	NextPDCPRxSN          uint32
	LastSubmittedPDCPRxSN uint32
}

// MarshalBinary encodes s as five big-endian uint32 fields in the fixed
// order tx_hfn, next_pdcp_tx_sn, rx_hfn, next_pdcp_rx_sn,
// last_submitted_pdcp_rx_sn.
func (s PersistedState) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 20)
	putU32(buf[0:4], s.TxHFN)
	putU32(buf[4:8], s.NextPDCPTxSN)
	putU32(buf[8:12], s.RxHFN)
	putU32(buf[12:16], s.NextPDCPRxSN)
	putU32(buf[16:20], s.LastSubmittedPDCPRxSN)
	return buf, nil
}

// UnmarshalBinary decodes a PersistedState previously produced by
// MarshalBinary.
func (s *PersistedState) UnmarshalBinary(buf []byte) error {
	if len(buf) != 20 {
		return errMalformedHeader
	}
	s.TxHFN = getU32(buf[0:4])
	s.NextPDCPTxSN = getU32(buf[4:8])
	s.RxHFN = getU32(buf[8:12])
	s.NextPDCPRxSN = getU32(buf[12:16])
	s.LastSubmittedPDCPRxSN = getU32(buf[16:20])
	return nil
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
