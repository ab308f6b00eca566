package pdcp

// resolveCount recombines a received SN with the receiver's local state into
// a full 32-bit COUNT, per the window rule in spec.md §3: an incoming SN is
// compared against the anchor SN using a window of half the SN space's
// width, and the anchor's HFN is adjusted by -1, 0 or +1 depending on which
// side of the anchor the received SN falls.
//
// anchorCount is the 32-bit COUNT the caller resolves against — (rx_hfn,
// next_pdcp_rx_sn) packed together for LTE RX, RX_NEXT for NR RX — and x is
// the received SN as a plain (non-wrapped) value in [0, modulus).
//
// The comparison is done in 64-bit signed arithmetic because anchorSN - half
// can go negative when anchorSN is small; HFN arithmetic itself still wraps
// naturally at 32 bits via the final uint32 conversion.
func resolveCount(anchorCount uint32, snLen SNLength, x uint32) uint32 {
	modulus := int64(snLen.Modulus())
	half := int64(snLen.Window())

	anchorHFN := int64(anchorCount >> uint(snLen))
	anchorSN := int64(anchorCount) & (modulus - 1)
	rx := int64(x)

	var hfn int64
	switch {
	case rx < anchorSN-half:
		hfn = anchorHFN + 1
	case rx >= anchorSN+half:
		hfn = anchorHFN - 1
	default:
		hfn = anchorHFN
	}

	return (uint32(hfn) << uint(snLen)) | x
}

// countMax is the largest representable COUNT value; once a PDU is
// successfully processed at this value, both TX and RX must treat the
// bearer's security context as exhausted per spec.md's invariant that COUNT
// never wraps past 2^32-1.
const countMax uint32 = 0xFFFFFFFF
