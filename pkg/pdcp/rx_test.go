package pdcp

import (
	"testing"

	"github.com/marmos91/pdcpgo/pkg/pdcpsec"
	"github.com/marmos91/pdcpgo/pkg/pdcptimer"
)

func newTestRX(t *testing.T, cfg BearerConfig) (*rxState, *fakeUpper) {
	t.Helper()
	upper := &fakeUpper{}
	rx := newRXState(cfg, SecurityConfig{}, pdcpsec.NewEngine(), upper, pdcptimer.NewManualFactory(), nil, discardLogger(t), func() {})
	return rx, upper
}

func TestRX_NR_CountExhaustedLatch(t *testing.T) {
	cfg := BearerConfig{BearerID: 1, RAT: NR, Type: DRB, SNLength: SN12, TXDirection: pdcpsec.Downlink}
	rx, upper := newTestRX(t, cfg)

	rx.rxNext = countMax
	rx.rxDeliv = countMax

	sn := countMax & cfg.SNLength.MaxSN()
	rx.handlePDU(sn, []byte{0x01})

	if upper.deliveredCount() != 1 {
		t.Fatalf("delivered count = %d, want 1", upper.deliveredCount())
	}
	if !rx.exhausted {
		t.Fatal("rx.exhausted = false, want true after processing COUNT 2^32-1")
	}
	if upper.wraparounds != 1 {
		t.Fatalf("wraparound notifications = %d, want 1", upper.wraparounds)
	}

	// A further PDU, even a well-formed next one, must be dropped outright.
	rx.handlePDU(sn, []byte{0x02})
	if upper.deliveredCount() != 1 {
		t.Fatalf("delivered count after exhaustion = %d, want still 1", upper.deliveredCount())
	}
}

func TestRX_NR_OutOfOrderDeliveryAndReorderTimer(t *testing.T) {
	cfg := BearerConfig{BearerID: 1, RAT: NR, Type: DRB, SNLength: SN12, TXDirection: pdcpsec.Downlink}
	rx, upper := newTestRX(t, cfg)

	// COUNT 1 arrives first: buffered, RX_NEXT advances to 2, t-Reordering starts.
	rx.handlePDU(1, []byte{0xAA})
	if upper.deliveredCount() != 0 {
		t.Fatalf("delivered count = %d, want 0 (COUNT 0 still missing)", upper.deliveredCount())
	}
	if rx.rxNext != 2 {
		t.Fatalf("rxNext = %d, want 2", rx.rxNext)
	}
	if !rx.reorderRunning {
		t.Fatal("reorderRunning = false, want true while COUNT 0 is outstanding")
	}

	// COUNT 0 arrives second: both SDUs release in order, RX_DELIV reaches
	// RX_NEXT and the reordering timer is cancelled.
	rx.handlePDU(0, []byte{0xBB})
	if upper.deliveredCount() != 2 {
		t.Fatalf("delivered count = %d, want 2", upper.deliveredCount())
	}
	if !equalBytes(upper.nth(0), []byte{0xBB}) || !equalBytes(upper.nth(1), []byte{0xAA}) {
		t.Fatalf("delivery order wrong: %v", upper.delivered)
	}
	if rx.rxDeliv != 2 {
		t.Fatalf("rxDeliv = %d, want 2", rx.rxDeliv)
	}
	if rx.reorderRunning {
		t.Fatal("reorderRunning = true, want false once RX_DELIV caught up to RX_NEXT")
	}
}

func TestRX_NR_DuplicateDropped(t *testing.T) {
	cfg := BearerConfig{BearerID: 1, RAT: NR, Type: DRB, SNLength: SN12, TXDirection: pdcpsec.Downlink}
	rx, upper := newTestRX(t, cfg)

	rx.handlePDU(0, []byte{0x01})
	rx.handlePDU(0, []byte{0x01})

	if upper.deliveredCount() != 1 {
		t.Fatalf("delivered count = %d, want 1 (duplicate must be dropped)", upper.deliveredCount())
	}
}

func TestRX_LTE_ImmediateDeliveryAndDuplicateSuppression(t *testing.T) {
	cfg := BearerConfig{BearerID: 1, RAT: LTE, Type: DRB, SNLength: SN12, TXDirection: pdcpsec.Downlink}
	rx, upper := newTestRX(t, cfg)

	rx.handlePDU(0, []byte{0x01})
	rx.handlePDU(1, []byte{0x02})
	rx.handlePDU(0, []byte{0x01}) // duplicate, must be dropped

	if upper.deliveredCount() != 2 {
		t.Fatalf("delivered count = %d, want 2", upper.deliveredCount())
	}
}

// TestRX_LTE_StatusReportTracksGapsAboveFMS reproduces spec.md §8 scenario 7
// at the rxState level: SNs 0-256 arrive in order, then SN 259-270 arrive
// while 257, 258, 271 and 272 never do. Every received PDU is still
// delivered on receipt, but the status report's FMS stays pinned at the
// first gap (257) and the bitmap reports exactly the SNs above it that never
// arrived.
func TestRX_LTE_StatusReportTracksGapsAboveFMS(t *testing.T) {
	cfg := BearerConfig{BearerID: 1, RAT: LTE, Type: DRB, SNLength: SN12, TXDirection: pdcpsec.Downlink}
	rx, upper := newTestRX(t, cfg)

	for sn := uint32(0); sn <= 256; sn++ {
		rx.handlePDU(sn, []byte{byte(sn)})
	}

	report := rx.buildStatusReport()
	if report.FMS != 257 {
		t.Fatalf("FMS = %d, want 257", report.FMS)
	}
	packed := packStatusReport(cfg.SNLength, int(cfg.SNLength.Window()), report)
	if !equalBytes(packed, []byte{0x01, 0x01}) {
		t.Fatalf("packed = % X, want 01 01", packed)
	}

	for sn := uint32(259); sn <= 270; sn++ {
		rx.handlePDU(sn, []byte{byte(sn)})
	}

	if upper.deliveredCount() != 269 {
		t.Fatalf("delivered count = %d, want 269 (every received PDU, gaps included)", upper.deliveredCount())
	}

	report = rx.buildStatusReport()
	if report.FMS != 257 {
		t.Fatalf("FMS after gap = %d, want 257 (frontier must not advance past the gap at 257)", report.FMS)
	}
	for _, missingSN := range []uint32{258, 271, 272} {
		if !report.Missing[missingSN] {
			t.Fatalf("sn %d expected missing, not reported", missingSN)
		}
	}
	for sn := uint32(259); sn <= 270; sn++ {
		if report.Missing[sn] {
			t.Fatalf("sn %d unexpectedly reported missing", sn)
		}
	}

	packed = packStatusReport(cfg.SNLength, int(cfg.SNLength.Window()), report)
	if !equalBytes(packed, []byte{0x01, 0x01, 0x7F, 0xF8}) {
		t.Fatalf("packed = % X, want 01 01 7F F8", packed)
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
