package pdcpmetrics

import "testing"

func TestNewPDCPMetrics_NilWhenDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("metrics already enabled by another test in this run")
	}
	if m := NewPDCPMetrics(); m != nil {
		t.Fatalf("NewPDCPMetrics() = %v, want nil when disabled", m)
	}
}

func TestFreeFunctions_NilSafe(t *testing.T) {
	// None of these must panic when called with a nil PDCPMetrics.
	ObserveWriteSDU(nil, "nr_drb", 100, 0)
	ObserveWritePDU(nil, "nr_drb", 100, 0)
	RecordIntegrityFailure(nil, "nr_drb")
	RecordCipherFailure(nil, "nr_drb")
	RecordDuplicate(nil, "nr_drb")
	RecordOutOfWindow(nil, "nr_drb")
	RecordMalformedHeader(nil, "nr_drb")
	RecordBufferPoolExhausted(nil)
	RecordCountWraparoundImminent(nil, "nr_drb")
	RecordDiscardExpiry(nil, "lte_drb")
	RecordReorderExpiry(nil, "nr_drb")
	RecordStatusReportSent(nil, "lte_drb")
	RecordStatusReportReceived(nil, "lte_drb", 3)
	SetUndeliveredCount(nil, 1, 5)
	SetReorderBufferDepth(nil, 1, 5)
}
