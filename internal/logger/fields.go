package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all PDCP log statements for log
// aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Bearer / entity identification
	// ========================================================================
	KeyBearerID   = "bearer_id"   // LCID of the PDCP bearer
	KeyBearerType = "bearer_type" // SRB or DRB
	KeyRAT        = "rat"         // LTE or NR
	KeyOperation  = "operation"   // write_sdu, write_pdu, reestablish, teardown, ...

	// ========================================================================
	// Sequencing
	// ========================================================================
	KeySN        = "sn"        // Sequence number on the wire
	KeyCount     = "count"     // 32-bit COUNT (HFN||SN)
	KeyHFN       = "hfn"       // Hyper-frame number
	KeyRxDeliv   = "rx_deliv"  // NR RX_DELIV state variable
	KeyRxNext    = "rx_next"   // NR RX_NEXT state variable
	KeyRxReord   = "rx_reord"  // NR RX_REORD state variable
	KeyTxNext    = "tx_next"   // NR TX_NEXT state variable
	KeyDirection = "direction" // uplink or downlink

	// ========================================================================
	// Security
	// ========================================================================
	KeyIntegrityAlgo = "integrity_algo" // EIA0..EIA3
	KeyCipherAlgo    = "cipher_algo"    // EEA0..EEA3

	// ========================================================================
	// Errors / counters
	// ========================================================================
	KeyErrorKind = "error_kind" // one of the taxonomy kinds in the error-handling design
	KeyDuration  = "duration_ms"

	// ========================================================================
	// Status report
	// ========================================================================
	KeyFMS          = "fms"           // First Missing SN
	KeyBitmapLen    = "bitmap_len"    // length in bytes of the status-report bitmap
)

// Err formats an error for structured logging.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Hex formats a byte slice as a hex string field for logging.
func Hex(key string, b []byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("%x", b))
}
