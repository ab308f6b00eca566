package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for PDCP operations, following OpenTelemetry semantic
// convention style (dotted namespaces).
const (
	AttrBearerID     = "pdcp.bearer_id"
	AttrBearerType   = "pdcp.bearer_type" // SRB or DRB
	AttrRAT          = "pdcp.rat"         // LTE or NR
	AttrOperation    = "pdcp.operation"   // write_sdu, write_pdu, ...
	AttrSN           = "pdcp.sn"
	AttrCount        = "pdcp.count"
	AttrDirection    = "pdcp.direction"
	AttrIntegrityAlg = "pdcp.integrity_algo"
	AttrCipherAlg    = "pdcp.cipher_algo"
	AttrErrorKind    = "pdcp.error_kind"
)

// Span names for PDCP entity operations.
const (
	SpanWriteSDU         = "pdcp.write_sdu"
	SpanWritePDU         = "pdcp.write_pdu"
	SpanNotifyDelivery   = "pdcp.notify_delivery"
	SpanSendStatusReport = "pdcp.send_status_report"
	SpanHandleStatusPDU  = "pdcp.handle_status_pdu"
	SpanReestablish      = "pdcp.reestablish"
	SpanTeardown         = "pdcp.teardown"
	SpanDiscardExpiry    = "pdcp.discard_timer_expiry"
	SpanReorderExpiry    = "pdcp.t_reordering_expiry"
)

// BearerID returns an attribute identifying the bearer (LCID).
func BearerID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrBearerID, int64(id))
}

// BearerType returns an attribute for SRB/DRB.
func BearerType(t string) attribute.KeyValue {
	return attribute.String(AttrBearerType, t)
}

// RAT returns an attribute for the radio access technology variant.
func RAT(rat string) attribute.KeyValue {
	return attribute.String(AttrRAT, rat)
}

// Operation returns an attribute for the PDCP operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// SN returns an attribute for a sequence number.
func SN(sn uint32) attribute.KeyValue {
	return attribute.Int64(AttrSN, int64(sn))
}

// Count returns an attribute for a 32-bit COUNT value.
func Count(count uint32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(count))
}

// ErrorKind returns an attribute naming an error-taxonomy kind.
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// StartBearerSpan starts a span for an operation on a specific bearer,
// tagging it with the bearer id and operation name.
func StartBearerSpan(ctx context.Context, spanName string, bearerID uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{BearerID(bearerID), Operation(spanName)}, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
