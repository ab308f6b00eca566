// Package pdcpmetrics is the nil-safe metrics facade PDCP entities report
// through. When metrics are disabled, NewPDCPMetrics returns a nil
// PDCPMetrics and every Observe/Record free function becomes a no-op, so a
// bearer running with metrics off pays nothing beyond a nil check.
package pdcpmetrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool
var registry atomic.Pointer[prometheus.Registry]

// InitRegistry enables metrics collection and installs reg as the registry
// new Prometheus collectors are registered against. Calling it more than
// once replaces the registry used by subsequently-created metrics.
func InitRegistry(reg *prometheus.Registry) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	registry.Store(reg)
	enabled.Store(true)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry.Load()
}

// PDCPMetrics is the full set of signals a PDCP entity reports. It mirrors
// the error taxonomy and timer events a bearer can raise; every method is
// cheap enough to call unconditionally on the hot write_sdu/write_pdu path.
type PDCPMetrics interface {
	ObserveWriteSDU(bearerType string, bytes int, duration time.Duration)
	ObserveWritePDU(bearerType string, bytes int, duration time.Duration)
	RecordIntegrityFailure(bearerType string)
	RecordCipherFailure(bearerType string)
	RecordDuplicate(bearerType string)
	RecordOutOfWindow(bearerType string)
	RecordMalformedHeader(bearerType string)
	RecordBufferPoolExhausted()
	RecordCountWraparoundImminent(bearerType string)
	RecordDiscardExpiry(bearerType string)
	RecordReorderExpiry(bearerType string)
	RecordStatusReportSent(bearerType string)
	RecordStatusReportReceived(bearerType string, acked int)
	SetUndeliveredCount(bearerID uint32, count int)
	SetReorderBufferDepth(bearerID uint32, depth int)
}

// NewPDCPMetrics creates a Prometheus-backed PDCPMetrics. Returns nil if
// metrics are not enabled (InitRegistry not called); callers should pass nil
// through unconditionally in that case.
func NewPDCPMetrics() PDCPMetrics {
	if !IsEnabled() || newPrometheusPDCPMetrics == nil {
		return nil
	}
	return newPrometheusPDCPMetrics()
}

// newPrometheusPDCPMetrics is wired by pkg/pdcpmetrics/prometheus during its
// package init, avoiding an import cycle between this facade and its
// concrete Prometheus-backed implementation.
var newPrometheusPDCPMetrics func() PDCPMetrics

// RegisterConstructor installs the Prometheus metrics constructor. Called
// from pkg/pdcpmetrics/prometheus's init().
func RegisterConstructor(constructor func() PDCPMetrics) {
	newPrometheusPDCPMetrics = constructor
}

func ObserveWriteSDU(m PDCPMetrics, bearerType string, bytes int, d time.Duration) {
	if m != nil {
		m.ObserveWriteSDU(bearerType, bytes, d)
	}
}

func ObserveWritePDU(m PDCPMetrics, bearerType string, bytes int, d time.Duration) {
	if m != nil {
		m.ObserveWritePDU(bearerType, bytes, d)
	}
}

func RecordIntegrityFailure(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordIntegrityFailure(bearerType)
	}
}

func RecordCipherFailure(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordCipherFailure(bearerType)
	}
}

func RecordDuplicate(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordDuplicate(bearerType)
	}
}

func RecordOutOfWindow(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordOutOfWindow(bearerType)
	}
}

func RecordMalformedHeader(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordMalformedHeader(bearerType)
	}
}

func RecordBufferPoolExhausted(m PDCPMetrics) {
	if m != nil {
		m.RecordBufferPoolExhausted()
	}
}

func RecordCountWraparoundImminent(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordCountWraparoundImminent(bearerType)
	}
}

func RecordDiscardExpiry(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordDiscardExpiry(bearerType)
	}
}

func RecordReorderExpiry(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordReorderExpiry(bearerType)
	}
}

func RecordStatusReportSent(m PDCPMetrics, bearerType string) {
	if m != nil {
		m.RecordStatusReportSent(bearerType)
	}
}

func RecordStatusReportReceived(m PDCPMetrics, bearerType string, acked int) {
	if m != nil {
		m.RecordStatusReportReceived(bearerType, acked)
	}
}

func SetUndeliveredCount(m PDCPMetrics, bearerID uint32, count int) {
	if m != nil {
		m.SetUndeliveredCount(bearerID, count)
	}
}

func SetReorderBufferDepth(m PDCPMetrics, bearerID uint32, depth int) {
	if m != nil {
		m.SetReorderBufferDepth(bearerID, depth)
	}
}
