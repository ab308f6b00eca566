// Package prometheus is the concrete Prometheus-backed implementation of
// pkg/pdcpmetrics.PDCPMetrics, registered with the facade package through an
// init-time constructor to avoid an import cycle.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/pdcpgo/pkg/pdcpmetrics"
)

func init() {
	pdcpmetrics.RegisterConstructor(New)
}

type pdcpPrometheusMetrics struct {
	writeSDUOps       *prometheus.CounterVec
	writeSDUBytes     *prometheus.HistogramVec
	writeSDUDuration  *prometheus.HistogramVec
	writePDUOps       *prometheus.CounterVec
	writePDUBytes     *prometheus.HistogramVec
	writePDUDuration  *prometheus.HistogramVec
	integrityFailures *prometheus.CounterVec
	cipherFailures    *prometheus.CounterVec
	duplicates        *prometheus.CounterVec
	outOfWindow       *prometheus.CounterVec
	malformedHeader   *prometheus.CounterVec
	bufferExhausted   prometheus.Counter
	countWraparound   *prometheus.CounterVec
	discardExpiry     *prometheus.CounterVec
	reorderExpiry     *prometheus.CounterVec
	statusSent        *prometheus.CounterVec
	statusReceived    *prometheus.CounterVec
	statusAckedTotal  *prometheus.CounterVec
	undeliveredCount  *prometheus.GaugeVec
	reorderDepth      *prometheus.GaugeVec
}

// New creates a Prometheus-backed PDCPMetrics registered against the active
// registry. Returns nil if metrics are not enabled.
func New() pdcpmetrics.PDCPMetrics {
	if !pdcpmetrics.IsEnabled() {
		return nil
	}
	reg := pdcpmetrics.GetRegistry()

	return &pdcpPrometheusMetrics{
		writeSDUOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_write_sdu_operations_total",
			Help: "Total number of write_sdu operations by bearer type (SRB, DRB)",
		}, []string{"bearer_type"}),
		writeSDUBytes: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdcp_write_sdu_bytes",
			Help:    "Distribution of SDU sizes passed to write_sdu",
			Buckets: prometheus.ExponentialBuckets(32, 4, 8),
		}, []string{"bearer_type"}),
		writeSDUDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdcp_write_sdu_duration_seconds",
			Help:    "Duration of write_sdu processing, including ciphering and integrity protection",
			Buckets: prometheus.DefBuckets,
		}, []string{"bearer_type"}),
		writePDUOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_write_pdu_operations_total",
			Help: "Total number of write_pdu operations by bearer type",
		}, []string{"bearer_type"}),
		writePDUBytes: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdcp_write_pdu_bytes",
			Help:    "Distribution of PDU sizes passed to write_pdu",
			Buckets: prometheus.ExponentialBuckets(32, 4, 8),
		}, []string{"bearer_type"}),
		writePDUDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdcp_write_pdu_duration_seconds",
			Help:    "Duration of write_pdu processing, including deciphering, verification, and reordering",
			Buckets: prometheus.DefBuckets,
		}, []string{"bearer_type"}),
		integrityFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_integrity_check_failures_total",
			Help: "Total number of PDUs dropped for a failed MAC-I verification",
		}, []string{"bearer_type"}),
		cipherFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_cipher_failures_total",
			Help: "Total number of PDUs dropped for a deciphering error",
		}, []string{"bearer_type"}),
		duplicates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_duplicate_pdus_total",
			Help: "Total number of PDUs dropped as duplicates of an already-delivered SN",
		}, []string{"bearer_type"}),
		outOfWindow: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_out_of_window_pdus_total",
			Help: "Total number of PDUs dropped for falling outside the reception window",
		}, []string{"bearer_type"}),
		malformedHeader: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_malformed_header_pdus_total",
			Help: "Total number of PDUs dropped for a malformed or truncated header",
		}, []string{"bearer_type"}),
		bufferExhausted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pdcp_buffer_pool_exhausted_total",
			Help: "Total number of allocations refused because the buffer pool was exhausted",
		}),
		countWraparound: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_count_wraparound_imminent_total",
			Help: "Total number of times a bearer signalled COUNT wraparound is imminent",
		}, []string{"bearer_type"}),
		discardExpiry: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_discard_timer_expiries_total",
			Help: "Total number of discard timer expiries (SDU dropped before delivery confirmation)",
		}, []string{"bearer_type"}),
		reorderExpiry: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_reorder_timer_expiries_total",
			Help: "Total number of t-Reordering timer expiries",
		}, []string{"bearer_type"}),
		statusSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_status_reports_sent_total",
			Help: "Total number of PDCP status reports sent",
		}, []string{"bearer_type"}),
		statusReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_status_reports_received_total",
			Help: "Total number of PDCP status reports received",
		}, []string{"bearer_type"}),
		statusAckedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdcp_status_report_acked_sdus_total",
			Help: "Total number of SDUs acknowledged across received status reports",
		}, []string{"bearer_type"}),
		undeliveredCount: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "pdcp_undelivered_sdus",
			Help: "Current size of the undelivered-SDU table, per bearer",
		}, []string{"bearer_id"}),
		reorderDepth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "pdcp_reorder_buffer_depth",
			Help: "Current number of PDUs held in the reception buffer awaiting in-order delivery, per bearer",
		}, []string{"bearer_id"}),
	}
}

func (m *pdcpPrometheusMetrics) ObserveWriteSDU(bearerType string, bytes int, d time.Duration) {
	m.writeSDUOps.WithLabelValues(bearerType).Inc()
	m.writeSDUBytes.WithLabelValues(bearerType).Observe(float64(bytes))
	m.writeSDUDuration.WithLabelValues(bearerType).Observe(d.Seconds())
}

func (m *pdcpPrometheusMetrics) ObserveWritePDU(bearerType string, bytes int, d time.Duration) {
	m.writePDUOps.WithLabelValues(bearerType).Inc()
	m.writePDUBytes.WithLabelValues(bearerType).Observe(float64(bytes))
	m.writePDUDuration.WithLabelValues(bearerType).Observe(d.Seconds())
}

func (m *pdcpPrometheusMetrics) RecordIntegrityFailure(bearerType string) {
	m.integrityFailures.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordCipherFailure(bearerType string) {
	m.cipherFailures.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordDuplicate(bearerType string) {
	m.duplicates.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordOutOfWindow(bearerType string) {
	m.outOfWindow.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordMalformedHeader(bearerType string) {
	m.malformedHeader.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordBufferPoolExhausted() {
	m.bufferExhausted.Inc()
}

func (m *pdcpPrometheusMetrics) RecordCountWraparoundImminent(bearerType string) {
	m.countWraparound.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordDiscardExpiry(bearerType string) {
	m.discardExpiry.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordReorderExpiry(bearerType string) {
	m.reorderExpiry.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordStatusReportSent(bearerType string) {
	m.statusSent.WithLabelValues(bearerType).Inc()
}

func (m *pdcpPrometheusMetrics) RecordStatusReportReceived(bearerType string, acked int) {
	m.statusReceived.WithLabelValues(bearerType).Inc()
	m.statusAckedTotal.WithLabelValues(bearerType).Add(float64(acked))
}

func (m *pdcpPrometheusMetrics) SetUndeliveredCount(bearerID uint32, count int) {
	m.undeliveredCount.WithLabelValues(bearerIDLabel(bearerID)).Set(float64(count))
}

func (m *pdcpPrometheusMetrics) SetReorderBufferDepth(bearerID uint32, depth int) {
	m.reorderDepth.WithLabelValues(bearerIDLabel(bearerID)).Set(float64(depth))
}

func bearerIDLabel(bearerID uint32) string {
	return strconv.FormatUint(uint64(bearerID), 10)
}
