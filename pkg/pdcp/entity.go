package pdcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/pdcpgo/internal/logger"
	"github.com/marmos91/pdcpgo/internal/telemetry"
	"github.com/marmos91/pdcpgo/pkg/bufpool"
	"github.com/marmos91/pdcpgo/pkg/pdcpmetrics"
	"github.com/marmos91/pdcpgo/pkg/pdcpsec"
	"github.com/marmos91/pdcpgo/pkg/pdcptimer"
)

// BearerState mirrors the RRC-driven active/suspended state a PDCP bearer
// is placed in, most commonly across a handover. A suspended bearer rejects
// new SDUs from the upper layer and silently drops inbound PDUs rather than
// processing them against state that is about to be reestablished.
type BearerState uint8

const (
	StateActive BearerState = iota
	StateSuspended
)

func (s BearerState) String() string {
	if s == StateSuspended {
		return "suspended"
	}
	return "active"
}

// PDCPEntity is one configured PDCP bearer: a TX state machine, an RX state
// machine, and the security/timer/registry/telemetry plumbing both share.
// It implements pdcpregistry.Entity so the bearer registry can route discard
// and reordering timer expiries to it by weak handle. NewEntity itself binds
// the entity's own discard and t-Reordering timer sets to its
// HandleDiscardExpiry/HandleReorderExpiry methods directly, not through a
// registry handle.
type PDCPEntity struct {
	mu sync.Mutex

	cfg   BearerConfig
	sec   SecurityConfig
	state BearerState

	engine *pdcpsec.Engine
	rlc    RLC
	upper  UpperLayer
	timers pdcptimer.Factory
	pool   *bufpool.Pool

	metrics pdcpmetrics.PDCPMetrics
	logger  *slog.Logger

	tx *txState
	rx *rxState
}

// NewEntity constructs a PDCPEntity for cfg/sec, wired to rlc below and
// upper above, using timers as its timer factory and pool as its buffer
// pool. metrics may be nil (metrics disabled); logger defaults to the
// package-level logger.With("component", "pdcp") if nil.
func NewEntity(cfg BearerConfig, sec SecurityConfig, rlc RLC, upper UpperLayer, timers pdcptimer.Factory, pool *bufpool.Pool, metrics pdcpmetrics.PDCPMetrics, log *slog.Logger) (*PDCPEntity, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sec.Validate(); err != nil {
		return nil, err
	}
	if rlc == nil || upper == nil || timers == nil || pool == nil {
		return nil, fmt.Errorf("%w: rlc, upper, timers and pool must all be non-nil", ErrInvalidBearerConfig)
	}
	if log == nil {
		log = logger.With("component", "pdcp", "bearer_id", cfg.BearerID)
	}

	e := &PDCPEntity{
		cfg:     cfg,
		sec:     sec,
		engine:  pdcpsec.NewEngine(),
		rlc:     rlc,
		upper:   upper,
		timers:  timers,
		pool:    pool,
		metrics: metrics,
		logger:  log,
	}

	e.tx = newTXState(cfg, sec, e.engine, rlc, pool, timers, metrics, log, e.HandleDiscardExpiry)
	e.rx = newRXState(cfg, sec, e.engine, upper, timers, metrics, log, e.HandleReorderExpiry)

	return e, nil
}

// BearerID implements pdcpregistry.Entity.
func (e *PDCPEntity) BearerID() uint32 {
	return e.cfg.BearerID
}

// WriteSDU implements write_sdu: accepts an SDU from the upper layer,
// packs/protects it and hands it to RLC.
func (e *PDCPEntity) WriteSDU(ctx context.Context, sdu []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSuspended {
		return ErrBearerSuspended
	}

	ctx, span := telemetry.StartSpan(ctx, "write_sdu")
	defer span.End()
	telemetry.SetAttributes(ctx,
		attrBearerID(e.cfg.BearerID),
		attrRAT(e.cfg.RAT),
		attrCount(e.tx.count),
	)

	start := time.Now()
	err := e.tx.writeSDU(sdu)
	pdcpmetrics.ObserveWriteSDU(e.metrics, e.cfg.Type.String(), len(sdu), time.Since(start))

	if err != nil {
		telemetry.RecordError(ctx, err)
		e.logger.Error("pdcp: write_sdu failed", "bearer_id", e.cfg.BearerID, "error", err)
	}
	return err
}

// WritePDU implements write_pdu: accepts a PDU received from RLC, parses its
// header, and either routes it to the RX state machine (data PDU) or
// consumes it as a status report (control PDU, DRB only).
func (e *PDCPEntity) WritePDU(ctx context.Context, pdu []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSuspended {
		e.logger.Warn("pdcp: dropping PDU, bearer suspended", "bearer_id", e.cfg.BearerID)
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "write_pdu")
	defer span.End()
	telemetry.SetAttributes(ctx, attrBearerID(e.cfg.BearerID), attrRAT(e.cfg.RAT))

	start := time.Now()
	defer func() {
		pdcpmetrics.ObserveWritePDU(e.metrics, e.cfg.Type.String(), len(pdu), time.Since(start))
	}()

	h, rest, err := parseHeader(e.cfg.Type, e.cfg.SNLength, pdu)
	if err != nil {
		pdcpmetrics.RecordMalformedHeader(e.metrics, e.cfg.Type.String())
		e.logger.Warn("pdcp: dropping PDU, malformed header", "bearer_id", e.cfg.BearerID)
		return nil
	}

	if h.isControl {
		report, err := parseStatusReport(e.cfg.SNLength, int(e.cfg.SNLength.Window()), pdu)
		if err != nil {
			pdcpmetrics.RecordMalformedHeader(e.metrics, e.cfg.Type.String())
			e.logger.Warn("pdcp: dropping control PDU, malformed status report", "bearer_id", e.cfg.BearerID)
			return nil
		}
		e.tx.handleStatusReport(report)
		return nil
	}

	e.rx.handlePDU(h.sn, rest)
	return nil
}

// Configure implements configure: replaces the static bearer shape (SN
// length, timer durations, discard/reorder policy). Security parameters are
// handled separately by ConfigSecurity.
func (e *PDCPEntity) Configure(cfg BearerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cfg.BearerID = e.cfg.BearerID // bearer identity is immutable post-construction
	e.cfg = cfg
	e.tx.cfg = cfg
	e.rx.cfg = cfg
	return nil
}

// ConfigSecurity implements config_security: installs a new SecurityConfig
// wholesale, typically carrying fresh keys from a AS security context
// activation or a reestablishment.
func (e *PDCPEntity) ConfigSecurity(sec SecurityConfig) error {
	if err := sec.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sec = sec
	e.tx.sec = sec
	e.rx.sec = sec
	return nil
}

// EnableIntegrity implements enable_integrity: sets which directions
// integrity protection is active on without touching key material or
// algorithm selection.
func (e *PDCPEntity) EnableIntegrity(mask DirectionEnable) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sec.IntegrityEnabled = mask
	e.tx.sec.IntegrityEnabled = mask
	e.rx.sec.IntegrityEnabled = mask
}

// EnableEncryption implements enable_encryption: sets which directions
// ciphering is active on.
func (e *PDCPEntity) EnableEncryption(mask DirectionEnable) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sec.CipherEnabled = mask
	e.tx.sec.CipherEnabled = mask
	e.rx.sec.CipherEnabled = mask
}

// SetBearerState implements set_bearer_state: moves the bearer between
// active and suspended, the state an RRC-driven handover places a bearer in
// while the target cell's security context is being established.
func (e *PDCPEntity) SetBearerState(state BearerState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// SendStatusReport implements send_status_report: builds and packs the
// current status report, refusing with ErrStatusReportNotSupported unless
// the bearer's StatusReportRequired flag is set.
func (e *PDCPEntity) SendStatusReport() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.StatusReportRequired {
		return nil, ErrStatusReportNotSupported
	}

	correlationID := uuid.New()
	e.logger.Info("pdcp: sending status report", "bearer_id", e.cfg.BearerID, "correlation_id", correlationID)

	report := e.rx.buildStatusReport()
	return packStatusReport(e.cfg.SNLength, int(e.cfg.SNLength.Window()), report), nil
}

// NotifyDelivery implements notify_delivery: the RLC layer (or an
// out-of-band acknowledgement path) confirms sns were successfully
// delivered to the peer, releasing their discard timers and undelivered
// table entries.
func (e *PDCPEntity) NotifyDelivery(sns []uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tx.notifyDelivery(sns)
}

// Reestablish implements reestablish: resets both TX and RX state machines
// to their initial values (COUNT back to zero, undelivered table and
// reception buffer cleared, all timers cancelled) without discarding the
// bearer's configuration. Callers must follow with ConfigSecurity to install
// fresh keys before resuming traffic, per the handover design note.
func (e *PDCPEntity) Reestablish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	correlationID := uuid.New()
	e.logger.Info("pdcp: reestablishing bearer", "bearer_id", e.cfg.BearerID, "correlation_id", correlationID)

	e.tx.reset()
	e.rx.reset()
}

// Teardown implements teardown: stops every outstanding timer and releases
// the entity's resources. The entity must not be used afterwards; the
// caller is responsible for unregistering it from the bearer registry.
func (e *PDCPEntity) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tx.reset()
	e.rx.reset()
	e.state = StateSuspended
}

// HandleDiscardExpiry implements pdcpregistry.Entity.
func (e *PDCPEntity) HandleDiscardExpiry(sn uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tx.handleDiscardExpiry(sn)
}

// HandleReorderExpiry implements pdcpregistry.Entity.
func (e *PDCPEntity) HandleReorderExpiry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rx.handleReorderExpiry()
}

// State reports the bearer's current active/suspended state.
func (e *PDCPEntity) State() BearerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PersistedState exports the five-field handover state of spec.md §6.4 so a
// caller can carry it across a process restart or a handover to another
// node. NR bearers export the equivalent TX_NEXT/RX_NEXT/RX_DELIV triple in
// the same field order the LTE layout uses for tx_hfn/rx_hfn/last_submitted.
func (e *PDCPEntity) PersistedState() PersistedState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.RAT == NR {
		return PersistedState{
			TxHFN:                 e.tx.count >> uint(e.cfg.SNLength),
			NextPDCPTxSN:          e.tx.count & e.cfg.SNLength.MaxSN(),
			RxHFN:                 e.rx.rxDeliv >> uint(e.cfg.SNLength),
			NextPDCPRxSN:          e.rx.rxNext & e.cfg.SNLength.MaxSN(),
			LastSubmittedPDCPRxSN: e.rx.rxDeliv & e.cfg.SNLength.MaxSN(),
		}
	}
	return PersistedState{
		TxHFN:                 e.tx.count >> uint(e.cfg.SNLength),
		NextPDCPTxSN:          e.tx.count & e.cfg.SNLength.MaxSN(),
		RxHFN:                 e.rx.rxHFN,
		NextPDCPRxSN:          e.rx.nextRxSN,
		LastSubmittedPDCPRxSN: e.rx.lastSubmittedRxSN,
	}
}

// RestoreState installs a previously exported PersistedState, used when
// reattaching an entity to a context recovered from a handover or process
// restart.
func (e *PDCPEntity) RestoreState(s PersistedState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tx.count = (s.TxHFN << uint(e.cfg.SNLength)) | s.NextPDCPTxSN
	if e.cfg.RAT == NR {
		e.rx.rxDeliv = (s.RxHFN << uint(e.cfg.SNLength)) | s.LastSubmittedPDCPRxSN
		e.rx.rxNext = (s.RxHFN << uint(e.cfg.SNLength)) | s.NextPDCPRxSN
		if e.rx.rxNext < e.rx.rxDeliv {
			e.rx.rxNext += e.cfg.SNLength.Modulus()
		}
		e.rx.rxReord = e.rx.rxDeliv
		return
	}
	e.rx.rxHFN = s.RxHFN
	e.rx.nextRxSN = s.NextPDCPRxSN
	e.rx.lastSubmittedRxSN = s.LastSubmittedPDCPRxSN
	e.rx.hasSubmitted = true
}
