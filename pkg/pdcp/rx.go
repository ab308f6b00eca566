package pdcp

import (
	"log/slog"
	"sort"

	"github.com/marmos91/pdcpgo/pkg/pdcpmetrics"
	"github.com/marmos91/pdcpgo/pkg/pdcpsec"
	"github.com/marmos91/pdcpgo/pkg/pdcptimer"
)

// reorderTimerSN is the key the NR t-Reordering timer is armed under in a
// pdcptimer.Set. A bearer only ever has one reordering timer running at a
// time, but Set is built around a per-SN keyspace, so the timer is simply
// parked at a fixed sentinel key.
const reorderTimerSN = 0

// rxState is the receive half of a PDCP entity. LTE delivers on receipt with
// duplicate suppression (spec.md §4.3); NR reorders by COUNT against
// RX_NEXT/RX_DELIV/RX_REORD and a t-Reordering timer (spec.md §4.5). Both
// share header parsing, COUNT resolution and the security engine calls
// below; the delivery discipline is the only place they diverge, so it is
// dispatched on cfg.RAT rather than duplicated as two entity types.
type rxState struct {
	cfg     BearerConfig
	sec     SecurityConfig
	engine  *pdcpsec.Engine
	upper   UpperLayer
	metrics pdcpmetrics.PDCPMetrics
	logger  *slog.Logger

	reorderTimer *pdcptimer.Set

	// LTE state (spec.md §6.3 LTE variant).
	rxHFN             uint32
	nextRxSN          uint32
	lastSubmittedRxSN uint32
	hasSubmitted      bool

	// receivedLTE tracks, by COUNT, every LTE PDU received above the
	// contiguous (rxHFN,nextRxSN) frontier: LTE delivers on receipt
	// regardless of order, but last_submitted_pdcp_rx_sn (and therefore a
	// status report's FMS) only advances through a gap-free run, so a PDU
	// that arrives ahead of a gap is remembered here until the gap fills in.
	receivedLTE map[uint32]bool

	// NR state (spec.md §6.3 NR variant).
	rxNext         uint32
	rxDeliv        uint32
	rxReord        uint32
	reorderRunning bool
	buffer         map[uint32][]byte // keyed by COUNT

	exhausted bool
}

func newRXState(cfg BearerConfig, sec SecurityConfig, engine *pdcpsec.Engine, upper UpperLayer, timers pdcptimer.Factory, metrics pdcpmetrics.PDCPMetrics, logger *slog.Logger, onReorderExpiry func()) *rxState {
	rx := &rxState{
		cfg:         cfg,
		sec:         sec,
		engine:      engine,
		upper:       upper,
		metrics:     metrics,
		logger:      logger,
		buffer:      make(map[uint32][]byte),
		receivedLTE: make(map[uint32]bool),
	}
	rx.reorderTimer = pdcptimer.NewSet(timers, cfg.ReorderTimer, func(uint32) { onReorderExpiry() })
	return rx
}

// anchorCount returns the COUNT this bearer's window-resolution rule
// currently resolves received SNs against: (rx_hfn, next_pdcp_rx_sn) for
// LTE, RX_NEXT for NR per spec.md §4.5 step 1.
func (rx *rxState) anchorCount() uint32 {
	if rx.cfg.RAT == NR {
		return rx.rxNext
	}
	return (rx.rxHFN << uint(rx.cfg.SNLength)) | rx.nextRxSN
}

// handlePDU processes one data PDU: sn is the SN already parsed from the
// header, body is everything after the header (ciphertext, optionally
// followed by a MAC-I trailer).
func (rx *rxState) handlePDU(sn uint32, body []byte) {
	if rx.exhausted {
		return
	}

	count := resolveCount(rx.anchorCount(), rx.cfg.SNLength, sn)

	if rx.cfg.RAT == NR {
		rx.handlePDUNR(sn, count, body)
		return
	}
	rx.handlePDULTE(sn, count, body)
}

// decipherAndVerify splits the MAC-I trailer off body (if integrity is
// enabled for this bearer's RX direction), deciphers the remainder (if
// ciphering is enabled for RX), and verifies the MAC-I against the
// reconstructed header. It returns the plaintext SDU and a dropReason that
// is dropNone on success.
func (rx *rxState) decipherAndVerify(sn uint32, count uint32, body []byte) ([]byte, dropReason) {
	rxDir := rx.cfg.rxDirection()
	integrityOn := rx.sec.IntegrityEnabled.Enabled(rxDir, rx.cfg.TXDirection)
	cipherOn := rx.sec.CipherEnabled.Enabled(rxDir, rx.cfg.TXDirection)

	ciphertext := body
	var receivedMAC [pdcpsec.MACLen]byte
	if integrityOn {
		if len(body) < pdcpsec.MACLen {
			return nil, dropMalformedHeader
		}
		split := len(body) - pdcpsec.MACLen
		ciphertext = body[:split]
		copy(receivedMAC[:], body[split:])
	}

	plaintext := ciphertext
	if cipherOn {
		out, err := rx.engine.Cipher(rx.sec.CipherAlgorithm).Cipher(pdcpsec.CipherInput{
			Key:       rx.sec.CipherKey,
			Count:     count,
			Bearer:    rx.cfg.bearerID5Bit(),
			Direction: rxDir,
			Payload:   ciphertext,
		})
		if err != nil {
			return nil, dropCipherFailure
		}
		plaintext = out
	}

	if integrityOn {
		header := packHeader(rx.cfg.Type, rx.cfg.SNLength, sn)
		message := make([]byte, 0, len(header)+len(plaintext))
		message = append(message, header...)
		message = append(message, plaintext...)

		ok, err := pdcpsec.VerifyMAC(rx.engine.Integrity(rx.sec.IntegrityAlgorithm), pdcpsec.IntegrityInput{
			Key:       rx.sec.IntegrityKey,
			Count:     count,
			Bearer:    rx.cfg.bearerID5Bit(),
			Direction: rxDir,
			Message:   message,
		}, receivedMAC)
		if err != nil || !ok {
			return nil, dropIntegrityFailure
		}
	}

	return plaintext, dropNone
}

func (rx *rxState) latchIfExhausted(count uint32) {
	if count == countMax {
		rx.exhausted = true
		rx.upper.NotifyCountWraparound(rx.cfg.BearerID)
	}
}

// handlePDULTE implements the LTE RX algorithm (spec.md §4.3): resolve
// COUNT, reject duplicates/out-of-window PDUs, decipher, verify, and deliver
// immediately regardless of order (RLC-AM semantics: PDCP only suppresses
// duplicates, it never withholds a PDU waiting on a gap). last_submitted_
// pdcp_rx_sn only advances through a gap-free run starting at the current
// frontier, so a PDU arriving ahead of a gap is remembered in receivedLTE
// until the gap fills in; that memory is what lets buildStatusReport report
// real reception gaps instead of just the newest SN seen.
func (rx *rxState) handlePDULTE(sn uint32, count uint32, body []byte) {
	if rx.hasSubmitted {
		lastCount := (rx.rxHFN << uint(rx.cfg.SNLength)) | rx.lastSubmittedRxSN
		if count == lastCount {
			rx.drop(dropDuplicate)
			return
		}
		if count < lastCount {
			rx.drop(dropOutOfWindow)
			return
		}
	}
	if rx.receivedLTE[count] {
		rx.drop(dropDuplicate)
		return
	}

	plaintext, reason := rx.decipherAndVerify(sn, count, body)
	if reason != dropNone {
		rx.drop(reason)
		return
	}

	rx.receivedLTE[count] = true
	rx.upper.DeliverSDU(rx.cfg.BearerID, plaintext)
	rx.advanceLTEFrontier()
	rx.latchIfExhausted(count)
}

// advanceLTEFrontier folds every contiguously-received COUNT starting at the
// current (rxHFN, nextRxSN) frontier into last_submitted_pdcp_rx_sn, pruning
// each one from receivedLTE as it is folded in. Entries left behind are
// exactly the SNs still missing above the new frontier.
func (rx *rxState) advanceLTEFrontier() {
	for {
		next := (rx.rxHFN << uint(rx.cfg.SNLength)) | rx.nextRxSN
		if !rx.receivedLTE[next] {
			return
		}
		delete(rx.receivedLTE, next)
		rx.lastSubmittedRxSN = rx.nextRxSN
		rx.nextRxSN = (rx.nextRxSN + 1) & rx.cfg.SNLength.MaxSN()
		if rx.nextRxSN == 0 {
			rx.rxHFN++
		}
		rx.hasSubmitted = true
	}
}

// handlePDUNR implements the NR RX reordering algorithm (spec.md §4.5):
// duplicates (COUNT < RX_DELIV or already buffered) are dropped before any
// crypto work; otherwise the PDU is deciphered, verified, buffered by
// COUNT, and in-order SDUs are released starting at RX_DELIV. The
// t-Reordering timer tracks whether a gap is still outstanding.
func (rx *rxState) handlePDUNR(sn uint32, count uint32, body []byte) {
	if count < rx.rxDeliv {
		rx.drop(dropDuplicate)
		return
	}
	if _, ok := rx.buffer[count]; ok {
		rx.drop(dropDuplicate)
		return
	}

	plaintext, reason := rx.decipherAndVerify(sn, count, body)
	if reason != dropNone {
		rx.drop(reason)
		return
	}

	rx.buffer[count] = plaintext
	pdcpmetrics.SetReorderBufferDepth(rx.metrics, rx.cfg.BearerID, len(rx.buffer))

	if count >= rx.rxNext {
		rx.rxNext = count + 1
	}

	if count == rx.rxDeliv {
		rx.deliverInOrder()
	}

	if rx.reorderRunning && rx.rxDeliv >= rx.rxReord {
		rx.reorderTimer.Cancel(reorderTimerSN)
		rx.reorderRunning = false
	}
	if !rx.reorderRunning && rx.rxDeliv < rx.rxNext {
		rx.rxReord = rx.rxNext
		rx.reorderTimer.Arm(reorderTimerSN)
		rx.reorderRunning = true
	}

	rx.latchIfExhausted(count)
}

// deliverInOrder releases every contiguously-buffered SDU starting at
// RX_DELIV, advancing RX_DELIV to the first COUNT still missing.
func (rx *rxState) deliverInOrder() {
	for {
		sdu, ok := rx.buffer[rx.rxDeliv]
		if !ok {
			break
		}
		delete(rx.buffer, rx.rxDeliv)
		rx.upper.DeliverSDU(rx.cfg.BearerID, sdu)
		rx.rxDeliv++
	}
	pdcpmetrics.SetReorderBufferDepth(rx.metrics, rx.cfg.BearerID, len(rx.buffer))
}

// handleReorderExpiry is invoked when the t-Reordering timer fires. Per
// spec.md §4.5: deliver every buffered SDU up to (but not including)
// RX_REORD, advance RX_DELIV to the first COUNT >= RX_REORD still missing,
// and restart the timer if a gap remains.
func (rx *rxState) handleReorderExpiry() {
	rx.reorderRunning = false

	counts := make([]uint32, 0, len(rx.buffer))
	for c := range rx.buffer {
		if c < rx.rxReord {
			counts = append(counts, c)
		}
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })

	for _, c := range counts {
		sdu := rx.buffer[c]
		delete(rx.buffer, c)
		rx.upper.DeliverSDU(rx.cfg.BearerID, sdu)
	}

	if rx.rxDeliv < rx.rxReord {
		rx.rxDeliv = rx.rxReord
		rx.deliverInOrder()
	}

	pdcpmetrics.RecordReorderExpiry(rx.metrics, rx.cfg.Type.String())
	pdcpmetrics.SetReorderBufferDepth(rx.metrics, rx.cfg.BearerID, len(rx.buffer))

	if rx.rxDeliv < rx.rxNext {
		rx.rxReord = rx.rxNext
		rx.reorderTimer.Arm(reorderTimerSN)
		rx.reorderRunning = true
	}
}

func (rx *rxState) drop(reason dropReason) {
	switch reason {
	case dropIntegrityFailure:
		pdcpmetrics.RecordIntegrityFailure(rx.metrics, rx.cfg.Type.String())
		rx.logger.Warn("pdcp: dropping PDU, integrity check failed", "bearer_id", rx.cfg.BearerID)
		rx.upper.NotifyIntegrityFailure(rx.cfg.BearerID)
	case dropCipherFailure:
		pdcpmetrics.RecordCipherFailure(rx.metrics, rx.cfg.Type.String())
		rx.logger.Warn("pdcp: dropping PDU, deciphering failed", "bearer_id", rx.cfg.BearerID)
	case dropDuplicate:
		pdcpmetrics.RecordDuplicate(rx.metrics, rx.cfg.Type.String())
		rx.logger.Warn("pdcp: dropping duplicate PDU", "bearer_id", rx.cfg.BearerID)
	case dropOutOfWindow:
		pdcpmetrics.RecordOutOfWindow(rx.metrics, rx.cfg.Type.String())
		rx.logger.Warn("pdcp: dropping out-of-window PDU", "bearer_id", rx.cfg.BearerID)
	case dropMalformedHeader:
		pdcpmetrics.RecordMalformedHeader(rx.metrics, rx.cfg.Type.String())
		rx.logger.Warn("pdcp: dropping malformed PDU", "bearer_id", rx.cfg.BearerID)
	}
}

// buildStatusReport constructs the current status report for this bearer:
// FMS is the lowest outstanding SN (RX_DELIV/next_pdcp_rx_sn) and the bitmap
// covers the configured window above it, per spec.md §4.6. Bearer-type is
// deliberately not consulted here — see SPEC_FULL.md's status-report open
// question resolution.
func (rx *rxState) buildStatusReport() StatusReport {
	window := int(rx.cfg.SNLength.Window())
	modulus := rx.cfg.SNLength.Modulus()

	var fms uint32
	missing := make(map[uint32]bool)

	if rx.cfg.RAT == NR {
		fms = rx.rxDeliv % modulus
		for i := 0; i < window; i++ {
			count := rx.rxDeliv + 1 + uint32(i)
			if _, ok := rx.buffer[count]; !ok {
				missing[count%modulus] = true
			}
		}
	} else {
		fms = rx.nextRxSN
		base := (rx.rxHFN << uint(rx.cfg.SNLength)) | rx.nextRxSN
		for i := 0; i < window; i++ {
			count := base + 1 + uint32(i)
			if !rx.receivedLTE[count] {
				missing[count%modulus] = true
			}
		}
	}

	pdcpmetrics.RecordStatusReportSent(rx.metrics, rx.cfg.Type.String())
	return StatusReport{FMS: fms, Missing: missing}
}

func (rx *rxState) reset() {
	rx.rxHFN = 0
	rx.nextRxSN = 0
	rx.lastSubmittedRxSN = 0
	rx.hasSubmitted = false
	rx.receivedLTE = make(map[uint32]bool)
	rx.rxNext = 0
	rx.rxDeliv = 0
	rx.rxReord = 0
	rx.reorderRunning = false
	rx.buffer = make(map[uint32][]byte)
	rx.exhausted = false
	rx.reorderTimer.CancelAll()
}
