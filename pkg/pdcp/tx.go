package pdcp

import (
	"log/slog"

	"github.com/marmos91/pdcpgo/pkg/bufpool"
	"github.com/marmos91/pdcpgo/pkg/pdcpmetrics"
	"github.com/marmos91/pdcpgo/pkg/pdcpsec"
	"github.com/marmos91/pdcpgo/pkg/pdcptimer"
)

// txMaxPDUSize bounds a single PDU's packed size (header + ciphertext +
// MAC-I) passed through the buffer pool. It is generous relative to any
// realistic SDU carried over a radio bearer; the point is a hard ceiling
// exists at all; see DESIGN.md's pkg/bufpool entry.
const txMaxPDUSize = 1 << 20

// txState is the transmit half of a PDCP entity. LTE and NR share the same
// TX algorithm shape (spec.md §4.2, §4.4): assign the next COUNT, pack the
// header, integrity-protect, cipher, hand off to RLC, and arm a discard
// timer — only the header's bit width and the represented state field names
// differ between the two RATs, and both collapse to a single uint32 COUNT
// counter here.
type txState struct {
	cfg    BearerConfig
	sec    SecurityConfig
	engine *pdcpsec.Engine
	rlc    RLC
	pool   *bufpool.Pool

	metrics pdcpmetrics.PDCPMetrics
	logger  *slog.Logger

	count       uint32 // next COUNT to assign (tx_hfn<<snLen|next_pdcp_tx_sn for LTE, TX_NEXT for NR)
	exhausted   bool
	undelivered *undeliveredTable
	discard     *pdcptimer.Set

	pendingStatus *StatusReport // not set or read; handleStatusReport applies each report as it arrives
}

func newTXState(cfg BearerConfig, sec SecurityConfig, engine *pdcpsec.Engine, rlc RLC, pool *bufpool.Pool, timers pdcptimer.Factory, metrics pdcpmetrics.PDCPMetrics, logger *slog.Logger, onDiscardExpiry func(sn uint32)) *txState {
	tx := &txState{
		cfg:         cfg,
		sec:         sec,
		engine:      engine,
		rlc:         rlc,
		pool:        pool,
		metrics:     metrics,
		logger:      logger,
		undelivered: newUndeliveredTable(cfg.undeliveredLimit()),
	}
	tx.discard = pdcptimer.NewSet(timers, cfg.DiscardTimer, onDiscardExpiry)
	return tx
}

// writeSDU assigns the next COUNT to sdu, packs and protects it, hands the
// resulting PDU to RLC, and — for DRBs only, per spec.md §4.2 step 7 — stores
// it in the undelivered-SDU table and arms the discard timer. Returns
// ErrCountExhausted once this bearer's security context has processed COUNT
// 2^32-1 and ErrUndeliveredTableFull once the undelivered-SDU bound (spec.md's
// TX window cardinality, per SPEC_FULL.md) is reached.
func (tx *txState) writeSDU(sdu []byte) error {
	if tx.exhausted {
		return ErrCountExhausted
	}

	count := tx.count
	sn := count & tx.cfg.SNLength.MaxSN()
	trackDiscard := tx.cfg.Type == DRB

	if trackDiscard && !tx.undelivered.add(sn, count) {
		return ErrUndeliveredTableFull
	}

	header := packHeader(tx.cfg.Type, tx.cfg.SNLength, sn)

	txDir := tx.cfg.TXDirection
	integrityOn := tx.sec.IntegrityEnabled.Enabled(txDir, txDir)
	cipherOn := tx.sec.CipherEnabled.Enabled(txDir, txDir)

	var mac [pdcpsec.MACLen]byte
	if integrityOn {
		message := make([]byte, 0, len(header)+len(sdu))
		message = append(message, header...)
		message = append(message, sdu...)

		var err error
		mac, err = tx.engine.Integrity(tx.sec.IntegrityAlgorithm).ComputeMAC(pdcpsec.IntegrityInput{
			Key:       tx.sec.IntegrityKey,
			Count:     count,
			Bearer:    tx.cfg.bearerID5Bit(),
			Direction: txDir,
			Message:   message,
		})
		if err != nil {
			if trackDiscard {
				tx.undelivered.remove(sn)
			}
			return err
		}
	}

	ciphertext := sdu
	if cipherOn {
		out, err := tx.engine.Cipher(tx.sec.CipherAlgorithm).Cipher(pdcpsec.CipherInput{
			Key:       tx.sec.CipherKey,
			Count:     count,
			Bearer:    tx.cfg.bearerID5Bit(),
			Direction: txDir,
			Payload:   sdu,
		})
		if err != nil {
			if trackDiscard {
				tx.undelivered.remove(sn)
			}
			return err
		}
		ciphertext = out
	}

	total := len(header) + len(ciphertext)
	if integrityOn {
		total += pdcpsec.MACLen
	}

	buf, err := tx.pool.GetBounded(total, txMaxPDUSize)
	if err != nil {
		if trackDiscard {
			tx.undelivered.remove(sn)
		}
		pdcpmetrics.RecordBufferPoolExhausted(tx.metrics)
		tx.logger.Error("pdcp: buffer pool exhausted building PDU", "bearer_id", tx.cfg.BearerID, "size", total)
		return ErrBufferPoolExhausted
	}
	buf = buf[:0]
	buf = append(buf, header...)
	buf = append(buf, ciphertext...)
	if integrityOn {
		buf = append(buf, mac[:]...)
	}

	if err := tx.rlc.WriteSDU(tx.cfg.BearerID, buf); err != nil {
		if trackDiscard {
			tx.undelivered.remove(sn)
		}
		return err
	}

	if trackDiscard {
		tx.discard.Arm(sn)
		pdcpmetrics.SetUndeliveredCount(tx.metrics, tx.cfg.BearerID, tx.undelivered.count())
	}

	if count == countMax {
		tx.exhausted = true
		pdcpmetrics.RecordCountWraparoundImminent(tx.metrics, tx.cfg.Type.String())
	} else {
		tx.count++
	}

	return nil
}

// handleDiscardExpiry removes sn from the undelivered table and tells RLC to
// drop the SDU it's holding for it, per spec.md §4.7, without notifying the
// upper layer of success or failure — a discard timer firing means delivery
// was neither confirmed nor denied, only abandoned.
func (tx *txState) handleDiscardExpiry(sn uint32) {
	if !tx.undelivered.remove(sn) {
		return
	}

	if err := tx.rlc.DiscardSDU(tx.cfg.BearerID, sn); err != nil {
		tx.logger.Warn("pdcp: rlc discard_sdu failed", "bearer_id", tx.cfg.BearerID, "sn", sn, "error", err)
	}

	pdcpmetrics.RecordDiscardExpiry(tx.metrics, tx.cfg.Type.String())
	pdcpmetrics.SetUndeliveredCount(tx.metrics, tx.cfg.BearerID, tx.undelivered.count())
}

// notifyDelivery marks every SN in sns as confirmed delivered, cancelling
// their discard timers and removing them from the undelivered table.
func (tx *txState) notifyDelivery(sns []uint32) {
	for _, sn := range sns {
		tx.discard.Cancel(sn)
		tx.undelivered.remove(sn)
	}
	pdcpmetrics.SetUndeliveredCount(tx.metrics, tx.cfg.BearerID, tx.undelivered.count())
}

// handleStatusReport consumes a status report received from the peer: every
// undelivered SN other than FMS itself that is not marked in Missing is
// acknowledged, and FMS plus every SN marked in Missing is left outstanding.
func (tx *txState) handleStatusReport(r StatusReport) {
	// FMS is the lowest SN the peer has not yet delivered, so every
	// outstanding SN below it (all of which fall outside the reported
	// bitmap's range) is implicitly acknowledged; within the bitmap's
	// range, only the SNs not explicitly marked Missing are acknowledged.
	var acked []uint32
	for sn := range tx.undelivered.entries {
		if sn == r.FMS || r.Missing[sn] {
			continue
		}
		acked = append(acked, sn)
	}

	tx.notifyDelivery(acked)
	pdcpmetrics.RecordStatusReportReceived(tx.metrics, tx.cfg.Type.String(), len(acked))
}

func (tx *txState) reset() {
	tx.count = 0
	tx.exhausted = false
	tx.undelivered.clear()
	tx.discard.CancelAll()
}
