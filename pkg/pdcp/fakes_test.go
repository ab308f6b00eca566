package pdcp

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

// discardLogger returns a slog.Logger that drops everything, for tests that
// construct an rxState/txState directly and need a non-nil logger.
func discardLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRLC is a minimal in-memory RLC collaborator for TX-side tests: every
// PDU handed to WriteSDU is copied and retained in order, and every SN
// handed to DiscardSDU is recorded for assertion.
type fakeRLC struct {
	mu        sync.Mutex
	pdus      [][]byte
	err       error
	discarded []uint32
}

func (f *fakeRLC) WriteSDU(lcid uint32, pdu []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := append([]byte(nil), pdu...)
	f.pdus = append(f.pdus, cp)
	return nil
}

func (f *fakeRLC) DiscardSDU(lcid uint32, sn uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, sn)
	return nil
}

func (f *fakeRLC) discardCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.discarded)
}

func (f *fakeRLC) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pdus) == 0 {
		return nil
	}
	return f.pdus[len(f.pdus)-1]
}

func (f *fakeRLC) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pdus)
}

// fakeUpper is a minimal in-memory UpperLayer collaborator for RX-side
// tests: delivered SDUs and notification counts are retained for assertion.
type fakeUpper struct {
	mu                sync.Mutex
	delivered         [][]byte
	integrityFailures int
	wraparounds       int
}

func (f *fakeUpper) DeliverSDU(bearerID uint32, sdu []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), sdu...)
	f.delivered = append(f.delivered, cp)
}

func (f *fakeUpper) NotifyIntegrityFailure(bearerID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrityFailures++
}

func (f *fakeUpper) NotifyCountWraparound(bearerID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wraparounds++
}

func (f *fakeUpper) deliveredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

func (f *fakeUpper) nth(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered[i]
}
