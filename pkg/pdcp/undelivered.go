package pdcp

// undeliveredEntry records one SDU the TX side has handed to RLC but not yet
// seen confirmed delivered, either by notify_delivery or by a received
// status report acknowledging its COUNT.
type undeliveredEntry struct {
	sn    uint32
	count uint32
}

// undeliveredTable is the TX side's bookkeeping of in-flight SDUs, bounded
// at cfg.undeliveredLimit() entries regardless of discard timer setting —
// see SPEC_FULL.md's resolution of the "discard timer infinity" open
// question. Entries are removed on notify_delivery, on discard timer
// expiry, and in bulk on reestablish/teardown.
type undeliveredTable struct {
	limit   int
	entries map[uint32]*undeliveredEntry
}

func newUndeliveredTable(limit int) *undeliveredTable {
	return &undeliveredTable{limit: limit, entries: make(map[uint32]*undeliveredEntry)}
}

// add records sn/count as in-flight. Returns false if the table is already
// at its bound.
func (t *undeliveredTable) add(sn, count uint32) bool {
	if len(t.entries) >= t.limit {
		return false
	}
	t.entries[sn] = &undeliveredEntry{sn: sn, count: count}
	return true
}

// remove drops sn from the table, if present. Returns true if an entry was
// removed.
func (t *undeliveredTable) remove(sn uint32) bool {
	if _, ok := t.entries[sn]; !ok {
		return false
	}
	delete(t.entries, sn)
	return true
}

func (t *undeliveredTable) has(sn uint32) bool {
	_, ok := t.entries[sn]
	return ok
}

func (t *undeliveredTable) count() int {
	return len(t.entries)
}

// clear empties the table, used on reestablish/teardown.
func (t *undeliveredTable) clear() {
	t.entries = make(map[uint32]*undeliveredEntry)
}
