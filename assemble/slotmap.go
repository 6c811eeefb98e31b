package assemble

// SlotMap tracks, per raid_disk slot, the index into a candidate slice
// of the best (highest event counter) candidate seen for that slot so
// far. It grows on demand the way the original's best[] array does —
// reallocated in chunks of 10 entries past the highest slot observed —
// rather than being pre-sized to raid_disks, since spare slots and
// stale metadata can both report slot numbers past the nominal count.
type SlotMap struct {
	best []int // -1 means empty
}

// NewSlotMap returns a SlotMap with no entries.
func NewSlotMap() *SlotMap {
	return &SlotMap{}
}

func (m *SlotMap) grow(upTo int) {
	if upTo < len(m.best) {
		return
	}
	next := make([]int, upTo+10)
	copy(next, m.best)
	for i := len(m.best); i < len(next); i++ {
		next[i] = -1
	}
	m.best = next
}

// Len returns the number of slots currently tracked (bestcnt).
func (m *SlotMap) Len() int { return len(m.best) }

// At returns the candidate index recorded for slot, or -1 if none.
func (m *SlotMap) At(slot int) int {
	if slot < 0 || slot >= len(m.best) {
		return -1
	}
	return m.best[slot]
}

// Consider records idx as the candidate for slot if it's the first one
// seen there, or if it has a higher event counter than the incumbent.
func (m *SlotMap) Consider(slot int, idx int, events func(int) uint64) {
	m.grow(slot)
	cur := m.best[slot]
	if cur == -1 || events(cur) < events(idx) {
		m.best[slot] = idx
	}
}
