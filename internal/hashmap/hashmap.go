package hashmap

// defaultSize is the initial bucket count for a zero-value-constructed Map.
const defaultSize = 8

// loadNumerator and loadDenominator express the 3/4 load-factor trigger:
// a resize fires when count+1 exceeds size*loadNumerator/loadDenominator.
const (
	loadNumerator   = 3
	loadDenominator = 4
)

type node[V any] struct {
	id    uint32
	value V
	next  *node[V]
}

// Map is an open-hashing table with external chaining, keyed by a
// caller-supplied 32-bit id (typically a precomputed name hash, never
// the raw name). Insert fails closed on a duplicate id rather than
// overwriting; callers that want update-in-place semantics use Put.
//
// Map is not safe for concurrent use without external synchronization,
// matching the single-threaded cooperative model of the engine it backs.
type Map[V any] struct {
	table []*node[V]
	count int
}

// New returns an empty Map with room for at least initialSize buckets.
func New[V any](initialSize int) *Map[V] {
	if initialSize <= 0 {
		initialSize = defaultSize
	}
	return &Map[V]{table: make([]*node[V], initialSize)}
}

// Len returns the number of stored entries.
func (m *Map[V]) Len() int {
	return m.count
}

// Get looks up id, walking the bucket chain for an exact match.
func (m *Map[V]) Get(id uint32) (V, bool) {
	m.ensure()
	for n := m.table[id%uint32(len(m.table))]; n != nil; n = n.next {
		if n.id == id {
			return n.value, true
		}
	}
	var zero V
	return zero, false
}

// Insert adds id -> value, failing (returning false, no mutation) if the
// id is already present. This is the registry's duplicate-registration
// gate: callers get an explicit signal instead of a silent overwrite.
func (m *Map[V]) Insert(id uint32, value V) bool {
	m.ensure()
	if _, exists := m.Get(id); exists {
		return false
	}
	m.growIfNeeded()
	idx := id % uint32(len(m.table))
	m.table[idx] = &node[V]{id: id, value: value, next: m.table[idx]}
	m.count++
	return true
}

// Put upserts id -> value, returning true if an existing entry was
// replaced in place. Used by the timer service, where re-starting a
// timer under the same name updates it rather than failing.
func (m *Map[V]) Put(id uint32, value V) bool {
	m.ensure()
	idx := id % uint32(len(m.table))
	for n := m.table[idx]; n != nil; n = n.next {
		if n.id == id {
			n.value = value
			return true
		}
	}
	m.growIfNeeded()
	idx = id % uint32(len(m.table))
	m.table[idx] = &node[V]{id: id, value: value, next: m.table[idx]}
	m.count++
	return false
}

// Delete unlinks id from its chain, returning true if it was present.
func (m *Map[V]) Delete(id uint32) bool {
	m.ensure()
	idx := id % uint32(len(m.table))
	var prev *node[V]
	for n := m.table[idx]; n != nil; n = n.next {
		if n.id == id {
			if prev == nil {
				m.table[idx] = n.next
			} else {
				prev.next = n.next
			}
			m.count--
			return true
		}
		prev = n
	}
	return false
}

// Each calls fn for every entry in unspecified order, stopping early if
// fn returns false.
func (m *Map[V]) Each(fn func(id uint32, value V) bool) {
	m.ensure()
	for _, head := range m.table {
		for n := head; n != nil; n = n.next {
			if !fn(n.id, n.value) {
				return
			}
		}
	}
}

func (m *Map[V]) ensure() {
	if m.table == nil {
		m.table = make([]*node[V], defaultSize)
	}
}

// growIfNeeded doubles the bucket count and rehashes every entry when
// the next insert would push the load factor past 3/4.
func (m *Map[V]) growIfNeeded() {
	if (m.count+1)*loadDenominator <= len(m.table)*loadNumerator {
		return
	}
	old := m.table
	m.table = make([]*node[V], len(old)*2)
	for _, head := range old {
		for n := head; n != nil; {
			next := n.next
			idx := n.id % uint32(len(m.table))
			n.next = m.table[idx]
			m.table[idx] = n
			n = next
		}
	}
}
