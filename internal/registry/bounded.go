package registry

import (
	"container/list"
	"time"
)

// boundedMap is a map with optional FIFO size cap and per-entry TTL. Callers hold the lock.
type boundedMap[V any] struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	entries map[string]*list.Element
	order   *list.List
}

type boundedEntry[V any] struct {
	key     string
	value   V
	touched time.Time
}

func newBoundedMap[V any](maxEntries int, ttl time.Duration, now func() time.Time) *boundedMap[V] {
	if now == nil {
		now = time.Now
	}
	return &boundedMap[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (m *boundedMap[V]) get(key string) (V, bool) {
	var zero V
	el, ok := m.entries[key]
	if !ok {
		return zero, false
	}

	entry := el.Value.(*boundedEntry[V])
	if m.expired(entry) {
		m.remove(el)
		return zero, false
	}
	return entry.value, true
}

// touch refreshes the idle timer and moves key to the back of the eviction order.
func (m *boundedMap[V]) touch(key string) {
	if el, ok := m.entries[key]; ok {
		el.Value.(*boundedEntry[V]).touched = m.now()
		m.order.MoveToBack(el)
	}
}

func (m *boundedMap[V]) put(key string, value V) {
	if el, ok := m.entries[key]; ok {
		entry := el.Value.(*boundedEntry[V])
		entry.value = value
		entry.touched = m.now()
		m.order.MoveToBack(el)
		return
	}

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.sweep()
		for len(m.entries) >= m.maxEntries {
			m.remove(m.order.Front())
		}
	}

	m.entries[key] = m.order.PushBack(&boundedEntry[V]{key: key, value: value, touched: m.now()})
}

func (m *boundedMap[V]) delete(key string) {
	if el, ok := m.entries[key]; ok {
		m.remove(el)
	}
}

func (m *boundedMap[V]) len() int {
	return len(m.entries)
}

// sweep drops expired entries and returns how many were removed.
func (m *boundedMap[V]) sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if m.expired(el.Value.(*boundedEntry[V])) {
			m.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (m *boundedMap[V]) expired(entry *boundedEntry[V]) bool {
	return m.ttl > 0 && m.now().Sub(entry.touched) >= m.ttl
}

func (m *boundedMap[V]) remove(el *list.Element) {
	entry := m.order.Remove(el).(*boundedEntry[V])
	delete(m.entries, entry.key)
}
