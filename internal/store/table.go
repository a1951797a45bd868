package store

// table is an insertion-ordered map. Upserting an existing key keeps its
// original position; List returns an independent copy so callers may iterate
// without holding any lock.
type table[T any] struct {
	keys  []string
	items map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[string]T)}
}

func (t *table[T]) upsert(key string, item T) {
	if _, ok := t.items[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.items[key] = item
}

func (t *table[T]) delete(key string) {
	if _, ok := t.items[key]; !ok {
		return
	}
	delete(t.items, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

func (t *table[T]) get(key string) (T, bool) {
	item, ok := t.items[key]
	return item, ok
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.items[k])
	}
	return out
}

func (t *table[T]) len() int { return len(t.items) }

func (t *table[T]) clear() {
	t.keys = nil
	t.items = make(map[string]T)
}
