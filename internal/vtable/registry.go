package vtable

import (
	"reflect"
	"sync"
)

// tableKey identifies a table by item type and argument type.
type tableKey struct {
	item reflect.Type
	args reflect.Type
}

var (
	tablesMu sync.RWMutex
	tables   = make(map[tableKey]any)
)

// For returns the dispatch table for item type T, creating and registering it
// on first use. Every call for the same T and A returns the same table.
func For[T Callable[A], A any]() *Typed[T, A] {
	key := tableKey{item: reflect.TypeFor[T](), args: reflect.TypeFor[A]()}

	tablesMu.RLock()
	t, ok := tables[key]
	tablesMu.RUnlock()
	if ok {
		return t.(*Typed[T, A])
	}

	tablesMu.Lock()
	defer tablesMu.Unlock()
	if t, ok := tables[key]; ok {
		return t.(*Typed[T, A])
	}
	typed := newTyped[T, A]()
	tables[key] = typed
	return typed
}

// Registered returns the number of tables created so far.
func Registered() int {
	tablesMu.RLock()
	defer tablesMu.RUnlock()
	return len(tables)
}
