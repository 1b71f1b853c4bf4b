package model

// Quantified is a value that carries an additive quantity.
type Quantified[V any] interface {
	Qty() int
	WithQuantity(qty int) V
}

// Qty returns the on-hand quantity.
func (e CatalogEntry) Qty() int { return e.Quantity }

// Merge combines an incoming value with the one already stored under the
// same key: the incoming snapshot wins for every field except quantity,
// which accumulates. When nothing is stored the incoming value is kept as is.
func Merge[V Quantified[V]](old V, exists bool, incoming V) V {
	if !exists {
		return incoming
	}
	return incoming.WithQuantity(old.Qty() + incoming.Qty())
}

// MergeInto applies Merge to m[key] and returns the stored result.
// Callers synchronize access to m.
func MergeInto[K comparable, V Quantified[V]](m map[K]V, key K, incoming V) V {
	old, ok := m[key]
	merged := Merge(old, ok, incoming)
	m[key] = merged
	return merged
}
