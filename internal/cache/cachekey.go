package cache

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"strings"
)

// Key is an accumulating, order-sensitive composite cache key. Two keys
// are equal iff (hash, checksum, count) match and per-index
// components are equal; the hash combines each component's own hash
// multiplied by its 1-based position so permutations of the same multiset
// differ.
type Key struct {
	hash       int64
	checksum   int64
	count      int
	components []any

	// null marks the distinguished sentinel key that refuses updates.
	null bool
}

// NewKey returns a key in its initial state: hash=17, checksum=0, count=0.
func NewKey(components ...any) *Key {
	k := &Key{hash: 17}
	for _, c := range components {
		k.Update(c)
	}
	return k
}

// NullKey returns the sentinel that refuses Update.
func NullKey() *Key { return &Key{null: true} }

// Update appends component and folds it into the running hash/checksum per
// the update rule: h = hash(component); count++; checksum += h;
// h *= count; hash = 37*hash + h.
func (k *Key) Update(component any) {
	if k.null {
		return
	}
	h := componentHash(component)
	k.count++
	k.checksum += h
	h *= int64(k.count)
	k.hash = 37*k.hash + h
	k.components = append(k.components, component)
}

func (k *Key) UpdateAll(components ...any) {
	for _, c := range components {
		k.Update(c)
	}
}

func componentHash(v any) int64 {
	if v == nil {
		return 0
	}
	switch x := v.(type) {
	case string:
		h := fnv.New64a()
		h.Write([]byte(x))
		return int64(h.Sum64())
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float64:
		h := fnv.New64a()
		fmt.Fprintf(h, "%v", x)
		return int64(h.Sum64())
	}
	// Arrays/slices are compared and hashed structurally.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		h := fnv.New64a()
		for i := 0; i < rv.Len(); i++ {
			fmt.Fprintf(h, "%v|", rv.Index(i).Interface())
		}
		return int64(h.Sum64())
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", v)
	return int64(h.Sum64())
}

// Equals compares (hash, checksum, count) then per-index components.
func (k *Key) Equals(other *Key) bool {
	if other == nil {
		return false
	}
	if k.null || other.null {
		return k == other
	}
	if k.hash != other.hash || k.checksum != other.checksum || k.count != other.count {
		return false
	}
	for i := range k.components {
		if !structuralEqual(k.components[i], other.components[i]) {
			return false
		}
	}
	return true
}

func structuralEqual(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.IsValid() && bv.IsValid() && (av.Kind() == reflect.Slice || av.Kind() == reflect.Array) &&
		(bv.Kind() == reflect.Slice || bv.Kind() == reflect.Array) {
		if av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !structuralEqual(av.Index(i).Interface(), bv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Clone deep-copies the component list; mutating the clone never affects
// the original.
func (k *Key) Clone() *Key {
	clone := &Key{hash: k.hash, checksum: k.checksum, count: k.count, null: k.null}
	clone.components = append([]any{}, k.components...)
	return clone
}

// String renders a stable textual form, used as the backing-map key by
// Perpetual and friends; it encodes order, so permutations differ.
func (k *Key) String() string {
	if k.null {
		return "<null-key>"
	}
	parts := make([]string, len(k.components))
	for i, c := range k.components {
		parts[i] = fmt.Sprintf("%v", c)
	}
	return fmt.Sprintf("%d:%d:%d:[%s]", k.hash, k.checksum, k.count, strings.Join(parts, "\x1f"))
}
