package engine

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultSeparator joins path segments in flattened keys.
const DefaultSeparator = "_"

// KeySet is a set of field names matched either exactly or as a suffix of a
// joined key, so "itemData" matches both "itemData" and "a_b_itemData".
type KeySet struct {
	keys mapset.Set[string]
}

func NewKeySet(keys ...string) KeySet {
	s := mapset.NewThreadUnsafeSet[string]()
	for _, k := range keys {
		if k != "" {
			s.Add(k)
		}
	}
	return KeySet{keys: s}
}

func (ks KeySet) Len() int {
	if ks.keys == nil {
		return 0
	}
	return ks.keys.Cardinality()
}

// Union returns a new set holding the patterns of both.
func (ks KeySet) Union(other KeySet) KeySet {
	switch {
	case ks.keys == nil:
		return other
	case other.keys == nil:
		return ks
	}
	return KeySet{keys: ks.keys.Union(other.keys)}
}

func (ks KeySet) Patterns() []string {
	if ks.keys == nil {
		return nil
	}
	return ks.keys.ToSlice()
}

// Match reports whether joinedKey is one of the patterns or ends with
// sep+pattern.
func (ks KeySet) Match(joinedKey, sep string) bool {
	if ks.Len() == 0 {
		return false
	}
	if ks.keys.Contains(joinedKey) {
		return true
	}
	if sep == "" {
		return false
	}
	for i := 0; i+len(sep) < len(joinedKey); i++ {
		if strings.HasPrefix(joinedKey[i:], sep) && ks.keys.Contains(joinedKey[i+len(sep):]) {
			return true
		}
	}
	return false
}

// Flatten projects a nested object into a single-level object keyed by the
// joined path of each leaf. Objects and arrays whose joined key matches
// breakouts are kept raw; other arrays become their JSON text. On a key
// collision the later path wins.
func Flatten(record *Object, breakouts KeySet, sep string) *Object {
	if sep == "" {
		sep = DefaultSeparator
	}
	out := NewObject()
	flattenInto(out, record, "", breakouts, sep)
	return out
}

func flattenInto(out, obj *Object, prefix string, breakouts KeySet, sep string) {
	for _, key := range obj.Keys() {
		val := obj.Get(key)
		joined := key
		if prefix != "" {
			joined = prefix + sep + key
		}

		switch val.Kind() {
		case KindObject:
			if breakouts.Match(joined, sep) {
				out.Set(joined, val)
				continue
			}
			flattenInto(out, val.Obj(), joined, breakouts, sep)
		case KindArray:
			if breakouts.Match(joined, sep) {
				out.Set(joined, val)
				continue
			}
			out.Set(joined, String(val.JSON()))
		case KindNull, KindBool, KindNumber, KindString:
			out.Set(joined, val)
		}
	}
}

// FlattenAll flattens every record; non-object values become empty rows.
func FlattenAll(records []Value, breakouts KeySet, sep string) []*Object {
	rows := make([]*Object, 0, len(records))
	for _, r := range records {
		if !r.IsObject() {
			rows = append(rows, NewObject())
			continue
		}
		rows = append(rows, Flatten(r.Obj(), breakouts, sep))
	}
	return rows
}
