package projection

// Project resolves each of paths against doc and returns one entry per path, in the order given.
// A path resolves to nil if, before its last segment is consumed, the walk reaches a value that isn't
// an object (including arrays, which are never fanned out) or a key that doesn't exist.
// Paths that resolve to an explicit null are indistinguishable from paths that don't resolve.
//
// Project doesn't modify doc and is safe to call concurrently.
func Project(doc Value, paths []Path) *Record {
	record := NewRecord(len(paths))
	for _, p := range paths {
		v, _ := Resolve(doc, p)
		record.Set(p.String(), v)
	}
	return record
}

// Resolve walks p through doc. The returned bool is false if the walk stopped early;
// it's true if the path was fully consumed, even when the value found there is null.
func Resolve(doc Value, p Path) (Value, bool) {
	current := doc
	for _, segment := range p.segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
