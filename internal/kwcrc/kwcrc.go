// Package kwcrc computes the 32-bit running hash the Basic Station uses
// to dispatch known JSON object keys in O(1) without touching
// encoding/json's reflection path. The update rule is taken verbatim
// from kwcrc.h's code generator: crc = (crc>>24)*65537 ^ crc*257 ^
// (c&0x7F), folded over every byte of the key, with a zero result
// bumped to 1 so it is never confused with "no match".
package kwcrc

// Hash returns the keyword hash of s.
func Hash(s string) uint32 {
	var crc uint32
	for i := 0; i < len(s); i++ {
		crc = update(crc, s[i])
	}
	return finish(crc)
}

func update(crc uint32, c byte) uint32 {
	return (crc>>24)*65537 ^ crc*257 ^ uint32(c&0x7F)
}

func finish(crc uint32) uint32 {
	if crc == 0 {
		return 1
	}
	return crc
}

// Registry maps known field-name hashes back to the canonical field
// name, built once at init from the field list the codec package cares
// about. Collisions would be a codec bug; NewRegistry panics on one so it is
// caught at package-init time rather than at runtime on the hot path.
type Registry struct {
	byHash map[uint32]string
}

// NewRegistry builds a Registry from a field name list.
func NewRegistry(fields []string) *Registry {
	r := &Registry{byHash: make(map[uint32]string, len(fields))}
	for _, f := range fields {
		h := Hash(f)
		if existing, ok := r.byHash[h]; ok && existing != f {
			panic("kwcrc: hash collision between " + existing + " and " + f)
		}
		r.byHash[h] = f
	}
	return r
}

// Lookup resolves a hash back to its field name, for dispatch tables
// keyed by hash. ok is false for any hash not in the registry.
func (r *Registry) Lookup(h uint32) (string, bool) {
	name, ok := r.byHash[h]
	return name, ok
}
