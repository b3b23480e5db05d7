package joblock

import "hash/fnv"

// LockKey derives the advisory lock key for an identifier.
//
// The hash is FNV-1a 64-bit over the raw identifier bytes, reinterpreted as
// a signed 64-bit integer. Any component that re-derives the key
// independently must use the same function: identifiers are fixed per job
// type and must map to the same key across deployments. Collisions between
// unrelated identifiers are an accepted, very-low-probability risk.
func LockKey(identifier string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(identifier))
	return int64(h.Sum64())
}
