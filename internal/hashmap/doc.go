// Package hashmap implements the chaining hash-table substrate shared by
// the registry and timer service: buckets keyed by a precomputed 32-bit
// id, doubling on load factor, no overwrite-on-insert by default.
package hashmap
