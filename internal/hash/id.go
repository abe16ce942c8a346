// Package hash provides a fast, non-cryptographic xxHash64 pre-hash. It
// never replaces the wire-mandated md5 hex key (spec §6 "Hash"), and the
// schema cache does not use it: schemacache looks entries up by the md5
// hex string alone.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Bytes computes the xxHash64 of the given byte slice.
func Bytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}
