// Package compress implements the compression adapters used by channel
// payloads and the sender's data-header blob (spec §4.2, §6).
//
// Three algorithms are wire-visible: none, lz4 and bitshuffle_lz4. All
// three satisfy CompressionType.IsWireType, which the sender's
// WithHeaderCompression option consults before accepting a caller-supplied
// compression value.
package compress
