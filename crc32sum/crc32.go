// Package crc32sum is the CRC-32 primitive shared by ups and bps: IEEE 802.3
// (polynomial 0xEDB88320), table-driven via the standard library, exposed as
// the two operations the codecs need — a one-shot checksum and a seeded
// update for incremental checksumming across non-contiguous regions.
package crc32sum

import "hash/crc32"

// Checksum computes the IEEE CRC-32 of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Update extends a running CRC-32 (seeded by a prior Checksum/Update call)
// over an additional region, without recomputing the whole checksum from
// scratch. bps.Apply uses this to chain the patch checksum across the
// header, action and trailer regions of a patch.
func Update(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, crc32.IEEETable, data)
}
