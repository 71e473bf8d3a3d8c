// Package ips implements the IPS patch format (spec §3, §4.3): 24-bit
// big-endian offsets, copy and RLE hunks, an "EOF" terminator, and an
// optional truncate trailer. Apply/Create/Study/ApplyStudy are independent
// entry points — see DESIGN.md and spec §9 for why this codec is not
// unified with ups/bps behind a common interface.
package ips

import (
	"github.com/romhack/patchkit"
)

var magic = []byte("PATCH")
var terminator = []byte("EOF")

// eofOffset is the 24-bit value of the literal bytes "EOF" — forbidden as a
// hunk offset because it collides with the terminator (spec §3, §9).
const eofOffset = 0x454F46

// maxAddressable is IPS's 24-bit offset bound (16 MiB). Exceeding it on
// Create maps to OutOfMem per spec §4.2's inherited (if inconsistent)
// mapping, preserved here for bit-exact behavior (spec §9 Open Question).
const maxAddressable = 1 << 24

type hunkKind int

const (
	hunkCopy hunkKind = iota
	hunkRLE
)

type hunk struct {
	offset  int
	kind    hunkKind
	length  int // literal length (copy) or run length (rle)
	data    []byte
	rleByte byte
}

func (h hunk) end() int { return h.offset + h.length }

func be24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

func putBE24(buf []byte, v int) {
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}

func be16(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

func putBE16(buf []byte, v int) {
	buf[0] = byte(v >> 8)
	buf[1] = byte(v)
}

// Apply applies patch to source and returns the reconstructed target.
func Apply(patch, source []byte) (patchkit.Output, error) {
	const op = "ips.Apply"

	study, err := parse(patch)
	if err != nil {
		return patchkit.Output{}, err
	}

	return applyStudy(study, source, op)
}

// applyStudy drives the shared apply logic for both Apply and ApplyStudy.
// IPS is an overlay format: Create only emits hunks for the regions where
// source and target differ, so output starts as a copy of source and only
// grows (zero-filling the gap) when a hunk reaches past its current end.
func applyStudy(st *Study, source []byte, op string) (patchkit.Output, error) {
	output := append([]byte(nil), source...)

	grow := func(n int) {
		if n > len(output) {
			grown := make([]byte, n)
			copy(grown, output)
			output = grown
		}
	}

	// IPS carries no declared-input fingerprint (no CRC, unlike UPS/BPS),
	// so a NotThis verdict can't be computed from hunk content alone — only
	// the "already applied" case is reliably detectable: if every hunk's
	// pre-image in source already equals the bytes it's about to write,
	// applying again would be a no-op, which is what ToOutput reports.
	everyRegionMatchesSource := true
	sawRegion := false

	for _, h := range st.hunks {
		grow(h.end())
		switch h.kind {
		case hunkCopy:
			sawRegion = true
			if !regionEquals(source, h.offset, h.data) {
				everyRegionMatchesSource = false
			}
			copy(output[h.offset:h.end()], h.data)
		case hunkRLE:
			sawRegion = true
			if !regionIsByte(source, h.offset, h.length, h.rleByte) {
				everyRegionMatchesSource = false
			}
			for i := h.offset; i < h.end(); i++ {
				output[i] = h.rleByte
			}
		}
	}

	if st.hasTruncate {
		if st.truncate > len(output) {
			return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
		}
		output = output[:st.truncate]
	}

	if sawRegion && everyRegionMatchesSource {
		return patchkit.Output{}, patchkit.NewError(patchkit.ToOutput, op, nil)
	}

	return patchkit.NewOutput(output), nil
}

func regionEquals(source []byte, offset int, data []byte) bool {
	if offset < 0 || offset+len(data) > len(source) {
		return false
	}
	for i, b := range data {
		if source[offset+i] != b {
			return false
		}
	}
	return true
}

func regionIsByte(source []byte, offset, length int, b byte) bool {
	if offset < 0 || offset+length > len(source) {
		return false
	}
	for i := 0; i < length; i++ {
		if source[offset+i] != b {
			return false
		}
	}
	return true
}
