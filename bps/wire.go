// Package bps implements the BPS patch format (spec §3, §4.5-§4.7): a
// four-opcode action stream with CRC-32 validated source, target, and
// patch integrity. Apply is grounded almost directly on the teacher
// (mgius/bps)'s PatchSourceFile; CreateLinear and CreateDelta are new
// (the teacher has no creator at all) — see DESIGN.md.
package bps

import (
	"encoding/binary"

	"github.com/romhack/patchkit"
)

var magic = []byte("BPS1")

const trailerSize = 12 // source-CRC, target-CRC, patch-CRC, 4 bytes each

const (
	sourceRead = iota
	targetRead
	sourceCopy
	targetCopy
)

// Output is the result of applying a BPS patch: the reconstructed target
// bytes, plus any free-form metadata the patch carried (spec §3's
// "VLI metadata size followed by that many bytes"). original_source's
// Rust wrapper keeps metadata as a field on BpsOutput separate from the
// applied bytes; this mirrors that shape (SPEC_FULL.md).
type Output struct {
	patchkit.Output
	Metadata []byte
}

func putLE32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }
func getLE32(buf []byte) uint32    { return binary.LittleEndian.Uint32(buf) }

// CreateOptions configures CreateLinear. A plain options struct rather
// than a chained builder, matching the teacher's plain-function style
// (SPEC_FULL.md's reading of original_source's BpsOutput metadata field).
type CreateOptions struct {
	// Metadata is written into the patch's metadata block verbatim and
	// handed back by Apply without the caller needing to re-parse the
	// patch.
	Metadata []byte
}

func createOptionsOf(opts []CreateOptions) CreateOptions {
	if len(opts) == 0 {
		return CreateOptions{}
	}
	return opts[0]
}
