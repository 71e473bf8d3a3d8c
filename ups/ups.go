// Package ups implements the UPS patch format (spec §3, §4.4): VLI source
// and target sizes, XOR records terminated by a zero byte, and a trailing
// source/target/patch CRC-32 triad that makes UPS patches symmetric —
// applying a UPS patch to its own target reconstructs the source.
package ups

import (
	"encoding/binary"

	"github.com/romhack/patchkit"
	"github.com/romhack/patchkit/crc32sum"
	"github.com/romhack/patchkit/internal/vli"
)

var magic = []byte("UPS1")

const trailerSize = 12 // source-CRC, target-CRC, patch-CRC, 4 bytes each

// Apply applies patch to source. UPS patches are symmetric (spec §4.4,
// §8): if source's CRC matches the patch's declared source, the patch is
// applied forward; if it matches the declared target instead, it's applied
// backward, reconstructing the original source from its target.
func Apply(patch, source []byte) (patchkit.Output, error) {
	const op = "ups.Apply"

	if len(patch) < len(magic) || string(patch[:len(magic)]) != string(magic) {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}
	rest := patch[len(magic):]

	sourceSize, n, err := vli.ReadUint(rest)
	if err != nil {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}
	rest = rest[n:]

	targetSize, n, err := vli.ReadUint(rest)
	if err != nil {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}
	rest = rest[n:]

	if len(rest) < trailerSize {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}
	records := rest[:len(rest)-trailerSize]
	trailer := rest[len(rest)-trailerSize:]

	declaredSourceCRC := binary.LittleEndian.Uint32(trailer[0:4])
	declaredTargetCRC := binary.LittleEndian.Uint32(trailer[4:8])
	declaredPatchCRC := binary.LittleEndian.Uint32(trailer[8:12])

	if crc32sum.Checksum(patch[:len(patch)-4]) != declaredPatchCRC {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}

	workSize := int(sourceSize)
	if int(targetSize) > workSize {
		workSize = int(targetSize)
	}

	sourceCRC := crc32sum.Checksum(source)

	var forward bool
	var finalSize int
	switch sourceCRC {
	case declaredSourceCRC:
		forward = true
		finalSize = int(targetSize)
	case declaredTargetCRC:
		forward = false
		finalSize = int(sourceSize)
	default:
		return patchkit.Output{}, patchkit.NewError(patchkit.NotThis, op, nil)
	}

	out, err := applyRecords(records, source, workSize, finalSize)
	if err != nil {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}

	wantCRC := declaredTargetCRC
	if !forward {
		wantCRC = declaredSourceCRC
	}
	if crc32sum.Checksum(out) != wantCRC {
		return patchkit.Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}

	return patchkit.NewOutput(out), nil
}

// applyRecords replays the XOR record stream against base (zero-extended to
// workSize) and truncates/zero-extends the result to finalSize.
func applyRecords(records, base []byte, workSize, finalSize int) ([]byte, error) {
	if workSize < 0 || finalSize < 0 {
		return nil, errOutOfRange
	}
	buf := make([]byte, workSize)
	copy(buf, base)

	cursor := 0
	rest := records
	for len(rest) > 0 {
		offset, n, err := vli.ReadUint(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		cursor += int(offset)

		for {
			if len(rest) == 0 {
				return nil, errUnterminatedRecord
			}
			b := rest[0]
			rest = rest[1:]
			if b == 0 {
				cursor++
				break
			}
			if cursor < 0 || cursor >= workSize {
				return nil, errOutOfRange
			}
			buf[cursor] ^= b
			cursor++
		}
	}

	if finalSize <= len(buf) {
		return buf[:finalSize], nil
	}
	grown := make([]byte, finalSize)
	copy(grown, buf)
	return grown, nil
}

// Create is not implemented: UPS patches are only ever applied by this
// library (spec §4.4). The builder-arity Canceled kind is the closest fit
// in the taxonomy for "this operation can never be satisfied."
func Create(source, target []byte) (patchkit.Output, error) {
	return patchkit.Output{}, patchkit.NewError(patchkit.Canceled, "ups.Create", errCreateUnsupported)
}
