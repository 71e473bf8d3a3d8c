package bps

import (
	"github.com/romhack/patchkit"
	"github.com/romhack/patchkit/crc32sum"
	"github.com/romhack/patchkit/internal/vli"
)

// Apply interprets patch's action stream against source and returns the
// reconstructed target (spec §4.5). This is the teacher's PatchSourceFile
// almost unchanged in shape — same four opcodes, same running source/
// target read cursors, same byte-at-a-time TargetCopy loop — generalized
// from files to byte slices and from a single happy-path read to the full
// three-way source/target/patch CRC verdict spec §4.5 and §8 require.
func Apply(patch, source []byte, opts ...Option) (Output, error) {
	const op = "bps.Apply"
	var o applyOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(patch) < len(magic) || string(patch[:len(magic)]) != string(magic) {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}
	rest := patch[len(magic):]

	sourceSize, n, err := vli.ReadUint(rest)
	if err != nil {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}
	rest = rest[n:]

	targetSize, n, err := vli.ReadUint(rest)
	if err != nil {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}
	rest = rest[n:]

	metadataSize, n, err := vli.ReadUint(rest)
	if err != nil {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}
	rest = rest[n:]
	if uint64(len(rest)) < metadataSize {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}
	metadata := rest[:metadataSize]
	rest = rest[metadataSize:]

	headerLen := len(patch) - len(rest)

	if len(rest) < trailerSize {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}
	actions := rest[:len(rest)-trailerSize]
	trailer := rest[len(rest)-trailerSize:]

	declaredSourceCRC := getLE32(trailer[0:4])
	declaredTargetCRC := getLE32(trailer[4:8])
	declaredPatchCRC := getLE32(trailer[8:12])

	// Chain a running CRC over the header, action and trailer regions
	// before any action is interpreted, rather than hashing the whole
	// buffer in one call. CRC-32 is incremental, so chaining
	// Update across header/actions/leading-trailer yields the identical
	// value a single Checksum over the same bytes would.
	running := crc32sum.Update(0, patch[:headerLen])
	running = crc32sum.Update(running, actions)
	running = crc32sum.Update(running, trailer[:8])
	if running != declaredPatchCRC {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}

	sourceCRC := crc32sum.Checksum(source)
	sourceMatches := sourceCRC == declaredSourceCRC
	if !sourceMatches && !o.acceptWrongInput {
		if uint64(len(source)) == targetSize && sourceCRC == declaredTargetCRC {
			return Output{}, patchkit.NewError(patchkit.ToOutput, op, nil)
		}
		return Output{}, patchkit.NewError(patchkit.NotThis, op, nil)
	}

	output, err := runActions(actions, source, int(sourceSize), int(targetSize))
	if err != nil {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}

	outCRC := crc32sum.Checksum(output)
	if outCRC != declaredTargetCRC {
		if outCRC == declaredSourceCRC {
			return Output{}, patchkit.NewError(patchkit.ToOutput, op, nil)
		}
		return Output{}, patchkit.NewError(patchkit.Invalid, op, nil)
	}

	return Output{
		Output:   patchkit.NewOutput(output),
		Metadata: append([]byte(nil), metadata...),
	}, nil
}

// runActions drives the four-opcode interpreter: SourceRead and TargetRead
// append sourceSize-relative or literal bytes; SourceCopy and TargetCopy
// first adjust their own running cursor by a signed VLI offset, then copy
// length bytes — TargetCopy one byte at a time since its source region can
// overlap bytes the same action is still writing (spec §4.5's
// self-referential run-length trick).
func runActions(actions, source []byte, sourceSize, targetSize int) ([]byte, error) {
	output := make([]byte, targetSize)
	var outputCursor, sourceCursor, targetCursor int

	rest := actions
	for outputCursor < targetSize {
		header, n, err := vli.ReadUint(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]

		opcode := int(header & 0x3)
		length := int(header>>2) + 1
		if outputCursor+length > targetSize {
			return nil, errActionOverrun
		}

		switch opcode {
		case sourceRead:
			if outputCursor+length > sourceSize || outputCursor+length > len(source) {
				return nil, errActionOverrun
			}
			copy(output[outputCursor:outputCursor+length], source[outputCursor:outputCursor+length])
			outputCursor += length

		case targetRead:
			if length > len(rest) {
				return nil, errActionOverrun
			}
			copy(output[outputCursor:outputCursor+length], rest[:length])
			rest = rest[length:]
			outputCursor += length

		case sourceCopy:
			rel, n, err := vli.ReadInt(rest)
			if err != nil {
				return nil, err
			}
			rest = rest[n:]
			sourceCursor += int(rel)
			if sourceCursor < 0 || sourceCursor+length > sourceSize || sourceCursor+length > len(source) {
				return nil, errActionOverrun
			}
			copy(output[outputCursor:outputCursor+length], source[sourceCursor:sourceCursor+length])
			sourceCursor += length
			outputCursor += length

		case targetCopy:
			rel, n, err := vli.ReadInt(rest)
			if err != nil {
				return nil, err
			}
			rest = rest[n:]
			targetCursor += int(rel)
			if targetCursor < 0 || targetCursor >= outputCursor {
				return nil, errActionOverrun
			}
			for i := 0; i < length; i++ {
				output[outputCursor] = output[targetCursor]
				outputCursor++
				targetCursor++
			}
		}
	}

	return output, nil
}
