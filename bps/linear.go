package bps

import (
	"bytes"

	"github.com/romhack/patchkit"
	"github.com/romhack/patchkit/crc32sum"
	"github.com/romhack/patchkit/internal/vli"
)

// CreateLinear builds a BPS patch with a single pass over source and
// target: a common prefix becomes a SourceRead run, a common suffix
// becomes a SourceCopy from the end of source, and everything between
// becomes one TargetRead literal run (spec §4.6).
// It never looks backward into target or source for a cheaper copy the
// way CreateDelta does — it's the fast, always-linear-time builder for
// callers that don't need an optimal patch.
func CreateLinear(source, target []byte, opts ...CreateOptions) (Output, error) {
	const op = "bps.CreateLinear"

	if source == nil || target == nil {
		return Output{}, patchkit.NewError(patchkit.Canceled, op, errSourceRequired)
	}
	if bytes.Equal(source, target) {
		return Output{}, patchkit.NewError(patchkit.Identical, op, nil)
	}
	metadata := createOptionsOf(opts).Metadata

	prefix := commonPrefix(source, target)
	suffix := commonSuffix(source[prefix:], target[prefix:])

	var buf bytes.Buffer
	buf.Write(magic)
	mustWriteUint(&buf, uint64(len(source)))
	mustWriteUint(&buf, uint64(len(target)))
	mustWriteUint(&buf, uint64(len(metadata)))
	buf.Write(metadata)

	if prefix > 0 {
		writeAction(&buf, sourceRead, prefix)
	}

	middleEnd := len(target) - suffix
	if middleEnd > prefix {
		literal := target[prefix:middleEnd]
		writeAction(&buf, targetRead, len(literal))
		buf.Write(literal)
	}

	if suffix > 0 {
		// sourceCursor starts at 0; this is the only SourceCopy action, so
		// the offset is simply the suffix's absolute start in source.
		rel := len(source) - suffix
		writeAction(&buf, sourceCopy, suffix)
		mustWriteInt(&buf, int64(rel))
	}

	return finishPatch(&buf, source, target)
}

func commonPrefix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func writeAction(buf *bytes.Buffer, opcode, length int) {
	mustWriteUint(buf, uint64((length-1)<<2|opcode))
}

func mustWriteUint(buf *bytes.Buffer, v uint64) {
	if err := vli.WriteUint(buf, v); err != nil {
		panic(err) // bytes.Buffer.WriteByte never errors
	}
}

func mustWriteInt(buf *bytes.Buffer, v int64) {
	if err := vli.WriteInt(buf, v); err != nil {
		panic(err)
	}
}

// finishPatch appends the source/target/patch CRC trailer to buf and
// verifies the draft by running it back through Apply against source.
func finishPatch(buf *bytes.Buffer, source, target []byte) (Output, error) {
	const op = "bps.Create"

	sourceCRC := crc32sum.Checksum(source)
	targetCRC := crc32sum.Checksum(target)

	var crcBytes [4]byte
	putLE32(crcBytes[:], sourceCRC)
	buf.Write(crcBytes[:])
	putLE32(crcBytes[:], targetCRC)
	buf.Write(crcBytes[:])

	patchCRC := crc32sum.Checksum(buf.Bytes())
	putLE32(crcBytes[:], patchCRC)
	buf.Write(crcBytes[:])

	patch := buf.Bytes()
	if _, err := Apply(patch, source); err != nil {
		return Output{}, patchkit.NewError(patchkit.Invalid, op, err)
	}

	return Output{Output: patchkit.NewOutput(patch)}, nil
}
