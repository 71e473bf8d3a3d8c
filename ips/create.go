package ips

import (
	"bytes"

	"github.com/romhack/patchkit"
)

// breakEven is the minimum run length of a single repeated target byte at
// which an RLE hunk (fixed 8-byte overhead: 3 offset + 2 zero-length +
// 2 run-length + 1 byte) is strictly smaller than folding the same bytes
// into a surrounding Copy hunk (whose marginal cost per byte is 1, but
// which pays its own 5-byte header again on either side of the split). See
// DESIGN.md's Open Questions entry for the derivation.
const breakEven = 9

const maxHunkField = 0xFFFF // 16-bit length/run-length field

type plannedHunk struct {
	kind   hunkKind
	offset int
	length int
	value  byte // meaningful for hunkRLE only
}

// Create builds an IPS patch that turns source into target.
func Create(source, target []byte) (patchkit.Output, error) {
	const op = "ips.Create"

	if source == nil || target == nil {
		return patchkit.Output{}, patchkit.NewError(patchkit.Canceled, op, nil)
	}
	if bytes.Equal(source, target) {
		return patchkit.Output{}, patchkit.NewError(patchkit.Identical, op, nil)
	}
	if len(target) > maxAddressable {
		return patchkit.Output{}, patchkit.NewError(patchkit.OutOfMem, op, nil)
	}

	n := len(source)
	if len(target) < n {
		n = len(target)
	}

	var planned []plannedHunk

	i := 0
	for i < n {
		if source[i] == target[i] {
			i++
			continue
		}
		j := i
		for j < n && source[j] != target[j] {
			j++
		}
		planned = append(planned, detectSegments(target, i, j)...)
		i = j
	}
	if len(target) > n {
		planned = append(planned, detectSegments(target, n, len(target))...)
	}

	planned = splitOversizeHunks(planned)
	planned = avoidEOFCollisions(planned)

	var buf bytes.Buffer
	buf.Write(magic)
	for _, h := range planned {
		if h.length == 0 {
			continue
		}
		switch h.kind {
		case hunkCopy:
			writeCopyHunk(&buf, h.offset, target[h.offset:h.offset+h.length])
		case hunkRLE:
			writeRLEHunk(&buf, h.offset, h.length, h.value)
		}
	}
	buf.Write(terminator)

	if len(target) < len(source) {
		trailer := make([]byte, 3)
		putBE24(trailer, len(target))
		buf.Write(trailer)
	}

	return patchkit.NewOutput(buf.Bytes()), nil
}

// detectSegments splits target[start:end] into abstract Copy/RLE segments,
// carving out a separate RLE segment whenever a repeated-byte run reaches
// breakEven (spec §4.3). Lengths are not yet bounded to the 16-bit wire
// field; splitOversizeHunks does that afterward.
func detectSegments(target []byte, start, end int) []plannedHunk {
	var segs []plannedHunk
	segStart := start
	pos := start

	flushCopy := func(a, b int) {
		if a < b {
			segs = append(segs, plannedHunk{kind: hunkCopy, offset: a, length: b - a})
		}
	}

	for pos < end {
		runEnd := pos + 1
		for runEnd < end && target[runEnd] == target[pos] {
			runEnd++
		}
		runLen := runEnd - pos
		if runLen >= breakEven {
			flushCopy(segStart, pos)
			segs = append(segs, plannedHunk{kind: hunkRLE, offset: pos, length: runLen, value: target[pos]})
			pos = runEnd
			segStart = pos
		} else {
			pos = runEnd
		}
	}
	flushCopy(segStart, pos)
	return segs
}

// splitOversizeHunks bounds every segment's length to the 16-bit wire
// field, carving a run longer than that into consecutive same-kind hunks.
func splitOversizeHunks(segs []plannedHunk) []plannedHunk {
	var out []plannedHunk
	for _, s := range segs {
		a, b := s.offset, s.offset+s.length
		for a < b {
			chunk := b - a
			if chunk > maxHunkField {
				chunk = maxHunkField
			}
			out = append(out, plannedHunk{kind: s.kind, offset: a, length: chunk, value: s.value})
			a += chunk
		}
	}
	return out
}

// avoidEOFCollisions ensures no planned hunk's offset equals the forbidden
// EOF literal (spec §3, §9) by nudging the colliding hunk's start one byte
// away from it: absorbing that byte into the contiguous previous hunk
// (converting it to a Copy hunk, since an RLE hunk can't absorb a byte of
// a different value) if one directly precedes it, or otherwise pulling the
// hunk's own start back by one byte into the untouched gap before it.
func avoidEOFCollisions(segs []plannedHunk) []plannedHunk {
	for i := range segs {
		if segs[i].offset != eofOffset || segs[i].length == 0 {
			continue
		}
		if i > 0 && segs[i-1].offset+segs[i-1].length == segs[i].offset && segs[i-1].length < maxHunkField {
			segs[i-1] = plannedHunk{kind: hunkCopy, offset: segs[i-1].offset, length: segs[i-1].length + 1}
			segs[i].offset++
			segs[i].length--
		} else {
			segs[i] = plannedHunk{kind: hunkCopy, offset: segs[i].offset - 1, length: segs[i].length + 1}
		}
	}
	return segs
}

func writeCopyHunk(buf *bytes.Buffer, offset int, data []byte) {
	hdr := make([]byte, 5)
	putBE24(hdr, offset)
	putBE16(hdr[3:], len(data))
	buf.Write(hdr)
	buf.Write(data)
}

func writeRLEHunk(buf *bytes.Buffer, offset, runLength int, value byte) {
	hdr := make([]byte, 7)
	putBE24(hdr, offset)
	putBE16(hdr[3:], 0)
	putBE16(hdr[5:], runLength)
	buf.Write(hdr)
	buf.WriteByte(value)
}
