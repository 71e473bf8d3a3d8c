package ips

import (
	"bytes"

	"github.com/romhack/patchkit"
)

// Study is an immutable, pre-flight analysis of an IPS patch that never
// touches a source buffer (spec §4.3). The same Study can be reused
// against any number of distinct sources via ApplyStudy: each call reads
// Study's fields but never mutates them, so verdicts never leak between
// sources (spec's "IPS study reuse" property, §8).
type Study struct {
	hunks       []hunk
	extent      int
	hasTruncate bool
	truncate    int
}

// Extent returns the maximum end offset any hunk in the patch writes to,
// before any truncate trailer is applied.
func (s *Study) Extent() int { return s.extent }

// Study parses patch without reading any source bytes, validating its
// structure and computing its output extent.
func Study(patch []byte) (*Study, error) {
	return parse(patch)
}

// ApplyStudy applies a previously computed Study against source. It is
// equivalent to re-parsing patch and calling Apply, but skips re-parsing.
func ApplyStudy(study *Study, source []byte) (patchkit.Output, error) {
	return applyStudy(study, source, "ips.ApplyStudy")
}

func parse(patch []byte) (*Study, error) {
	const op = "ips.Study"

	if len(patch) < len(magic) || !bytes.Equal(patch[:len(magic)], magic) {
		return nil, patchkit.NewError(patchkit.Invalid, op, nil)
	}

	rest := patch[len(magic):]
	st := &Study{}

	prevEnd := 0
	for {
		if len(rest) < 3 {
			return nil, patchkit.NewError(patchkit.Invalid, op, nil)
		}
		if bytes.Equal(rest[:3], terminator) {
			rest = rest[3:]
			break
		}

		offset := be24(rest)
		if offset == eofOffset {
			// A real hunk can never legally start here (spec §3, §9); a
			// creator that emitted one would itself be invalid.
			return nil, patchkit.NewError(patchkit.Invalid, op, nil)
		}
		rest = rest[3:]

		if len(rest) < 2 {
			return nil, patchkit.NewError(patchkit.Invalid, op, nil)
		}
		length := be16(rest)
		rest = rest[2:]

		var h hunk
		if length > 0 {
			if len(rest) < length {
				return nil, patchkit.NewError(patchkit.Invalid, op, nil)
			}
			h = hunk{offset: offset, kind: hunkCopy, length: length, data: rest[:length]}
			rest = rest[length:]
		} else {
			if len(rest) < 3 {
				return nil, patchkit.NewError(patchkit.Invalid, op, nil)
			}
			runLength := be16(rest)
			rleByte := rest[2]
			rest = rest[3:]
			if runLength == 0 {
				return nil, patchkit.NewError(patchkit.Invalid, op, nil)
			}
			h = hunk{offset: offset, kind: hunkRLE, length: runLength, rleByte: rleByte}
		}

		if h.offset < prevEnd {
			return nil, patchkit.NewError(patchkit.Scrambled, op, nil)
		}
		prevEnd = h.end()
		if h.end() > st.extent {
			st.extent = h.end()
		}

		st.hunks = append(st.hunks, h)
	}

	switch len(rest) {
	case 0:
	case 3:
		st.hasTruncate = true
		st.truncate = be24(rest)
	default:
		return nil, patchkit.NewError(patchkit.Invalid, op, nil)
	}

	return st, nil
}
