package bps

import (
	"bytes"
	"context"

	"github.com/romhack/patchkit"
	"github.com/romhack/patchkit/internal/suffixarray"
	"github.com/romhack/patchkit/internal/vli"
)

// DeltaOption configures CreateDelta.
type DeltaOption func(*deltaOptions)

type deltaOptions struct {
	moreMemory bool
	metadata   []byte
}

// WithMetadata embeds data into the patch's metadata block verbatim.
func WithMetadata(data []byte) DeltaOption {
	return func(o *deltaOptions) { o.metadata = data }
}

// WithMoreMemory widens the match search: the default search already runs
// over a full suffix array of source∥target, but declines matches shorter
// than minMatchDefault to keep the cost-per-byte comparison from spending
// an action header on a handful of bytes that would amortize worse than a
// literal run. WithMoreMemory accepts candidates down to minMatchExhaustive
// instead, trading a larger action count (and the extra working set that
// implies) for a smaller patch. See DESIGN.md for why this, rather than
// two separate matchers, is this builder's reading of "more_memory".
func WithMoreMemory() DeltaOption {
	return func(o *deltaOptions) { o.moreMemory = true }
}

const (
	minMatchDefault    = 8
	minMatchExhaustive = 4
)

// actionSize returns the number of bytes the action header VLI alone would
// occupy for opcode/length, excluding any trailing signed-offset VLI —
// the building block for the cost-per-byte comparison below.
func actionSize(opcode, length int) int {
	return vli.SizeUint(uint64((length-1)<<2 | opcode))
}

// sourceRunLength returns the length of the run starting at pos where
// source and target agree byte-for-byte (spec §4.7's "length of the run
// where source[t] == target[t]").
func sourceRunLength(source, target []byte, pos int) int {
	n := 0
	for pos+n < len(source) && pos+n < len(target) && source[pos+n] == target[pos+n] {
		n++
	}
	return n
}

// CreateDelta builds a BPS patch via suffix-array matching (spec §4.7): at
// each target position it evaluates two candidates — SourceRead (the
// cursor-less run where source and target already agree) and the single
// longest match LongestMatch finds among source and the already-produced
// target prefix, which becomes a SourceCopy if it starts in source and a
// TargetCopy otherwise — and picks whichever has the lowest encoded cost
// per output byte (action header VLI
// size, plus a signed-offset VLI size for SourceCopy/TargetCopy, amortized
// over the match length), falling back to literal TargetRead bytes when no
// candidate's cost beats one raw literal byte. ctx is polled at the start
// and again once at least 4096 more output bytes have been covered, so a
// caller can cancel a search over large inputs.
func CreateDelta(ctx context.Context, source, target []byte, opts ...DeltaOption) (Output, error) {
	const op = "bps.CreateDelta"

	if source == nil || target == nil {
		return Output{}, patchkit.NewError(patchkit.Canceled, op, errSourceRequired)
	}
	if bytes.Equal(source, target) {
		return Output{}, patchkit.NewError(patchkit.Identical, op, nil)
	}

	var o deltaOptions
	for _, opt := range opts {
		opt(&o)
	}
	minMatch := minMatchDefault
	if o.moreMemory {
		minMatch = minMatchExhaustive
	}

	m, k := len(source), len(target)
	combined := make([]byte, m+k)
	copy(combined, source)
	copy(combined[m:], target)
	idx := suffixarray.Build(combined)

	var buf bytes.Buffer
	buf.Write(magic)
	mustWriteUint(&buf, uint64(m))
	mustWriteUint(&buf, uint64(k))
	mustWriteUint(&buf, uint64(len(o.metadata)))
	buf.Write(o.metadata)

	var literal []byte
	flushLiteral := func() {
		if len(literal) == 0 {
			return
		}
		writeAction(&buf, targetRead, len(literal))
		buf.Write(literal)
		literal = nil
	}

	sourceCursor, targetCursor := 0, 0
	nextPoll := 0
	for pos := 0; pos < k; {
		if pos >= nextPoll {
			nextPoll = pos + 4096
			select {
			case <-ctx.Done():
				return Output{}, patchkit.NewError(patchkit.Canceled, op, ctx.Err())
			default:
			}
		}

		accept := func(start int) bool {
			if start < m {
				return true
			}
			return start < m+pos // can't TargetCopy bytes not yet produced
		}
		dist := func(start int) int {
			var d int
			if start < m {
				d = start - sourceCursor
			} else {
				d = (start - m) - targetCursor
			}
			if d < 0 {
				d = -d
			}
			return d
		}

		extLength, extStart, extFound := idx.LongestMatch(m+pos, accept, dist)
		if extFound && extStart < m && extStart+extLength > m {
			extLength = m - extStart // a source-side match can't run past source's end
		}
		srLength := sourceRunLength(source, target, pos)

		// Evaluate every candidate's encoded cost per output byte (spec
		// §4.7) and keep the cheapest: SourceRead pays only its action
		// header, SourceCopy/TargetCopy also pay a signed-offset VLI.
		// Costs are compared by cross-multiplication (bytesA*lengthB vs
		// bytesB*lengthA) to stay in exact integer arithmetic.
		var (
			haveBest   bool
			bestOpcode int
			bestLength int
			bestRel    int64
			bestBytes  int
		)
		consider := func(opcode, length int, rel int64, encodedBytes int) {
			if length < minMatch {
				return
			}
			if !haveBest || encodedBytes*bestLength < bestBytes*length {
				haveBest = true
				bestOpcode = opcode
				bestLength = length
				bestRel = rel
				bestBytes = encodedBytes
			}
		}
		if srLength > 0 {
			consider(sourceRead, srLength, 0, actionSize(sourceRead, srLength))
		}
		if extFound {
			if extStart < m {
				rel := int64(extStart - sourceCursor)
				consider(sourceCopy, extLength, rel, actionSize(sourceCopy, extLength)+vli.SizeInt(rel))
			} else {
				tpos := extStart - m
				rel := int64(tpos - targetCursor)
				consider(targetCopy, extLength, rel, actionSize(targetCopy, extLength)+vli.SizeInt(rel))
			}
		}

		if !haveBest || bestBytes >= bestLength {
			// No candidate beats the cost of a raw literal byte.
			literal = append(literal, target[pos])
			pos++
			continue
		}

		flushLiteral()
		switch bestOpcode {
		case sourceRead:
			writeAction(&buf, sourceRead, bestLength)
		case sourceCopy:
			writeAction(&buf, sourceCopy, bestLength)
			mustWriteInt(&buf, bestRel)
			sourceCursor += int(bestRel) + bestLength
		case targetCopy:
			writeAction(&buf, targetCopy, bestLength)
			mustWriteInt(&buf, bestRel)
			targetCursor += int(bestRel) + bestLength
		}
		pos += bestLength
	}
	flushLiteral()

	return finishPatch(&buf, source, target)
}
