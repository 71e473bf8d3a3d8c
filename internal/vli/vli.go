// Package vli implements the biased variable-length integer encoding shared
// by the UPS and BPS wire formats (spec §3, §6): seven data bits per byte,
// the eighth bit terminates, and every non-terminal byte adds its weight
// back into the accumulator. This is the teacher's (mgius/bps) bps_read_num
// / bps_write_num pair, generalized to also back ups and to add the signed
// variant BPS's SourceCopy/TargetCopy offsets need.
package vli

import (
	"io"

	"github.com/pkg/errors"
)

// ErrTruncated is returned when the stream ends before a terminating byte
// (bit 7 set) is read.
var ErrTruncated = errors.New("vli: truncated before terminating byte")

// ErrNegativeZero is returned by ReadInt for the signed encoding of zero
// with its sign bit set — a representation spec §9 calls out as forbidden
// since zero has exactly one valid encoding.
var ErrNegativeZero = errors.New("vli: negative zero is not a valid signed VLI")

// ReadUint decodes one biased unsigned VLI from the front of stream,
// returning the decoded value and the number of bytes consumed.
func ReadUint(stream []byte) (value uint64, n int, err error) {
	var shift uint64 = 1
	for n < len(stream) {
		b := stream[n]
		n++
		value += uint64(b&0x7f) * shift
		if b&0x80 == 0x80 {
			return value, n, nil
		}
		shift <<= 7
		value += shift
	}
	return 0, 0, ErrTruncated
}

// WriteUint encodes v as a biased unsigned VLI onto w.
func WriteUint(w io.ByteWriter, v uint64) error {
	for {
		x := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return w.WriteByte(0x80 | x)
		}
		if err := w.WriteByte(x); err != nil {
			return err
		}
		v--
	}
}

// SizeUint returns the number of bytes WriteUint would emit for v, used by
// the BPS delta builder's cost model without materializing the bytes.
func SizeUint(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		v--
		n++
	}
	return n
}

// ReadInt decodes a signed VLI: an unsigned VLI whose low bit is the sign
// and whose remaining bits are the magnitude. Negative zero (sign set,
// magnitude zero) is rejected.
func ReadInt(stream []byte) (value int64, n int, err error) {
	u, n, err := ReadUint(stream)
	if err != nil {
		return 0, n, err
	}
	neg := u&1 == 1
	mag := int64(u >> 1)
	if neg {
		if mag == 0 {
			return 0, n, ErrNegativeZero
		}
		return -mag, n, nil
	}
	return mag, n, nil
}

// WriteInt encodes v as a signed VLI onto w.
func WriteInt(w io.ByteWriter, v int64) error {
	var u uint64
	if v < 0 {
		u = (uint64(-v) << 1) | 1
	} else {
		u = uint64(v) << 1
	}
	return WriteUint(w, u)
}

// SizeInt returns the number of bytes WriteInt would emit for v.
func SizeInt(v int64) int {
	var u uint64
	if v < 0 {
		u = (uint64(-v) << 1) | 1
	} else {
		u = uint64(v) << 1
	}
	return SizeUint(u)
}
