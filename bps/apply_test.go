package bps

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romhack/patchkit"
	"github.com/romhack/patchkit/crc32sum"
)

func buildTestPatch(t *testing.T, source, target, metadata []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(magic)
	mustWriteUint(&buf, uint64(len(source)))
	mustWriteUint(&buf, uint64(len(target)))
	mustWriteUint(&buf, uint64(len(metadata)))
	buf.Write(metadata)

	writeAction(&buf, targetRead, len(target))
	buf.Write(target)

	var crcBytes [4]byte
	putLE32(crcBytes[:], crc32sum.Checksum(source))
	buf.Write(crcBytes[:])
	putLE32(crcBytes[:], crc32sum.Checksum(target))
	buf.Write(crcBytes[:])
	putLE32(crcBytes[:], crc32sum.Checksum(buf.Bytes()))
	buf.Write(crcBytes[:])

	return buf.Bytes()
}

func TestApplyLiteralPatch(t *testing.T) {
	source := []byte("the original bytes")
	target := []byte("an entirely different target")

	patch := buildTestPatch(t, source, target, nil)
	out, err := Apply(patch, source)
	require.NoError(t, err)
	require.Equal(t, target, out.Data)
}

func TestApplyCarriesMetadata(t *testing.T) {
	source := []byte("abc")
	target := []byte("abcdef")
	meta := []byte(`{"note":"test"}`)

	patch := buildTestPatch(t, source, target, meta)
	out, err := Apply(patch, source)
	require.NoError(t, err)
	require.Equal(t, target, out.Data)
	require.Equal(t, meta, out.Metadata)
}

func TestApplyWrongSourceIsNotThis(t *testing.T) {
	source := []byte("the original bytes")
	target := []byte("an entirely different target")
	wrong := []byte("something else entirely, not source")

	patch := buildTestPatch(t, source, target, nil)
	_, err := Apply(patch, wrong)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.NotThis, kind)
}

func TestApplyAcceptWrongInputStillReturnsOutput(t *testing.T) {
	source := []byte("the original bytes")
	target := []byte("an entirely different target")
	wrong := []byte("something else entirely, not source")

	patch := buildTestPatch(t, source, target, nil)
	out, err := Apply(patch, wrong, WithAcceptWrongInput())
	require.NoError(t, err)
	require.Equal(t, target, out.Data)
}

func TestApplyCorruptedTargetCRCIsInvalid(t *testing.T) {
	source := []byte("the original bytes")
	target := []byte("an entirely different target")

	patch := buildTestPatch(t, source, target, nil)
	corrupted := append([]byte(nil), patch...)
	corrupted[len(corrupted)-5] ^= 0xFF // flip a byte in the declared target CRC

	_, err := Apply(corrupted, source)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Invalid, kind)
}

func TestApplyCorruptedPatchCRCIsInvalid(t *testing.T) {
	source := []byte("the original bytes")
	target := []byte("an entirely different target")

	patch := buildTestPatch(t, source, target, nil)
	corrupted := append([]byte(nil), patch...)
	corrupted[len(corrupted)-1] ^= 0xFF // flip a byte of the patch-CRC trailer itself

	_, err := Apply(corrupted, source)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Invalid, kind)
}

func TestApplyDoubleApplyIsToOutput(t *testing.T) {
	source := []byte("the original bytes")
	target := []byte("an entirely different target")

	patch := buildTestPatch(t, source, target, nil)
	_, err := Apply(patch, target)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.ToOutput, kind)
}

func TestApplyAcceptWrongInputShorterSourceIsInvalid(t *testing.T) {
	source := []byte("the original bytes, plenty of them")
	target := append([]byte(nil), source...)
	short := []byte("short")

	var buf bytes.Buffer
	buf.Write(magic)
	mustWriteUint(&buf, uint64(len(source)))
	mustWriteUint(&buf, uint64(len(target)))
	mustWriteUint(&buf, 0)
	writeAction(&buf, sourceRead, len(source))

	var crcBytes [4]byte
	putLE32(crcBytes[:], crc32sum.Checksum(source))
	buf.Write(crcBytes[:])
	putLE32(crcBytes[:], crc32sum.Checksum(target))
	buf.Write(crcBytes[:])
	putLE32(crcBytes[:], crc32sum.Checksum(buf.Bytes()))
	buf.Write(crcBytes[:])

	// short is far too small to back a SourceRead spanning the declared
	// source size; with WithAcceptWrongInput this must fail cleanly
	// instead of slicing source out of range.
	_, err := Apply(buf.Bytes(), short, WithAcceptWrongInput())
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Invalid, kind)
}

func TestApplyBadMagicIsInvalid(t *testing.T) {
	_, err := Apply([]byte("not a bps patch at all"), []byte("x"))
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Invalid, kind)
}
