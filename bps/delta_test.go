package bps

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romhack/patchkit"
)

func TestCreateDeltaRoundTrip(t *testing.T) {
	cases := []struct {
		name           string
		source, target []byte
	}{
		{"single byte change", []byte("the quick brown fox jumps over the lazy dog"), []byte("the quick brown fox hops over the lazy dog!")},
		{"repeated runs", []byte("ababababababababab"), []byte("abababXXababababab")},
		{"target longer with new tail", []byte("a rom image header and body"), []byte("a rom image header and body plus a new appended section")},
		{"target shorter", []byte("a rom image header and a long body section"), []byte("a rom image header")},
		{"self-referential repeat", []byte("prefix-once"), []byte("prefix-once-prefix-once-prefix-once")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patch, err := CreateDelta(context.Background(), tc.source, tc.target)
			require.NoError(t, err)

			out, err := Apply(patch.Data, tc.source)
			require.NoError(t, err)
			require.Equal(t, tc.target, out.Data)
		})
	}
}

func TestCreateDeltaMoreMemoryStillRoundTrips(t *testing.T) {
	source := []byte("the quick brown fox jumps over the lazy dog repeatedly")
	target := []byte("the slow brown fox jumps under the lazy dog repeatedly")

	patch, err := CreateDelta(context.Background(), source, target, WithMoreMemory())
	require.NoError(t, err)

	out, err := Apply(patch.Data, source)
	require.NoError(t, err)
	require.Equal(t, target, out.Data)
}

func TestCreateDeltaIdenticalBuffersIsIdentical(t *testing.T) {
	buf := []byte("identical on both sides, nothing to patch here")
	_, err := CreateDelta(context.Background(), buf, buf)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Identical, kind)
}

func TestCreateDeltaCanceled(t *testing.T) {
	source := bytes.Repeat([]byte("abcdefgh"), 4096)
	target := bytes.Repeat([]byte("hgfedcba"), 4096)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateDelta(ctx, source, target)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Canceled, kind)
}

func TestCreateDeltaMissingBufferIsCanceled(t *testing.T) {
	_, err := CreateDelta(context.Background(), nil, []byte("target"))
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Canceled, kind)

	_, err = CreateDelta(context.Background(), []byte("source"), nil)
	kind, ok = patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Canceled, kind)
}

func TestCreateDeltaSmallerThanLinearOnRepetitiveInput(t *testing.T) {
	source := bytes.Repeat([]byte("0123456789"), 200)
	target := append(append([]byte{}, source...), source...)

	linear, err := CreateLinear(source, target)
	require.NoError(t, err)
	delta, err := CreateDelta(context.Background(), source, target)
	require.NoError(t, err)

	require.LessOrEqual(t, len(delta.Data), len(linear.Data))
}
