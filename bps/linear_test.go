package bps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romhack/patchkit"
)

func TestCreateLinearRoundTrip(t *testing.T) {
	cases := []struct {
		name           string
		source, target []byte
	}{
		{"shared prefix and suffix", []byte("AAAAmiddle-oneAAAA"), []byte("AAAAmiddle-twoAAAA")},
		{"target longer", []byte("short"), []byte("a considerably longer target string")},
		{"target shorter", []byte("a considerably longer source string"), []byte("short")},
		{"no overlap", []byte("completely different"), []byte("totally unrelated bytes")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patch, err := CreateLinear(tc.source, tc.target)
			require.NoError(t, err)

			out, err := Apply(patch.Data, tc.source)
			require.NoError(t, err)
			require.Equal(t, tc.target, out.Data)
		})
	}
}

func TestCreateLinearIdenticalBuffersIsIdentical(t *testing.T) {
	buf := []byte("identical on both sides")
	_, err := CreateLinear(buf, buf)
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Identical, kind)
}

func TestCreateLinearEmbedsMetadata(t *testing.T) {
	source := []byte("the quick brown fox")
	target := []byte("the slow brown dog")
	meta := []byte(`{"author":"test"}`)

	patch, err := CreateLinear(source, target, CreateOptions{Metadata: meta})
	require.NoError(t, err)

	out, err := Apply(patch.Data, source)
	require.NoError(t, err)
	require.Equal(t, target, out.Data)
	require.Equal(t, meta, out.Metadata)
}

func TestCreateLinearMissingBufferIsCanceled(t *testing.T) {
	_, err := CreateLinear(nil, []byte("target"))
	kind, ok := patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Canceled, kind)

	_, err = CreateLinear([]byte("source"), nil)
	kind, ok = patchkit.Of(err)
	require.True(t, ok)
	require.Equal(t, patchkit.Canceled, kind)
}

func TestCreateLinearDeterministic(t *testing.T) {
	source := []byte("the quick brown fox")
	target := []byte("the slow brown dog")

	p1, err := CreateLinear(source, target)
	require.NoError(t, err)
	p2, err := CreateLinear(source, target)
	require.NoError(t, err)
	require.Equal(t, p1.Data, p2.Data)
}
