package sizeconv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBytesRawInteger(t *testing.T) {
	n, err := ParseBytes("1073741824")
	require.NoError(t, err)
	require.Equal(t, int64(1073741824), n)
}

func TestParseBytesHumanReadable(t *testing.T) {
	cases := map[string]int64{
		"1GB":   1 << 30,
		"1GiB":  1 << 30,
		"1 GB":  1 << 30,
		"512MB": 512 << 20,
		"2g":    2 << 30,
	}
	for in, want := range cases {
		got, err := ParseBytes(in)
		require.NoErrorf(t, err, "ParseBytes(%q)", in)
		require.Equalf(t, want, got, "ParseBytes(%q)", in)
	}
}

func TestParseBytesRejectsGarbage(t *testing.T) {
	_, err := ParseBytes("not-a-size")
	require.Error(t, err)
}

func TestFormatDecimalStripsBinaryLabel(t *testing.T) {
	require.Equal(t, "1 GB", FormatDecimal(1<<30))
}

func TestNormalizeSizeRoundTrip(t *testing.T) {
	got, err := NormalizeSize("2 GB")
	require.NoError(t, err)
	require.Equal(t, "2 GB", got)
}
