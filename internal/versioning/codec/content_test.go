package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

func TestCompressRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"Hello",
		"Hello World\nwith lines\n",
		"unicode: 日本語 и кириллица",
		strings.Repeat("abcdefgh", 10_000),
	}

	for _, text := range cases {
		compressed, err := Compress(text)
		require.NoError(t, err)

		out, err := Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, text, out)
	}
}

func TestCompressShrinksRepetitiveText(t *testing.T) {
	text := strings.Repeat("the same line over and over\n", 500)

	compressed, err := Compress(text)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(text))
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress([]byte("definitely not gzip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptData))
}

func TestHash(t *testing.T) {
	h1 := Hash("Hello")
	h2 := Hash("Hello")
	h3 := Hash("hello")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // hex-encoded sha256
}
