package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeL85ProducesFiveCharsPerFourByteGroup(t *testing.T) {
	src := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	got := EncodeL85(src)
	assert.Len(t, got, 10)
	for _, c := range got {
		assert.True(t, strings.ContainsRune(L85Alphabet, c), "unexpected character %q", c)
	}
}

func TestEncodeL85IsDeterministicAndDistinct(t *testing.T) {
	a := EncodeL85([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b := EncodeL85([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, a, b)

	c := EncodeL85([]byte{1, 2, 3, 4, 5, 6, 7, 9})
	assert.NotEqual(t, a, c)
}

func TestEncodeL85EmptyInput(t *testing.T) {
	assert.Equal(t, "", EncodeL85(nil))
}
