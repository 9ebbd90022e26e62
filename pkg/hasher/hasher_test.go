package hasher

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Hasher(t *testing.T) {
	ctx := context.Background()
	input := []byte("abc")

	t.Run("Known digests", func(t *testing.T) {
		vectors := map[string]string{
			Algorithm_Keccak256: "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45",
			Algorithm_Sha256:    "0xba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
			Algorithm_Sha3_256:  "0x3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532",
		}
		for algorithm, expected := range vectors {
			h, err := NewHasher(algorithm)
			assert.Nil(t, err)

			digest, err := h.Hash(ctx, input)
			assert.Nil(t, err)
			assert.Equal(t, expected, digest.Hex(), algorithm)
		}
	})
	t.Run("Every algorithm produces Size() bytes deterministically", func(t *testing.T) {
		for _, algorithm := range Algorithms() {
			h, err := NewHasher(algorithm)
			assert.Nil(t, err)
			assert.Equal(t, algorithm, h.Name())

			first, err := h.Hash(ctx, input)
			assert.Nil(t, err)
			assert.Len(t, first, h.Size(), algorithm)

			second, err := h.Hash(ctx, input)
			assert.Nil(t, err)
			assert.True(t, first.Equal(second), algorithm)

			other, err := h.Hash(ctx, []byte("abd"))
			assert.Nil(t, err)
			assert.False(t, first.Equal(other), algorithm)
		}
	})
	t.Run("Empty input is rejected", func(t *testing.T) {
		h, _ := NewHasher(Algorithm_Keccak256)
		_, err := h.Hash(ctx, nil)
		assert.True(t, errors.Is(err, ErrEmptyInput))
	})
	t.Run("Unknown algorithms are rejected", func(t *testing.T) {
		_, err := NewHasher("md5")
		assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
	})
	t.Run("Names are case insensitive", func(t *testing.T) {
		h, err := NewHasher("KECCAK256")
		assert.Nil(t, err)
		assert.Equal(t, "keccak256(eth_getCode(0x1))", h.Describe("eth_getCode(0x1)"))
	})
}
