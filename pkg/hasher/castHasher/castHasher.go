package castHasher

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/Layr-Labs/codehash/pkg/cast"
	"github.com/Layr-Labs/codehash/pkg/hasher"
	"github.com/pkg/errors"
)

const Name = "cast"

const keccakSize = 32

// CastHasher computes keccak256 with `cast keccak`.
type CastHasher struct {
	runner *cast.Runner
}

func NewCastHasher(runner *cast.Runner) *CastHasher {
	return &CastHasher{
		runner: runner,
	}
}

func (ch *CastHasher) Name() string {
	return Name
}

func (ch *CastHasher) Size() int {
	return keccakSize
}

func (ch *CastHasher) Describe(input string) string {
	return fmt.Sprintf("cast keccak $(%s)", input)
}

func (ch *CastHasher) Hash(ctx context.Context, data []byte) (hasher.Digest, error) {
	if len(data) == 0 {
		return nil, hasher.ErrEmptyInput
	}
	// cast treats 0x-prefixed input as bytes rather than a utf-8 string
	out, err := ch.runner.Run(ctx, "keccak", bytecode.Code(data).Hex())
	if err != nil {
		return nil, err
	}
	digest, err := bytecode.DecodeHex(out)
	if err != nil {
		return nil, errors.Wrap(err, "unexpected cast keccak output")
	}
	if len(digest) != keccakSize {
		return nil, errors.Errorf("cast keccak returned %d bytes, expected %d", len(digest), keccakSize)
	}
	return hasher.Digest(digest), nil
}
