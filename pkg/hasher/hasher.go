package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

type Digest []byte

func (d Digest) Hex() string {
	return "0x" + hex.EncodeToString(d)
}

func (d Digest) String() string {
	return d.Hex()
}

func (d Digest) Equal(other Digest) bool {
	return slices.Equal(d, other)
}

var (
	ErrEmptyInput       = errors.New("cannot hash empty input")
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)

type Hasher interface {
	// Name is the algorithm name used in reports and config.
	Name() string
	// Size is the digest length in bytes.
	Size() int
	// Describe renders the hash step applied to input for the report echo line.
	Describe(input string) string
	Hash(ctx context.Context, data []byte) (Digest, error)
}

const (
	Algorithm_Keccak256  = "keccak256"
	Algorithm_Sha256     = "sha256"
	Algorithm_Sha3_256   = "sha3-256"
	Algorithm_Blake2b256 = "blake2b-256"
	Algorithm_Blake3     = "blake3"
)

type hashFuncHasher struct {
	name    string
	size    int
	newHash func() hash.Hash
}

func (h *hashFuncHasher) Name() string {
	return h.name
}

func (h *hashFuncHasher) Size() int {
	return h.size
}

func (h *hashFuncHasher) Describe(input string) string {
	return fmt.Sprintf("%s(%s)", h.name, input)
}

func (h *hashFuncHasher) Hash(_ context.Context, data []byte) (Digest, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	hh := h.newHash()
	hh.Write(data)
	return Digest(hh.Sum(nil)), nil
}

func newBlake2b256() hash.Hash {
	// only fails for keys longer than 64 bytes
	h, _ := blake2b.New256(nil)
	return h
}

var algorithms = map[string]*hashFuncHasher{
	Algorithm_Keccak256: {
		name:    Algorithm_Keccak256,
		size:    32,
		newHash: func() hash.Hash { return crypto.NewKeccakState() },
	},
	Algorithm_Sha256: {
		name:    Algorithm_Sha256,
		size:    sha256.Size,
		newHash: sha256.New,
	},
	Algorithm_Sha3_256: {
		name:    Algorithm_Sha3_256,
		size:    32,
		newHash: sha3.New256,
	},
	Algorithm_Blake2b256: {
		name:    Algorithm_Blake2b256,
		size:    blake2b.Size256,
		newHash: newBlake2b256,
	},
	Algorithm_Blake3: {
		name:    Algorithm_Blake3,
		size:    32,
		newHash: func() hash.Hash { return blake3.New() },
	},
}

// NewHasher returns the in-process hasher for the named algorithm.
func NewHasher(algorithm string) (Hasher, error) {
	h, ok := algorithms[strings.ToLower(algorithm)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "'%s' (supported: %s)", algorithm, strings.Join(Algorithms(), ", "))
	}
	return h, nil
}

func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
