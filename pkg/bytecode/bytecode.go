// Package bytecode decodes deployed EVM bytecode and the metadata trailer
// solc appends to it.
package bytecode

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

type Code []byte

func (c Code) Hex() string {
	return "0x" + hex.EncodeToString(c)
}

func (c Code) Len() int {
	return len(c)
}

// DecodeHex accepts 0x-prefixed or bare hex. "0x" and "" decode to empty code.
func DecodeHex(s string) (Code, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		return nil, errors.Errorf("odd length hex string (%d characters)", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex bytecode")
	}
	return Code(b), nil
}

type Metadata struct {
	Ipfs         string `json:"ipfs,omitempty"`
	Bzzr0        string `json:"bzzr0,omitempty"`
	Bzzr1        string `json:"bzzr1,omitempty"`
	Solc         string `json:"solc,omitempty"`
	Experimental bool   `json:"experimental,omitempty"`
}

var ErrNoMetadata = errors.New("no metadata trailer")

var metadataDecMode, _ = cbor.DecOptions{
	MaxNestedLevels: 4,
	MaxMapPairs:     16,
}.DecMode()

// ParseMetadata decodes the CBOR map at the end of the code. The last two
// bytes hold the big-endian length of that map.
func ParseMetadata(code Code) (*Metadata, error) {
	if len(code) < 2 {
		return nil, ErrNoMetadata
	}
	length := int(binary.BigEndian.Uint16(code[len(code)-2:]))
	if length == 0 || length+2 > len(code) {
		return nil, ErrNoMetadata
	}
	trailer := code[len(code)-2-length : len(code)-2]

	raw := map[string]cbor.RawMessage{}
	if err := metadataDecMode.Unmarshal(trailer, &raw); err != nil {
		return nil, errors.Wrap(ErrNoMetadata, err.Error())
	}

	md := &Metadata{}
	for key, value := range raw {
		switch key {
		case "ipfs", "bzzr0", "bzzr1", "solc":
			var b []byte
			if err := metadataDecMode.Unmarshal(value, &b); err != nil {
				// solc prerelease builds store the version as a string
				var str string
				if key == "solc" && metadataDecMode.Unmarshal(value, &str) == nil {
					md.Solc = str
					continue
				}
				return nil, errors.Wrapf(err, "invalid metadata field '%s'", key)
			}
			switch key {
			case "ipfs":
				md.Ipfs = base58.Encode(b)
			case "bzzr0":
				md.Bzzr0 = hex.EncodeToString(b)
			case "bzzr1":
				md.Bzzr1 = hex.EncodeToString(b)
			case "solc":
				if len(b) == 3 {
					md.Solc = fmt.Sprintf("%d.%d.%d", b[0], b[1], b[2])
				} else {
					md.Solc = hex.EncodeToString(b)
				}
			}
		case "experimental":
			var experimental bool
			if err := metadataDecMode.Unmarshal(value, &experimental); err == nil {
				md.Experimental = experimental
			}
		}
	}
	if *md == (Metadata{}) {
		return nil, ErrNoMetadata
	}
	return md, nil
}
