package codeFetcher

import (
	"context"

	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/pkg/errors"
)

var ErrNoCode = errors.New("no code deployed at address")

type CodeFetcher interface {
	// GetCode returns the code deployed at address. Implementations return
	// ErrNoCode rather than empty code.
	GetCode(ctx context.Context, address string) (bytecode.Code, error)
	// Describe renders the fetch for the report echo line.
	Describe(address string) string
	Endpoint() string
}

// RequireCode converts an empty result into ErrNoCode.
func RequireCode(code bytecode.Code, address string) (bytecode.Code, error) {
	if len(code) == 0 {
		return nil, errors.Wrapf(ErrNoCode, "%s", address)
	}
	return code, nil
}
