package castCodeFetcher

import (
	"context"
	"strings"

	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/Layr-Labs/codehash/pkg/cast"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CastCodeFetcher shells out to `cast code`.
type CastCodeFetcher struct {
	runner   *cast.Runner
	rpcUrl   string
	blockTag string
	logger   *zap.Logger
}

func NewCastCodeFetcher(runner *cast.Runner, rpcUrl string, blockTag string, l *zap.Logger) *CastCodeFetcher {
	return &CastCodeFetcher{
		runner:   runner,
		rpcUrl:   rpcUrl,
		blockTag: blockTag,
		logger:   l,
	}
}

func (cf *CastCodeFetcher) Endpoint() string {
	return cf.rpcUrl
}

func (cf *CastCodeFetcher) args(address string) []string {
	args := []string{"code", address, "--rpc-url", cf.rpcUrl}
	if cf.blockTag != "" && cf.blockTag != "latest" {
		args = append(args, "--block", cf.blockTag)
	}
	return args
}

func (cf *CastCodeFetcher) Describe(address string) string {
	return "cast " + strings.Join(cf.args(address), " ")
}

func (cf *CastCodeFetcher) GetCode(ctx context.Context, address string) (bytecode.Code, error) {
	out, err := cf.runner.Run(ctx, cf.args(address)...)
	if err != nil {
		return nil, err
	}
	code, err := bytecode.DecodeHex(out)
	if err != nil {
		return nil, errors.Wrap(err, "unexpected cast code output")
	}
	cf.logger.Sugar().Debugw("Fetched the contract bytecode with cast",
		zap.String("address", address),
		zap.Int("size", code.Len()),
	)
	return codeFetcher.RequireCode(code, address)
}
