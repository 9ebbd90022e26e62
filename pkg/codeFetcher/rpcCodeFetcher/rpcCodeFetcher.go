package rpcCodeFetcher

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/Layr-Labs/codehash/pkg/clients/ethereum"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type RpcCodeFetcher struct {
	EthereumClient *ethereum.Client
	Logger         *zap.Logger
	blockTag       string
}

func NewRpcCodeFetcher(e *ethereum.Client, blockTag string, l *zap.Logger) *RpcCodeFetcher {
	if blockTag == "" {
		blockTag = "latest"
	}
	return &RpcCodeFetcher{
		EthereumClient: e,
		Logger:         l,
		blockTag:       blockTag,
	}
}

func (rf *RpcCodeFetcher) Endpoint() string {
	return rf.EthereumClient.BaseUrl()
}

func (rf *RpcCodeFetcher) Describe(address string) string {
	return fmt.Sprintf("eth_getCode(%s, %s)", address, rf.blockTag)
}

func (rf *RpcCodeFetcher) GetCode(ctx context.Context, address string) (bytecode.Code, error) {
	hexCode, err := rf.EthereumClient.GetCode(ctx, address, rf.blockTag)
	if err != nil {
		rf.Logger.Sugar().Errorw("Failed to get the contract bytecode",
			zap.Error(err),
			zap.String("address", address),
		)
		return nil, err
	}

	code, err := bytecode.DecodeHex(hexCode)
	if err != nil {
		return nil, errors.Wrap(err, "endpoint returned malformed bytecode")
	}
	rf.Logger.Sugar().Debugw("Fetched the contract bytecode",
		zap.String("address", address),
		zap.Int("size", code.Len()),
	)
	return codeFetcher.RequireCode(code, address)
}
