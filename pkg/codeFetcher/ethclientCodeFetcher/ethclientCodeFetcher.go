package ethclientCodeFetcher

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"

	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type EthclientCodeFetcherConfig struct {
	Url      string
	BlockTag string
	// HttpClient is used for http(s) endpoints. Nil uses the go-ethereum default.
	HttpClient *http.Client
}

// EthclientCodeFetcher fetches code through go-ethereum's ethclient, which
// also speaks websockets. The connection is opened on first use.
type EthclientCodeFetcher struct {
	config *EthclientCodeFetcherConfig
	logger *zap.Logger
	block  *big.Int

	mu     sync.Mutex
	client *ethclient.Client
}

func ParseBlockTag(tag string) (*big.Int, error) {
	if tag == "" {
		return nil, nil
	}
	var bn rpc.BlockNumber
	if err := bn.UnmarshalJSON([]byte(strconv.Quote(tag))); err != nil {
		return nil, errors.Wrapf(err, "invalid block tag '%s'", tag)
	}
	if bn == rpc.LatestBlockNumber {
		return nil, nil
	}
	return big.NewInt(bn.Int64()), nil
}

func NewEthclientCodeFetcher(cfg *EthclientCodeFetcherConfig, l *zap.Logger) (*EthclientCodeFetcher, error) {
	block, err := ParseBlockTag(cfg.BlockTag)
	if err != nil {
		return nil, err
	}
	return &EthclientCodeFetcher{
		config: cfg,
		logger: l,
		block:  block,
	}, nil
}

func (ef *EthclientCodeFetcher) Endpoint() string {
	return ef.config.Url
}

func (ef *EthclientCodeFetcher) Describe(address string) string {
	tag := ef.config.BlockTag
	if tag == "" {
		tag = "latest"
	}
	return fmt.Sprintf("eth_getCode(%s, %s)", address, tag)
}

func (ef *EthclientCodeFetcher) dial(ctx context.Context) (*ethclient.Client, error) {
	ef.mu.Lock()
	defer ef.mu.Unlock()

	if ef.client != nil {
		return ef.client, nil
	}
	options := []rpc.ClientOption{}
	if ef.config.HttpClient != nil {
		options = append(options, rpc.WithHTTPClient(ef.config.HttpClient))
	}
	rc, err := rpc.DialOptions(ctx, ef.config.Url, options...)
	if err != nil {
		ef.logger.Sugar().Errorw("Failed to create new eth client", zap.Error(err))
		return nil, err
	}
	ef.client = ethclient.NewClient(rc)
	return ef.client, nil
}

func (ef *EthclientCodeFetcher) GetCode(ctx context.Context, address string) (bytecode.Code, error) {
	client, err := ef.dial(ctx)
	if err != nil {
		return nil, err
	}

	code, err := client.CodeAt(ctx, common.HexToAddress(address), ef.block)
	if err != nil {
		ef.logger.Sugar().Errorw("Failed to get the contract bytecode",
			zap.Error(err),
			zap.String("address", address),
		)
		return nil, err
	}
	return codeFetcher.RequireCode(bytecode.Code(code), address)
}

func (ef *EthclientCodeFetcher) Close() {
	ef.mu.Lock()
	defer ef.mu.Unlock()

	if ef.client != nil {
		ef.client.Close()
		ef.client = nil
	}
}
