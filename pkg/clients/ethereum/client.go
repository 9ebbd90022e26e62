package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type RequestMethod struct {
	Name string
}

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

var jsonRPCVersion = "2.0"

type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
	nextId       atomic.Uint32
}

type EthereumClientConfig struct {
	BaseUrl string
	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration
}

func DefaultEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{
		Timeout: time.Second * 10,
	}
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEthereumClientConfig().Timeout
	}
	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	l.Sugar().Debugw("Creating new Ethereum client", zap.String("baseUrl", cfg.BaseUrl))

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) BaseUrl() string {
	return c.clientConfig.BaseUrl
}

func (c *Client) requestId() uint {
	return uint(c.nextId.Add(1))
}

// GetCode returns the hex encoded bytecode deployed at address as of block.
// Accounts without code return "0x".
func (c *Client) GetCode(ctx context.Context, address string, block string) (string, error) {
	rpcRequest := GetCodeRequest(address, block, c.requestId())

	res, err := c.Call(ctx, rpcRequest)
	if err != nil {
		return "", err
	}
	bytecode, err := RPCMethod_getCode.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to get contract bytecode",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return "", err
	}
	return bytecode, nil
}

// Call sends a single request. Failures are returned as-is, there is no retry.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	requestBody, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	c.Logger.Sugar().Debugw("Request body", zap.String("requestBody", string(requestBody)))

	ctx, cancel := context.WithTimeout(ctx, c.clientConfig.Timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to make request")
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read body")
	}
	if response.StatusCode != http.StatusOK {
		return nil, errors.Errorf("received http error code %+v", response.StatusCode)
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	if destination.Error != nil {
		return nil, destination.Error
	}

	return destination, nil
}
