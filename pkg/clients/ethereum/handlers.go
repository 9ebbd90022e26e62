package ethereum

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type ResponseParserFunc[T any] func(res json.RawMessage) (T, error)

type RequestResponseHandler[T any] struct {
	RequestMethod  *RequestMethod
	ResponseParser ResponseParserFunc[T]
}

func parseHexString(res json.RawMessage) (string, error) {
	var value string
	if err := json.Unmarshal(res, &value); err != nil {
		return "", errors.Wrap(err, "expected a hex string result")
	}
	return value, nil
}

var (
	RPCMethod_getCode = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name: "eth_getCode",
		},
		// https://ethereum.org/en/developers/docs/apis/json-rpc/#eth_getcode
		ResponseParser: parseHexString,
	}
)

// GetCodeRequest builds an eth_getCode request.
//
// Block can be:
// - The hex representation of a block number
// - "earliest"
// - "latest"
// - "safe"
// - "finalized"
// - "pending".
func GetCodeRequest(address string, block string, id uint) *RPCRequest {
	if block == "" {
		block = "latest"
	}
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getCode.RequestMethod.Name,
		Params:  []interface{}{address, block},
		ID:      id,
	}
}
