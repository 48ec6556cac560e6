package upstream

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"contractcache/internal/contract"
)

// viewABI declares the whitelisted view functions (ERC-721 metadata, Ownable and
// the creator registry counter)
const viewABI = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCreatorCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

var contractABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(viewABI))
	if err != nil {
		panic(fmt.Sprintf("upstream: invalid view ABI: %v", err))
	}

	for _, fn := range contract.Functions() {
		method, ok := parsed.Methods[fn.String()]
		if !ok || len(method.Outputs) != 1 {
			panic(fmt.Sprintf("upstream: ABI does not declare %s with a single output", fn))
		}
	}

	contractABI = parsed
}

// packCall encodes the calldata (selector + arguments) of fn
func packCall(fn contract.Function, params []string) ([]byte, error) {
	desc := fn.Describe()

	var args []interface{}
	switch desc.Params {
	case contract.NoParams:
	case contract.TokenIDParam:
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 parameter, got %d", fn, len(params))
		}
		id, ok := new(big.Int).SetString(params[0], 10)
		if !ok {
			return nil, fmt.Errorf("invalid token id '%s'", params[0])
		}
		args = append(args, id)
	case contract.AddressParam:
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 parameter, got %d", fn, len(params))
		}
		if !common.IsHexAddress(params[0]) {
			return nil, fmt.Errorf("invalid address '%s'", params[0])
		}
		args = append(args, common.HexToAddress(params[0]))
	}

	data, err := contractABI.Pack(desc.Method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", fn, err)
	}
	return data, nil
}

// decodeResult unpacks the return data of fn into its string form.
// Integers become decimal strings and addresses EIP-55 checksummed hex.
func decodeResult(fn contract.Function, data []byte) (string, error) {
	values, err := contractABI.Unpack(fn.String(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s result: %w", fn, err)
	}
	if len(values) != 1 {
		return "", fmt.Errorf("%s returned %d values", fn, len(values))
	}

	switch v := values[0].(type) {
	case string:
		return v, nil
	case *big.Int:
		return v.String(), nil
	case common.Address:
		return v.Hex(), nil
	default:
		return "", fmt.Errorf("unexpected %s result type %T", fn, v)
	}
}
