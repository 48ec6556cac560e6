package contract

import (
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Request input names
const (
	InputTokenID = "tokenId"
	InputAddress = "address"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ResolveParams extracts the positional call parameters of fn from the request inputs.
// Values are canonicalized so equivalent inputs derive the same cache key.
func ResolveParams(fn Function, inputs url.Values) ([]string, error) {
	switch rule := fn.Describe().Params; rule {
	case NoParams:
		return []string{}, nil
	case TokenIDParam:
		id, ok := parseUint256(inputs.Get(InputTokenID))
		if !ok {
			return nil, NewInvalidParameter(InputTokenID)
		}
		return []string{id}, nil
	case AddressParam:
		addr := strings.TrimSpace(inputs.Get(InputAddress))
		if !IsAddress(addr) {
			return nil, NewInvalidParameter(InputAddress)
		}
		return []string{strings.ToLower(common.HexToAddress(addr).Hex())}, nil
	default:
		panic("contract: unhandled parameter rule")
	}
}

// parseUint256 accepts decimal digits, or hex digits after an explicit 0x,
// and returns the decimal form. Leading zeros never switch the base.
func parseUint256(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw, base = raw[2:], 16
	}
	if raw == "" || strings.ContainsAny(raw, "+-_") {
		return "", false
	}

	n, ok := new(big.Int).SetString(raw, base)
	if !ok || n.Cmp(maxUint256) > 0 {
		return "", false
	}
	return n.String(), true
}
