package upstream

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractcache/internal/contract"
)

func TestPackCall_Selectors(t *testing.T) {
	tests := []struct {
		fn       contract.Function
		params   []string
		selector string
	}{
		{contract.FuncName, nil, "0x06fdde03"},
		{contract.FuncSymbol, nil, "0x95d89b41"},
		{contract.FuncTokenURI, []string{"1"}, "0xc87b56dd"},
		{contract.FuncOwner, nil, "0x8da5cb5b"},
		{contract.FuncOwnerOf, []string{"1"}, "0x6352211e"},
		{contract.FuncTotalSupply, nil, "0x18160ddd"},
		{contract.FuncBalanceOf, []string{testContract}, "0x70a08231"},
	}

	for _, tt := range tests {
		t.Run(tt.fn.String(), func(t *testing.T) {
			data, err := packCall(tt.fn, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.selector, hexutil.Encode(data[:4]))
			assert.Len(t, data, 4+32*len(tt.params))
		})
	}
}

func TestPackCall_BadParams(t *testing.T) {
	_, err := packCall(contract.FuncTokenURI, nil)
	assert.Error(t, err)

	_, err = packCall(contract.FuncTokenURI, []string{"abc"})
	assert.Error(t, err)

	_, err = packCall(contract.FuncBalanceOf, []string{"0x12"})
	assert.Error(t, err)
}

func TestDecodeResult_Uint256BeyondFloat(t *testing.T) {
	method := contractABI.Methods["totalSupply"]
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	out, err := method.Outputs.Pack(huge)
	require.NoError(t, err)

	got, err := decodeResult(contract.FuncTotalSupply, out)
	require.NoError(t, err)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", got)
}
