package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEthCall(t *testing.T) {
	req, err := NewEthCall("0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", "0x06fdde03", NewIDInt(7))
	require.NoError(t, err)

	data, err := req.Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"jsonrpc": "2.0",
		"method": "eth_call",
		"params": [{"to": "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", "data": "0x06fdde03"}, "latest"],
		"id": 7
	}`, string(data))
}

func TestRequest_EthCallArgsRoundTrip(t *testing.T) {
	req, err := NewEthCall("0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", "0x70a08231", NewIDInt(3))
	require.NoError(t, err)
	data, err := req.Bytes()
	require.NoError(t, err)

	parsed, err := ParseRequest(data)
	require.NoError(t, err)
	msg, block, err := parsed.EthCallArgs()
	require.NoError(t, err)
	assert.Equal(t, CallMsg{To: "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", Data: "0x70a08231"}, msg)
	assert.Equal(t, BlockLatest, block)

	parsed.Method = "eth_getBalance"
	_, _, err = parsed.EthCallArgs()
	assert.Error(t, err)

	parsed, err = ParseRequest([]byte(`{"jsonrpc":"2.0","method":"eth_call","params":[{"to":"0x1"}],"id":1}`))
	require.NoError(t, err)
	_, _, err = parsed.EthCallArgs()
	assert.Error(t, err)
}

func TestID_Key(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`42`, "42"},
		{`42.0`, "42"},
		{` 7 `, "7"},
		{`"abc"`, `"abc"`},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &id))
		assert.Equal(t, tt.want, id.Key(), tt.raw)
	}

	assert.Equal(t, "42", NewIDInt(42).Key())
	assert.True(t, ID{}.IsNull())

	data, err := json.Marshal(struct {
		ID ID `json:"id"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":null}`, string(data))
}

func TestResponse_ResultString(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"jsonrpc":"2.0","result":"0xabcd","id":1}`))
	require.NoError(t, err)
	s, err := resp.ResultString()
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", s)

	resp, err = ParseResponse([]byte(`{"jsonrpc":"2.0","result":null,"id":1}`))
	require.NoError(t, err)
	_, err = resp.ResultString()
	assert.ErrorIs(t, err, ErrEmptyResult)

	resp, err = ParseResponse([]byte(`{"jsonrpc":"2.0","error":{"code":3,"message":"execution reverted","data":"0x"},"id":1}`))
	require.NoError(t, err)
	_, err = resp.ResultString()
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.True(t, rpcErr.IsExecutionReverted())
}

func TestError_Message(t *testing.T) {
	err := NewError(CodeInternalError, "header not found")
	assert.Equal(t, "rpc error -32603: header not found", err.Error())
	assert.False(t, err.IsExecutionReverted())

	err.Data = json.RawMessage(`"0x08c379a0"`)
	assert.Contains(t, err.Error(), "0x08c379a0")
}
