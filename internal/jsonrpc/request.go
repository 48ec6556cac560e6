package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MethodEthCall = "eth_call"
	BlockLatest   = "latest"
)

// Request is a single JSON-RPC call. Batches are never sent.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// CallMsg is the transaction object of an eth_call
type CallMsg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// NewEthCall builds eth_call(msg, "latest")
func NewEthCall(to, data string, id ID) (*Request, error) {
	params, err := json.Marshal([]interface{}{CallMsg{To: to, Data: data}, BlockLatest})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal eth_call params: %w", err)
	}
	return &Request{JSONRPC: Version, Method: MethodEthCall, Params: params, ID: id}, nil
}

// EthCallArgs decodes the transaction object and block tag of an eth_call
func (r *Request) EthCallArgs() (CallMsg, string, error) {
	var (
		msg   CallMsg
		block string
	)
	if r.Method != MethodEthCall {
		return msg, "", fmt.Errorf("not an eth_call: %s", r.Method)
	}

	var params []json.RawMessage
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return msg, "", fmt.Errorf("bad params: %w", err)
	}
	if len(params) != 2 {
		return msg, "", errors.New("eth_call takes 2 params")
	}
	if err := json.Unmarshal(params[0], &msg); err != nil {
		return msg, "", fmt.Errorf("bad call object: %w", err)
	}
	if err := json.Unmarshal(params[1], &block); err != nil {
		return msg, "", fmt.Errorf("bad block tag: %w", err)
	}
	return msg, block, nil
}

func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// ParseRequest decodes a single request
func ParseRequest(data []byte) (*Request, error) {
	req := new(Request)
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}
