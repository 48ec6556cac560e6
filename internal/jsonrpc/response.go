package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when a successful answer has no result
var ErrEmptyResult = errors.New("empty result")

// Response is the node's answer to a Request
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// NewResponse answers id with result
func NewResponse(id ID, result interface{}) (*Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, Result: data, ID: id}, nil
}

// NewErrorResponse answers id with rpcErr
func NewErrorResponse(id ID, rpcErr *Error) *Response {
	return &Response{JSONRPC: Version, Error: rpcErr, ID: id}
}

// ParseResponse decodes a single response
func ParseResponse(data []byte) (*Response, error) {
	resp := new(Response)
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp, nil
}

func (r *Response) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// Err returns the node's error as a Go error, or nil
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// ResultString returns a string result such as eth_call return data
func (r *Response) ResultString() (string, error) {
	if err := r.Err(); err != nil {
		return "", err
	}
	if len(r.Result) == 0 || bytes.Equal(r.Result, nullID) {
		return "", ErrEmptyResult
	}

	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return "", fmt.Errorf("result is not a string: %w", err)
	}
	return s, nil
}
