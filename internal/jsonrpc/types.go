// Package jsonrpc is the JSON-RPC 2.0 envelope used to talk to the node.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const Version = "2.0"

// Error codes this service produces or inspects
const (
	CodeInvalidParams = -32602
	CodeInternalError = -32603

	// geth-compatible nodes answer a reverted eth_call with code 3
	CodeExecutionReverted = 3
)

var nullID = []byte("null")

// ID is a request id kept in its wire form
type ID struct {
	raw []byte
}

// NewIDInt creates a numeric id
func NewIDInt(n int64) ID {
	return ID{raw: strconv.AppendInt(nil, n, 10)}
}

// Key returns a comparable form of the id. Numeric ids compare by value so
// a node echoing 7 as 7.0 still matches.
func (id ID) Key() string {
	raw := bytes.TrimSpace(id.raw)
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		return ""
	}
	s := string(raw)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// IsNull returns true if the id is absent or JSON null
func (id ID) IsNull() bool {
	return id.Key() == ""
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return nullID, nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	id.raw = append(id.raw[:0], data...)
	return nil
}

// Error is the error object of a failed call
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewError creates a new JSON-RPC error
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsExecutionReverted reports whether the contract reverted the call
func (e *Error) IsExecutionReverted() bool {
	return e.Code == CodeExecutionReverted || strings.Contains(strings.ToLower(e.Message), "execution reverted")
}
