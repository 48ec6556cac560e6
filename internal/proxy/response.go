package proxy

import (
	"net/http"
	"time"

	"contractcache/internal/contract"
)

// staleNotice accompanies a value served after an upstream failure
const staleNotice = "RPC error, returning cached data"

// isoMillis renders instants like 2024-05-01T12:00:00.000Z
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Error codes beyond the validation kinds
const (
	CodeUpstreamFailure = "upstream_failure"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

// Response is the outcome of one request: an HTTP status and a JSON body
type Response struct {
	Status int
	Body   interface{}
}

// ResultBody is returned for fresh, cached and stale results
type ResultBody struct {
	Result   string `json:"result"`
	Cached   bool   `json:"cached"`
	Stale    bool   `json:"stale,omitempty"`
	CachedAt string `json:"cachedAt,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ErrorBody is returned for every rejected or failed request
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func freshResponse(value string) *Response {
	return &Response{Status: http.StatusOK, Body: ResultBody{Result: value, Cached: false}}
}

func cachedResponse(value string, cachedAt time.Time) *Response {
	return &Response{Status: http.StatusOK, Body: ResultBody{
		Result:   value,
		Cached:   true,
		CachedAt: cachedAt.UTC().Format(isoMillis),
	}}
}

func staleResponse(value string, cachedAt time.Time) *Response {
	return &Response{Status: http.StatusOK, Body: ResultBody{
		Result:   value,
		Cached:   true,
		Stale:    true,
		CachedAt: cachedAt.UTC().Format(isoMillis),
		Error:    staleNotice,
	}}
}

func upstreamFailureResponse(err error) *Response {
	return &Response{Status: http.StatusInternalServerError, Body: ErrorBody{
		Error:   "Failed to fetch data",
		Code:    CodeUpstreamFailure,
		Message: err.Error(),
	}}
}

func validationResponse(err *contract.ValidationError) *Response {
	status := http.StatusBadRequest
	if err.Kind == contract.KindNotWhitelisted {
		status = http.StatusForbidden
	}
	return &Response{Status: status, Body: ErrorBody{Error: err.Message, Code: string(err.Kind)}}
}

func internalErrorResponse() *Response {
	return &Response{Status: http.StatusInternalServerError, Body: ErrorBody{Error: "Internal error", Code: CodeInternal}}
}
