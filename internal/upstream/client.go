package upstream

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"contractcache/internal/config"
	"contractcache/internal/contract"
	"contractcache/internal/jsonrpc"
)

//go:generate mockgen -destination=mock_caller.go -package=upstream contractcache/internal/upstream Caller

// Caller invokes a whitelisted view function and returns its decoded result
type Caller interface {
	Call(ctx context.Context, address string, fn contract.Function, params []string) (string, error)
}

// Transport delivers one JSON-RPC request to the node
type Transport interface {
	Execute(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)
	Close() error
}

// Client calls view functions through eth_call. It makes a single attempt per call.
type Client struct {
	transport Transport
	timeout   time.Duration
	breaker   *CircuitBreaker
	reqID     atomic.Int64
	logger    zerolog.Logger
}

// Config for creating a new Client
type Config struct {
	Endpoint       string
	Timeout        time.Duration
	CircuitBreaker *CircuitBreaker
	Logger         zerolog.Logger
}

// NewClient creates a Client with a transport chosen by the endpoint scheme
func NewClient(cfg Config) (*Client, error) {
	transport, err := NewTransport(cfg.Endpoint, cfg.Timeout, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return NewClientWithTransport(transport, cfg), nil
}

// NewClientWithTransport creates a Client on top of an existing transport
func NewClientWithTransport(transport Transport, cfg Config) *Client {
	return &Client{
		transport: transport,
		timeout:   cfg.Timeout,
		breaker:   cfg.CircuitBreaker,
		logger:    cfg.Logger.With().Str("component", "upstream").Logger(),
	}
}

// NewClientFromConfig creates a Client from the service configuration
func NewClientFromConfig(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	var breaker *CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		breaker = NewCircuitBreaker(cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.GetRecoveryTimeoutDuration())
	}

	return NewClient(Config{
		Endpoint:       cfg.RPCEndpoint,
		Timeout:        cfg.GetRPCTimeoutDuration(),
		CircuitBreaker: breaker,
		Logger:         logger,
	})
}

// NewTransport creates an HTTP transport for http(s):// endpoints and a
// WebSocket transport for ws(s):// endpoints
func NewTransport(endpoint string, timeout time.Duration, logger zerolog.Logger) (Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid rpc endpoint: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPTransport(endpoint, timeout), nil
	case "ws", "wss":
		return NewWSTransport(endpoint, logger), nil
	default:
		return nil, fmt.Errorf("unsupported rpc endpoint scheme '%s'", u.Scheme)
	}
}

// Call executes fn on the contract at address. Every failure is an *UpstreamError
// except ErrUnsupportedFunction.
func (c *Client) Call(ctx context.Context, address string, fn contract.Function, params []string) (string, error) {
	if !fn.Valid() {
		return "", ErrUnsupportedFunction
	}

	fail := func(err error) (string, error) {
		return "", &UpstreamError{Function: fn, Address: address, Cause: err}
	}

	data, err := packCall(fn, params)
	if err != nil {
		return fail(err)
	}

	if c.breaker != nil && !c.breaker.AllowRequest() {
		return fail(ErrCircuitOpen)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := jsonrpc.NewEthCall(address, hexutil.Encode(data), jsonrpc.NewIDInt(c.reqID.Add(1)))
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	resp, err := c.transport.Execute(ctx, req)
	if err != nil {
		c.recordFailure()
		c.logger.Debug().Err(err).Str("function", fn.String()).Str("address", address).Dur("took", time.Since(start)).Msg("eth_call failed")
		return fail(err)
	}

	// the node answered, so the breaker counts this as healthy even if the call reverted
	c.recordSuccess()

	raw, err := resp.ResultString()
	if err != nil {
		return fail(err)
	}

	returnData, err := hexutil.Decode(raw)
	if err != nil {
		return fail(fmt.Errorf("invalid return data: %w", err))
	}

	value, err := decodeResult(fn, returnData)
	if err != nil {
		return fail(err)
	}

	c.logger.Debug().Str("function", fn.String()).Str("address", address).Dur("took", time.Since(start)).Msg("eth_call succeeded")
	return value, nil
}

// Close closes the transport
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) recordFailure() {
	if c.breaker == nil {
		return
	}
	if opened := c.breaker.RecordFailure(); opened {
		c.logger.Warn().Msg("circuit breaker opened, failing fast")
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}
