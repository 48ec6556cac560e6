package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractcache/internal/contract"
	"contractcache/internal/jsonrpc"
)

func newTestClient(t *testing.T, node *fakeNode, timeout time.Duration, breaker *CircuitBreaker) *Client {
	t.Helper()
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Endpoint:       server.URL,
		Timeout:        timeout,
		CircuitBreaker: breaker,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_Call(t *testing.T) {
	client := newTestClient(t, newFakeNode(), time.Second, nil)

	tests := []struct {
		fn     contract.Function
		params []string
		want   string
	}{
		{contract.FuncName, nil, "Bored Ape Yacht Club"},
		{contract.FuncSymbol, nil, "BAYC"},
		{contract.FuncTokenURI, []string{"5"}, "ipfs://meta/5"},
		{contract.FuncOwner, nil, testOwner},
		{contract.FuncOwnerOf, []string{"5"}, testOwner},
		{contract.FuncTotalSupply, nil, "10000"},
		{contract.FuncBalanceOf, []string{testContract}, "123456789012345678901234567890"},
		{contract.FuncGetCreatorCount, []string{}, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.fn.String(), func(t *testing.T) {
			got, err := client.Call(context.Background(), testContract, tt.fn, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_UnsupportedFunctionFailsFast(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node, time.Second, nil)

	_, err := client.Call(context.Background(), testContract, contract.Function(99), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFunction)
	assert.Equal(t, int32(0), node.calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	node := newFakeNode()
	node.delay = 500 * time.Millisecond
	client := newTestClient(t, node, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := client.Call(context.Background(), testContract, contract.FuncName, nil)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.True(t, upErr.Timeout())
	assert.Equal(t, contract.FuncName, upErr.Function)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestClient_NodeError(t *testing.T) {
	node := newFakeNode()
	node.setError(jsonrpc.NewError(jsonrpc.CodeExecutionReverted, "execution reverted"))
	client := newTestClient(t, node, time.Second, nil)

	_, err := client.Call(context.Background(), testContract, contract.FuncOwnerOf, []string{"999"})

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.True(t, rpcErr.IsExecutionReverted())
}

func TestClient_HTTPStatusError(t *testing.T) {
	node := newFakeNode()
	node.setStatus(http.StatusBadGateway)
	client := newTestClient(t, node, time.Second, nil)

	_, err := client.Call(context.Background(), testContract, contract.FuncName, nil)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Contains(t, err.Error(), "HTTP error 502")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestClient_EmptyReturnData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":"0x","id":1}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, Timeout: time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), testContract, contract.FuncName, nil)
	var upErr *UpstreamError
	assert.True(t, errors.As(err, &upErr), "a contract without the function must surface as an upstream failure")
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := NewClient(Config{Endpoint: endpoint, Timeout: time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), testContract, contract.FuncSymbol, nil)
	var upErr *UpstreamError
	assert.True(t, errors.As(err, &upErr))
}

func TestClient_CircuitBreaker(t *testing.T) {
	node := newFakeNode()
	node.setStatus(http.StatusServiceUnavailable)
	breaker := NewCircuitBreaker(2, time.Hour)
	client := newTestClient(t, node, time.Second, breaker)

	for i := 0; i < 2; i++ {
		_, err := client.Call(context.Background(), testContract, contract.FuncName, nil)
		require.Error(t, err)
	}
	assert.Equal(t, "open", breaker.State())

	_, err := client.Call(context.Background(), testContract, contract.FuncName, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	var upErr *UpstreamError
	assert.True(t, errors.As(err, &upErr))
	assert.Equal(t, int32(2), node.calls.Load(), "open breaker must not reach the node")
}

func TestClient_WebSocket(t *testing.T) {
	node := newFakeNode()
	server := httptest.NewServer(node.serveWS(t))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: wsURL(server), Timeout: time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer client.Close()

	got, err := client.Call(context.Background(), testContract, contract.FuncTokenURI, []string{"42"})
	require.NoError(t, err)
	assert.Equal(t, "ipfs://meta/42", got)

	got, err = client.Call(context.Background(), testContract, contract.FuncTotalSupply, nil)
	require.NoError(t, err)
	assert.Equal(t, "10000", got)
	assert.Equal(t, int32(2), node.calls.Load())
}

func TestClient_WebSocketRedial(t *testing.T) {
	node := newFakeNode()
	server := httptest.NewServer(node.serveWS(t))
	defer server.Close()

	transport := NewWSTransport(wsURL(server), zerolog.Nop())
	client := NewClientWithTransport(transport, Config{Timeout: time.Second, Logger: zerolog.Nop()})
	defer client.Close()

	_, err := client.Call(context.Background(), testContract, contract.FuncName, nil)
	require.NoError(t, err)

	// break the live connection; the next call must dial again
	transport.mu.Lock()
	conn := transport.cur
	transport.mu.Unlock()
	require.NotNil(t, conn)
	_ = conn.conn.Close()

	require.Eventually(t, func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return transport.cur == nil
	}, time.Second, 10*time.Millisecond)

	got, err := client.Call(context.Background(), testContract, contract.FuncSymbol, nil)
	require.NoError(t, err)
	assert.Equal(t, "BAYC", got)
}

func currentConn(transport *WSTransport) *wsConn {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return transport.cur
}

func TestWSTransport_UnansweredCallRedials(t *testing.T) {
	peer, server := newSilentPeer(t)

	transport := NewWSTransport(wsURL(server), zerolog.Nop())
	transport.pingInterval = 0
	defer transport.Close()

	req, err := jsonrpc.NewEthCall(testContract, "0x06fdde03", jsonrpc.NewIDInt(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	_, err = transport.Execute(ctx, req)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, currentConn(transport))

	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	_, err = transport.Execute(ctx, req)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), peer.dials.Load())
}

func TestWSTransport_MissedPongsDropConnection(t *testing.T) {
	_, server := newSilentPeer(t)

	transport := NewWSTransport(wsURL(server), zerolog.Nop())
	transport.pingInterval = 20 * time.Millisecond
	transport.readTimeout = 150 * time.Millisecond
	defer transport.Close()

	c, err := transport.connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)

	require.Eventually(t, func() bool {
		return currentConn(transport) == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSTransport_PongsKeepConnectionAlive(t *testing.T) {
	node := newFakeNode()
	server := httptest.NewServer(node.serveWS(t))
	defer server.Close()

	transport := NewWSTransport(wsURL(server), zerolog.Nop())
	transport.pingInterval = 20 * time.Millisecond
	transport.readTimeout = 150 * time.Millisecond
	client := NewClientWithTransport(transport, Config{Timeout: time.Second, Logger: zerolog.Nop()})
	defer client.Close()

	_, err := client.Call(context.Background(), testContract, contract.FuncName, nil)
	require.NoError(t, err)
	first := currentConn(transport)
	require.NotNil(t, first)

	// idle for longer than the read timeout; only pongs arrive
	time.Sleep(400 * time.Millisecond)
	assert.Same(t, first, currentConn(transport))

	got, err := client.Call(context.Background(), testContract, contract.FuncSymbol, nil)
	require.NoError(t, err)
	assert.Equal(t, "BAYC", got)
}

func TestWSTransport_Closed(t *testing.T) {
	transport := NewWSTransport("ws://127.0.0.1:1", zerolog.Nop())
	require.NoError(t, transport.Close())

	req, err := jsonrpc.NewEthCall(testContract, "0x06fdde03", jsonrpc.NewIDInt(1))
	require.NoError(t, err)
	_, err = transport.Execute(context.Background(), req)
	assert.ErrorIs(t, err, errWSClosed)
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport("https://node.example", time.Second, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &HTTPTransport{}, tr)

	tr, err = NewTransport("wss://node.example/ws", time.Second, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &WSTransport{}, tr)

	_, err = NewTransport("ipc:///tmp/geth.ipc", time.Second, zerolog.Nop())
	assert.Error(t, err)
}
