package upstream

import (
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"

	"contractcache/internal/jsonrpc"
)

const (
	testContract = "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"
	testOwner    = "0x5a5c8B48DCA1d5e5e2B0A2d8DC1F62B2b6fbCC8A"
)

// fakeNode answers eth_call by ABI-encoding canned results
type fakeNode struct {
	mu      sync.Mutex
	results map[string]func(args []interface{}) interface{}
	rpcErr  *jsonrpc.Error
	status  int
	delay   time.Duration
	calls   atomic.Int32
}

func newFakeNode() *fakeNode {
	supply, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	return &fakeNode{
		results: map[string]func(args []interface{}) interface{}{
			"name":   func([]interface{}) interface{} { return "Bored Ape Yacht Club" },
			"symbol": func([]interface{}) interface{} { return "BAYC" },
			"tokenURI": func(args []interface{}) interface{} {
				return fmt.Sprintf("ipfs://meta/%d", args[0].(*big.Int))
			},
			"owner":           func([]interface{}) interface{} { return common.HexToAddress(testOwner) },
			"ownerOf":         func([]interface{}) interface{} { return common.HexToAddress(testOwner) },
			"totalSupply":     func([]interface{}) interface{} { return big.NewInt(10000) },
			"balanceOf":       func([]interface{}) interface{} { return supply },
			"getCreatorCount": func([]interface{}) interface{} { return big.NewInt(3) },
		},
	}
}

func (n *fakeNode) setError(err *jsonrpc.Error) {
	n.mu.Lock()
	n.rpcErr = err
	n.mu.Unlock()
}

func (n *fakeNode) setStatus(status int) {
	n.mu.Lock()
	n.status = status
	n.mu.Unlock()
}

func (n *fakeNode) answer(req *jsonrpc.Request) *jsonrpc.Response {
	n.calls.Add(1)

	n.mu.Lock()
	rpcErr := n.rpcErr
	n.mu.Unlock()
	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}

	msg, _, err := req.EthCallArgs()
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
	}

	data := hexutil.MustDecode(msg.Data)
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeExecutionReverted, "execution reverted"))
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
	}

	out, err := method.Outputs.Pack(n.results[method.Name](args))
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error()))
	}

	resp, _ := jsonrpc.NewResponse(req.ID, hexutil.Encode(out))
	return resp
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-r.Context().Done():
			return
		}
	}

	n.mu.Lock()
	status := n.status
	n.mu.Unlock()
	if status != 0 {
		n.calls.Add(1)
		http.Error(w, "bad gateway", status)
		return
	}

	body, _ := io.ReadAll(r.Body)
	req, err := jsonrpc.ParseRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, _ := n.answer(req).Bytes()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// serveWS upgrades the connection and answers every request on it
func (n *fakeNode) serveWS(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := jsonrpc.ParseRequest(data)
			if err != nil {
				return
			}
			out, _ := n.answer(req).Bytes()
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// silentPeer accepts WebSocket connections and then never reads or writes,
// like a node behind a dropped NAT mapping
type silentPeer struct {
	dials atomic.Int32
	stop  chan struct{}
}

func newSilentPeer(t *testing.T) (*silentPeer, *httptest.Server) {
	p := &silentPeer{stop: make(chan struct{})}
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		p.dials.Add(1)
		<-p.stop
	}))
	t.Cleanup(func() {
		close(p.stop)
		server.Close()
	})
	return p, server
}
