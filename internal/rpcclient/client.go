// Package rpcclient provides a JSON-RPC 1.0 client for Bitcoin Cash full nodes.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// maxResponseSize bounds a single node response. Verbose transactions
// are large but never approach this.
const maxResponseSize = 32 << 20

// Client is a JSON-RPC 1.0 HTTP client speaking the bitcoind dialect.
type Client struct {
	endpoint string
	user     string
	password string
	http     *http.Client
	nextID   atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets the RPC user and password.
func WithBasicAuth(user, password string) Option {
	return func(c *Client) {
		c.user = user
		c.password = password
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	return NewWithTimeout(endpoint, 10*time.Second, opts...)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is a JSON-RPC 1.0 request.
type request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// response is a JSON-RPC 1.0 response. bitcoind always sets both
// result and error, one of them null.
type response struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     uint64          `json:"id"`
}

// rpcError is a JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the node responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Node error codes.
const (
	ErrCodeInvalidParameter    = -8
	ErrCodeInvalidAddressOrKey = -5 // also "No such mempool or blockchain transaction"
	ErrCodeMethodNotFound      = -32601
)

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
//
// A cancelled or expired ctx yields fault.ErrTimeout. Every other
// failure, including errors reported by the node, is a
// fault.TransientError naming the method.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	req := request{
		JSONRPC: "1.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.password != "" {
		httpReq.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := fault.FromContext(ctx); ctxErr != nil {
			return ctxErr
		}
		return fault.Transient(method, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fault.Transient(method, fmt.Errorf("node rejected credentials: %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctxErr := fault.FromContext(ctx); ctxErr != nil {
			return ctxErr
		}
		return fault.Transient(method, fmt.Errorf("read response: %w", err))
	}

	// bitcoind reports RPC errors with a 404 or 500 status but still
	// sends a JSON body, so decode before looking at the status.
	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fault.Transient(method, fmt.Errorf("unexpected status: %s", resp.Status))
		}
		return fault.Transient(method, fmt.Errorf("decode response: %w", err))
	}

	if rpcResp.Error != nil {
		return fault.Transient(method, &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		})
	}
	if resp.StatusCode != http.StatusOK {
		return fault.Transient(method, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	if result != nil && len(rpcResp.Result) > 0 && string(rpcResp.Result) != "null" {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fault.Transient(method, fmt.Errorf("decode result: %w", err))
		}
	}

	return nil
}

// RawTransaction fetches the verbose form of a transaction.
func (c *Client) RawTransaction(ctx context.Context, txid string) (*types.Transaction, error) {
	id, err := types.ParseTxID(txid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrInvalidTxID, err)
	}

	var tx types.Transaction
	if err := c.Call(ctx, "getrawtransaction", []interface{}{id, true}, &tx); err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		return nil, fault.Transient("getrawtransaction", errors.New("node returned an empty transaction"))
	}
	return &tx, nil
}

// BlockCount returns the node's current block height. Used as a
// liveness probe.
func (c *Client) BlockCount(ctx context.Context) (int64, error) {
	var height int64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// IsRPCError reports whether err carries an error returned by the node
// itself rather than a transport failure, and returns it.
func IsRPCError(err error) (*RPCError, bool) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}
