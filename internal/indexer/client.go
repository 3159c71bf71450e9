// Package indexer provides REST clients for the address-history and
// token-metadata indexers that sit next to the full node.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

const maxResponseSize = 16 << 20

// ErrTokenNotFound is returned when the token indexer does not know a token.
var ErrTokenNotFound = errors.New("token not found")

// Client queries the address-history indexer and, when configured, the
// token-metadata indexer.
type Client struct {
	Domain      string
	TokenDomain string
	http        *http.Client
}

// New creates a client. tokenDomain may be empty, which disables
// token metadata lookups.
func New(domain, tokenDomain string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		Domain:      strings.TrimRight(domain, "/"),
		TokenDomain: strings.TrimRight(tokenDomain, "/"),
		http:        &http.Client{Timeout: timeout},
	}
}

// HistoryAPIURL returns the history endpoint for an address.
func (c *Client) HistoryAPIURL(address string) string {
	return fmt.Sprintf("%s/electrumx/transactions/%s", c.Domain, url.PathEscape(address))
}

// TokenAPIURL returns the metadata endpoint for a token.
func (c *Client) TokenAPIURL(tokenID types.TokenID) string {
	return fmt.Sprintf("%s/slp/token/%s", c.TokenDomain, tokenID)
}

type historyResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	Transactions []types.HistoryEntry `json:"transactions"`
}

func (hr *historyResponse) IsOK() bool {
	return hr.Success
}

type tokenResponse struct {
	TokenData *struct {
		DocumentHash string `json:"documentHash"`
	} `json:"tokenData"`
}

// History returns the transaction history of address in the indexer's
// order: ascending by confirmation height, mempool entries last.
func (c *Client) History(ctx context.Context, address string) ([]types.HistoryEntry, error) {
	const op = "indexer history"

	var hr historyResponse
	status, err := c.getJSON(ctx, op, c.HistoryAPIURL(address), &hr)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !hr.IsOK() {
		msg := hr.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, fault.Transient(op, fmt.Errorf("error from %s: %s", c.Domain, msg))
	}
	if hr.Transactions == nil {
		return []types.HistoryEntry{}, nil
	}
	return hr.Transactions, nil
}

// TokenDocumentHash returns the document hash recorded in a token's
// genesis. It returns ErrTokenNotFound when the token is unknown, and ""
// when the token has no document hash.
func (c *Client) TokenDocumentHash(ctx context.Context, tokenID types.TokenID) (string, error) {
	const op = "token metadata"

	if c.TokenDomain == "" {
		return "", fault.Transient(op, errors.New("token indexer not configured"))
	}

	var tr tokenResponse
	status, err := c.getJSON(ctx, op, c.TokenAPIURL(tokenID), &tr)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusNotFound:
		return "", ErrTokenNotFound
	case status != http.StatusOK:
		return "", fault.Transient(op, fmt.Errorf("error from %s: %s", c.TokenDomain, http.StatusText(status)))
	case tr.TokenData == nil:
		return "", ErrTokenNotFound
	}
	return tr.TokenData.DocumentHash, nil
}

// getJSON performs a GET and decodes the body into out. A body that is
// not JSON is tolerated on non-200 statuses so the caller can report
// the status instead.
func (c *Client) getJSON(ctx context.Context, op, rawURL string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := fault.FromContext(ctx); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fault.Transient(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctxErr := fault.FromContext(ctx); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fault.Transient(op, fmt.Errorf("read response: %w", err))
	}

	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, nil
		}
		return 0, fault.Transient(op, fmt.Errorf("couldn't unmarshal %q: %w", truncate(body, 128), err))
	}
	return resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
