package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tolelom/rpschain/confirm"
	"github.com/tolelom/rpschain/core"
)

var _ confirm.Ledger = (*Client)(nil)

// Client calls a node's JSON-RPC endpoint. It implements confirm.Ledger.
type Client struct {
	url       string
	authToken string
	http      *http.Client
}

// NewClient creates a client for the endpoint at url. authToken may be
// empty.
func NewClient(url, authToken string) *Client {
	return &Client{
		url:       url,
		authToken: authToken,
		http:      &http.Client{Timeout: maxRoundWait + 15*time.Second},
	}
}

// call performs one request. A JSON-RPC error is returned as *Error.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%s params: %w", method, err)
	}
	body, err := json.Marshal(Request{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: raw})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return fmt.Errorf("%s: http %d: %s", method, httpResp.StatusCode, bytes.TrimSpace(msg))
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// Status returns the node's current round.
func (c *Client) Status(ctx context.Context) (*core.NodeStatus, error) {
	var st core.NodeStatus
	if err := c.call(ctx, MethodStatus, struct{}{}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StatusAfterRound blocks on the node until a round after round exists,
// or the node's wait cap passes.
func (c *Client) StatusAfterRound(ctx context.Context, round uint64) (*core.NodeStatus, error) {
	var st core.NodeStatus
	if err := c.call(ctx, MethodStatusAfterRound, map[string]uint64{"round": round}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// PendingTransaction reports where txID stands.
func (c *Client) PendingTransaction(ctx context.Context, txID string) (*core.PendingTxInfo, error) {
	var info core.PendingTxInfo
	if err := c.call(ctx, MethodPendingTransaction, map[string]string{"tx_id": txID}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SendGroup submits one atomic group.
func (c *Client) SendGroup(ctx context.Context, txs []*core.Transaction) (string, error) {
	var res SendGroupResult
	if err := c.call(ctx, MethodSendGroup, SendGroupParams{Txs: txs}, &res); err != nil {
		return "", err
	}
	return res.TxID, nil
}

// GetAccount returns an account; unknown addresses have zero balance.
func (c *Client) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	var acc core.Account
	if err := c.call(ctx, MethodGetAccount, map[string]string{"address": address}, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetApplication returns an application with its global state.
func (c *Client) GetApplication(ctx context.Context, id uint64) (*ApplicationView, error) {
	var view ApplicationView
	if err := c.call(ctx, MethodGetApplication, map[string]uint64{"id": id}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetBlock returns the block confirmed in round.
func (c *Client) GetBlock(ctx context.Context, round uint64) (*core.Block, error) {
	var b core.Block
	if err := c.call(ctx, MethodGetBlock, map[string]uint64{"round": round}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetGamesByPlayer returns the games player created or staked in.
func (c *Client) GetGamesByPlayer(ctx context.Context, player string) ([]uint64, error) {
	var ids []uint64
	if err := c.call(ctx, MethodGetGamesByPlayer, map[string]string{"player": player}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
