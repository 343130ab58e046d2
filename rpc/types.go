// Package rpc exposes the ledger's submission and query API over a
// JSON-RPC 2.0 HTTP endpoint, and provides the matching client.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/rpschain/core"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
	CodeNotFound       = -32001
	CodeRejected       = -32002 // the pool refused a submitted group
)

// Method names.
const (
	MethodStatus             = "status"
	MethodStatusAfterRound   = "statusAfterRound"
	MethodSendGroup          = "sendGroup"
	MethodPendingTransaction = "pendingTransaction"
	MethodGetAccount         = "getAccount"
	MethodGetApplication     = "getApplication"
	MethodGetBlock           = "getBlock"
	MethodGetGamesByPlayer   = "getGamesByPlayer"
)

// SendGroupParams carries one atomic group; a standalone transaction is a
// group of one.
type SendGroupParams struct {
	Txs []*core.Transaction `json:"txs"`
}

// SendGroupResult returns the id of the group's first member, which is the
// id clients wait on.
type SendGroupResult struct {
	TxID string `json:"tx_id"`
}

// ApplicationView is an application together with its global state as
// key/value pairs.
type ApplicationView struct {
	*core.Application
	GlobalState []core.KeyValue `json:"global_state"`
}

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
