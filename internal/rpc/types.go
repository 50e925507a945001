package rpc

import "encoding/json"

// JSON-RPC 2.0 Request
type JsonRpcRequest struct {
	JsonRpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSON-RPC 2.0 Response
type JsonRpcResponse struct {
	JsonRpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RpcError   `json:"error,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

// RpcError carries a JSON-RPC error object.
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RpcError) Error() string { return e.Message }

// Standard JSON-RPC 2.0 error codes plus engine-specific ones.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeEngineError    = -32000
)

func errParse(msg string) *RpcError {
	return &RpcError{Code: CodeParseError, Message: "Parse error", Data: msg}
}

func errMethodNotFound(method string) *RpcError {
	return &RpcError{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func errInvalidParams(msg string) *RpcError {
	return &RpcError{Code: CodeInvalidParams, Message: "Invalid params", Data: msg}
}
