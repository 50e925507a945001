package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gbmlabs/gbmd/internal/core/auction"
	"github.com/gbmlabs/gbmd/internal/core/dispatch"
)

// Server handles HTTP JSON-RPC requests against the operation registry.
type Server struct {
	registry *dispatch.Registry
	timeout  time.Duration
	log      zerolog.Logger
}

// NewServer creates an RPC server over a populated registry.
func NewServer(registry *dispatch.Registry, timeout time.Duration, log zerolog.Logger) *Server {
	return &Server{
		registry: registry,
		timeout:  timeout,
		log:      log.With().Str("component", "rpc").Logger(),
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.timeout > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			s.log.Debug().Err(err).Msg("write deadline unsupported")
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeResponse(w, nil, nil, errParse("failed to read request body"))
		return
	}
	defer r.Body.Close()

	var req JsonRpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeResponse(w, nil, nil, errParse(err.Error()))
		return
	}
	if req.Method == "" {
		s.writeResponse(w, req.ID, nil, &RpcError{Code: CodeInvalidRequest, Message: "Invalid request", Data: "missing method"})
		return
	}

	handler := s.registry.Get(req.Method)
	if handler == nil {
		s.writeResponse(w, req.ID, nil, errMethodNotFound(req.Method))
		return
	}

	caller, rpcErr := extractCaller(req.Params)
	if rpcErr != nil {
		s.writeResponse(w, req.ID, nil, rpcErr)
		return
	}

	start := time.Now()
	result, execErr := handler.Execute(caller, req.Params)
	s.log.Debug().
		Str("method", req.Method).
		Dur("elapsed", time.Since(start)).
		Err(execErr).
		Msg("rpc call")

	if execErr != nil {
		s.writeResponse(w, req.ID, nil, toRpcError(execErr))
		return
	}
	s.writeResponse(w, req.ID, result, nil)
}

// extractCaller pulls the caller address out of the params object. Every
// operation requires one; identity is asserted by the transport layer in
// front of this server.
func extractCaller(params json.RawMessage) (string, *RpcError) {
	if len(params) == 0 {
		return "", errInvalidParams("missing params")
	}
	var p struct {
		Caller string `json:"caller"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return "", errInvalidParams(err.Error())
	}
	if p.Caller == "" {
		return "", errInvalidParams("missing caller")
	}
	return p.Caller, nil
}

// toRpcError maps engine results onto JSON-RPC errors, keeping the result
// code visible to clients.
func toRpcError(err error) *RpcError {
	var opErr *auction.OpError
	if errors.As(err, &opErr) {
		return &RpcError{
			Code:    CodeEngineError - int(opErr.Code),
			Message: opErr.Code.Message(),
		}
	}
	return &RpcError{Code: CodeInternalError, Message: "Internal error", Data: err.Error()}
}

func (s *Server) writeResponse(w http.ResponseWriter, id interface{}, result interface{}, rpcErr *RpcError) {
	resp := JsonRpcResponse{
		JsonRpc: "2.0",
		Result:  result,
		Error:   rpcErr,
		ID:      id,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("failed to write rpc response")
	}
}
