package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"takochain/native/presale"
	"takochain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxTxPerWindow  = 30
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

const authTokenEnv = "TAKO_RPC_TOKEN"

type rateLimiter struct {
	count       int
	windowStart time.Time
}

// Server exposes the presale ledger over JSON-RPC 2.0. Mutating calls are
// serialized by a single mutex so the engine observes one state transition at
// a time.
type Server struct {
	engine *presale.Engine
	logger *slog.Logger

	mu           sync.Mutex
	stateMu      sync.Mutex
	rateLimiters map[string]*rateLimiter
	authToken    string
}

// NewServer builds a server around the supplied engine. The auth token for
// mutating methods is read from TAKO_RPC_TOKEN; when unset, mutating methods
// are open (development mode).
func NewServer(engine *presale.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:       engine,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    strings.TrimSpace(os.Getenv(authTokenEnv)),
	}
}

// Start blocks serving HTTP on the supplied address.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// Handler returns the HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing authorization header"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token != s.authToken {
		return &RPCError{Code: codeUnauthorized, Message: "invalid authorization token"}
	}
	return nil
}

func (s *Server) throttle(r *http.Request) *RPCError {
	source, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		source = r.RemoteAddr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	limiter, ok := s.rateLimiters[source]
	if !ok || now.Sub(limiter.windowStart) > rateLimitWindow {
		s.rateLimiters[source] = &rateLimiter{count: 1, windowStart: now}
		return nil
	}
	limiter.count++
	if limiter.count > maxTxPerWindow {
		return &RPCError{Code: codeRateLimited, Message: "rate limit exceeded"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}

	started := time.Now()
	rpcErr := s.dispatch(w, r, &req)
	outcome := "ok"
	if rpcErr != nil {
		outcome = "error"
	}
	observability.Presale().RecordRequest(req.Method, outcome, time.Since(started).Seconds())
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) *RPCError {
	switch req.Method {
	case "presale_purchase":
		return s.handlePurchase(w, r, req)
	case "presale_claim":
		return s.handleClaim(w, r, req)
	case "presale_getClaimable":
		return s.handleGetClaimable(w, req)
	case "presale_getContributed":
		return s.handleGetContributed(w, req)
	case "presale_isOpen":
		return s.handleIsOpen(w, req)
	case "presale_tokensClaimable":
		return s.handleTokensClaimable(w, req)
	case "presale_enableTokenRetrieval":
		return s.handleEnableTokenRetrieval(w, r, req)
	case "presale_sweepTokens":
		return s.handleSweepTokens(w, r, req)
	case "presale_sweepFunds":
		return s.handleSweepFunds(w, r, req)
	default:
		err := &RPCError{Code: codeMethodNotFound, Message: "method not found"}
		writeError(w, http.StatusNotFound, req.ID, err.Code, err.Message, nil)
		return err
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return errors.New("params required")
	}
	if len(req.Params) != 1 {
		return errors.New("expected a single params object")
	}
	return json.Unmarshal(req.Params[0], out)
}
