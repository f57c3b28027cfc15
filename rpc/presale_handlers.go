package rpc

import (
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"takochain/native/presale"
	"takochain/observability"
)

const (
	codePresaleInvalidParams = -32021
	codePresaleForbidden     = -32022
	codePresaleConflict      = -32023
	codePresaleInternal      = -32024
)

type purchaseParams struct {
	Buyer  string `json:"buyer"`
	Amount string `json:"amount"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type addressParams struct {
	Address string `json:"address"`
}

type purchaseResult struct {
	Buyer  string `json:"buyer"`
	Amount string `json:"amount"`
	Tokens string `json:"tokens"`
}

type claimResult struct {
	Caller string `json:"caller"`
	Tokens string `json:"tokens"`
}

type amountResult struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type isOpenResult struct {
	Open  bool  `json:"open"`
	Now   int64 `json:"now"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type tokensClaimableResult struct {
	Claimable bool `json:"claimable"`
}

type enableResult struct {
	Enabled bool `json:"enabled"`
}

type sweepResult struct {
	Amount string `json:"amount"`
}

func parseAddressParam(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != len(addr) {
		return addr, errors.New("address must be 20 hex-encoded bytes")
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmountParam(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("amount must be a decimal string")
	}
	return v, nil
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// presaleError maps engine failures onto JSON-RPC error codes in the same
// bands the other modules use: invalid params, forbidden, conflict, internal.
func presaleError(err error) *RPCError {
	switch {
	case errors.Is(err, presale.ErrZeroAddress), errors.Is(err, presale.ErrInvalidAmount):
		return &RPCError{Code: codePresaleInvalidParams, Message: err.Error()}
	case errors.Is(err, presale.ErrNotAuthorized):
		return &RPCError{Code: codePresaleForbidden, Message: err.Error()}
	case errors.Is(err, presale.ErrSaleClosed),
		errors.Is(err, presale.ErrCapExceeded),
		errors.Is(err, presale.ErrContributionOutOfRange),
		errors.Is(err, presale.ErrClaimNotOpen),
		errors.Is(err, presale.ErrNothingToClaim),
		errors.Is(err, presale.ErrTransferFailed):
		return &RPCError{Code: codePresaleConflict, Message: err.Error()}
	default:
		return &RPCError{Code: codePresaleInternal, Message: err.Error()}
	}
}

func (s *Server) writePresaleError(w http.ResponseWriter, req *RPCRequest, rpcErr *RPCError) *RPCError {
	status := http.StatusBadRequest
	switch rpcErr.Code {
	case codePresaleForbidden, codeUnauthorized:
		status = http.StatusForbidden
	case codePresaleConflict:
		status = http.StatusConflict
	case codePresaleInternal, codeServerError:
		status = http.StatusInternalServerError
	case codeRateLimited:
		status = http.StatusTooManyRequests
	}
	observability.Presale().RecordError(req.Method, strconv.Itoa(rpcErr.Code))
	writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	return rpcErr
}

func (s *Server) guardMutation(w http.ResponseWriter, r *http.Request, req *RPCRequest, throttled bool) *RPCError {
	if authErr := s.requireAuth(r); authErr != nil {
		return s.writePresaleError(w, req, authErr)
	}
	if throttled {
		if limitErr := s.throttle(r); limitErr != nil {
			return s.writePresaleError(w, req, limitErr)
		}
	}
	return nil
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, req *RPCRequest) *RPCError {
	if rpcErr := s.guardMutation(w, r, req, true); rpcErr != nil {
		return rpcErr
	}
	var params purchaseParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	buyer, err := parseAddressParam(params.Buyer)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "buyer: " + err.Error()})
	}
	amount, err := parseAmountParam(params.Amount)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "amount: " + err.Error()})
	}
	s.stateMu.Lock()
	receipt, err := s.engine.Purchase(buyer, amount)
	s.stateMu.Unlock()
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, purchaseResult{
		Buyer:  params.Buyer,
		Amount: formatAmount(receipt.Amount),
		Tokens: formatAmount(receipt.Tokens),
	})
	return nil
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) *RPCError {
	if rpcErr := s.guardMutation(w, r, req, true); rpcErr != nil {
		return rpcErr
	}
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "caller: " + err.Error()})
	}
	s.stateMu.Lock()
	tokens, err := s.engine.Claim(caller)
	s.stateMu.Unlock()
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, claimResult{Caller: params.Caller, Tokens: formatAmount(tokens)})
	return nil
}

func (s *Server) handleGetClaimable(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "address: " + err.Error()})
	}
	amount, err := s.engine.Claimable(addr)
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, amountResult{Address: params.Address, Amount: formatAmount(amount)})
	return nil
}

func (s *Server) handleGetContributed(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "address: " + err.Error()})
	}
	amount, err := s.engine.Contributed(addr)
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, amountResult{Address: params.Address, Amount: formatAmount(amount)})
	return nil
}

func (s *Server) handleIsOpen(w http.ResponseWriter, req *RPCRequest) *RPCError {
	cfg := s.engine.Config()
	now := s.engine.Now()
	writeResult(w, req.ID, isOpenResult{
		Open:  s.engine.IsOpen(now),
		Now:   now,
		Start: cfg.StartTime,
		End:   cfg.EndTime,
	})
	return nil
}

func (s *Server) handleTokensClaimable(w http.ResponseWriter, req *RPCRequest) *RPCError {
	open, err := s.engine.TokensClaimable()
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, tokensClaimableResult{Claimable: open})
	return nil
}

func (s *Server) handleEnableTokenRetrieval(w http.ResponseWriter, r *http.Request, req *RPCRequest) *RPCError {
	if rpcErr := s.guardMutation(w, r, req, false); rpcErr != nil {
		return rpcErr
	}
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "caller: " + err.Error()})
	}
	s.stateMu.Lock()
	err = s.engine.EnableTokenRetrieval(caller)
	s.stateMu.Unlock()
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, enableResult{Enabled: true})
	return nil
}

func (s *Server) handleSweepTokens(w http.ResponseWriter, r *http.Request, req *RPCRequest) *RPCError {
	if rpcErr := s.guardMutation(w, r, req, false); rpcErr != nil {
		return rpcErr
	}
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "caller: " + err.Error()})
	}
	s.stateMu.Lock()
	amount, err := s.engine.SweepRemainingTokens(caller)
	s.stateMu.Unlock()
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, sweepResult{Amount: formatAmount(amount)})
	return nil
}

func (s *Server) handleSweepFunds(w http.ResponseWriter, r *http.Request, req *RPCRequest) *RPCError {
	if rpcErr := s.guardMutation(w, r, req, false); rpcErr != nil {
		return rpcErr
	}
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		return s.writePresaleError(w, req, &RPCError{Code: codePresaleInvalidParams, Message: "caller: " + err.Error()})
	}
	s.stateMu.Lock()
	amount, err := s.engine.SweepRaisedFunds(caller)
	s.stateMu.Unlock()
	if err != nil {
		return s.writePresaleError(w, req, presaleError(err))
	}
	writeResult(w, req.ID, sweepResult{Amount: formatAmount(amount)})
	return nil
}
