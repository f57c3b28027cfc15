package presale

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"takochain/core/events"
	"takochain/core/types"
)

var (
	errNilState  = errors.New("presale engine: state not configured")
	errNilConfig = errors.New("presale engine: sale config not set")
	errNilVault  = errors.New("presale engine: vault not configured")
	errNilOwner  = errors.New("presale engine: owner not configured")
)

type engineState interface {
	ParticipantGet(addr [20]byte) (*Participant, bool, error)
	ParticipantPut(*Participant) error
	TotalsGet() (*SaleTotals, error)
	TotalsPut(*SaleTotals) error
	ClaimGateGet() (bool, error)
	ClaimGateSet(bool) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type presaleEvent struct {
	evt *types.Event
}

func (e presaleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e presaleEvent) Event() *types.Event { return e.evt }

// Engine wires the presale bookkeeping logic with external state and event
// emitters. Callers are expected to serialize mutating operations; the engine
// itself holds no locks.
type Engine struct {
	state   engineState
	emitter events.Emitter
	config  *SaleConfig
	owner   [20]byte
	vault   [20]byte
	nowFn   func() int64
}

// NewEngine creates a presale engine for the supplied sale parameters with a
// no-op emitter. Callers can override the emitter via SetEmitter.
func NewEngine(cfg *SaleConfig) (*Engine, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	normalized := cfg.Clone().Normalize()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:  normalized,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOwner configures the administrator address authorised for the claim gate
// and sweep operations.
func (e *Engine) SetOwner(addr [20]byte) { e.owner = addr }

// SetVault configures the module address holding raised funds and the unsold
// token allocation.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Config returns a copy of the sale parameters the engine was built with.
func (e *Engine) Config() *SaleConfig {
	if e == nil {
		return nil
	}
	return e.config.Clone()
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(presaleEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.config == nil {
		return errNilConfig
	}
	if e.vault == ([20]byte{}) {
		return errNilVault
	}
	return nil
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if e.owner == ([20]byte{}) {
		return errNilOwner
	}
	if caller != e.owner {
		return ErrNotAuthorized
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadParticipant(addr [20]byte) (*Participant, error) {
	p, ok, err := e.state.ParticipantGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || p == nil {
		return &Participant{Address: addr, Contributed: big.NewInt(0), Claimable: big.NewInt(0)}, nil
	}
	return p.Clone(), nil
}

func (e *Engine) loadTotals() (*SaleTotals, error) {
	totals, err := e.state.TotalsGet()
	if err != nil {
		return nil, err
	}
	if totals == nil {
		return &SaleTotals{Raised: big.NewInt(0), TokensSold: big.NewInt(0)}, nil
	}
	return totals.Clone(), nil
}

func (e *Engine) transferToken(from, to [20]byte, token string, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("presale: negative transfer amount")
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Clone()
	toAcc = toAcc.Clone()
	switch normalized {
	case BaseToken:
		if fromAcc.BalanceBNB.Cmp(amt) < 0 {
			return fmt.Errorf("presale: insufficient %s balance", normalized)
		}
		fromAcc.BalanceBNB = new(big.Int).Sub(fromAcc.BalanceBNB, amt)
		toAcc.BalanceBNB = new(big.Int).Add(toAcc.BalanceBNB, amt)
	case SaleToken:
		if fromAcc.BalanceTAKO.Cmp(amt) < 0 {
			return fmt.Errorf("presale: insufficient %s balance", normalized)
		}
		fromAcc.BalanceTAKO = new(big.Int).Sub(fromAcc.BalanceTAKO, amt)
		toAcc.BalanceTAKO = new(big.Int).Add(toAcc.BalanceTAKO, amt)
	}
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(to[:], toAcc); err != nil {
		return err
	}
	return nil
}

// IsOpen reports whether the supplied timestamp falls inside the sale window.
// The window is a closed interval on both ends.
func (e *Engine) IsOpen(now int64) bool {
	if e == nil || e.config == nil {
		return false
	}
	return now >= e.config.StartTime && now <= e.config.EndTime
}

// IsOpenNow reports whether the sale window is open at the engine's current
// clock reading.
func (e *Engine) IsOpenNow() bool { return e.IsOpen(e.now()) }

// Now exposes the engine's clock reading, letting callers report window
// decisions against the same time source the guards use.
func (e *Engine) Now() int64 { return e.now() }

// TokensClaimable reports the state of the global claim gate.
func (e *Engine) TokensClaimable() (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.ClaimGateGet()
}

// Claimable returns the outstanding claimable token balance for the supplied
// address. Unknown participants report zero.
func (e *Engine) Claimable(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, err := e.loadParticipant(addr)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(p.Claimable), nil
}

// Contributed returns the cumulative base currency contributed by the supplied
// address. Unknown participants report zero.
func (e *Engine) Contributed(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, err := e.loadParticipant(addr)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(p.Contributed), nil
}

// Totals returns the aggregate raised and sold counters.
func (e *Engine) Totals() (*SaleTotals, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadTotals()
}

// Purchase contributes amount of base currency on behalf of the caller and
// records the exchange-rate-derived token entitlement. The guards run in a
// fixed order and the first failure aborts the call with no state change:
// zero address, sale window, aggregate cap, per-participant range. The range
// check applies to the updated cumulative contribution, so a participant may
// cross the minimum over several calls but never ends an accepted call
// outside [MinContribution, MaxContribution].
func (e *Engine) Purchase(caller [20]byte, amount *big.Int) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if caller == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	amt := cloneBigInt(amount)
	if !e.IsOpen(e.now()) {
		return nil, ErrSaleClosed
	}
	totals, err := e.loadTotals()
	if err != nil {
		return nil, err
	}
	tokens := new(big.Int).Mul(amt, e.config.Rate)
	sold := new(big.Int).Add(totals.TokensSold, tokens)
	if sold.Cmp(e.config.Cap) > 0 {
		return nil, ErrCapExceeded
	}
	participant, err := e.loadParticipant(caller)
	if err != nil {
		return nil, err
	}
	contributed := new(big.Int).Add(participant.Contributed, amt)
	if contributed.Cmp(e.config.MinContribution) < 0 || contributed.Cmp(e.config.MaxContribution) > 0 {
		return nil, ErrContributionOutOfRange
	}
	prev := participant.Clone()
	// Funds settle first; if the ledger writes below fail the contribution is
	// returned so the caller never pays for an unrecorded purchase.
	if err := e.transferToken(caller, e.vault, BaseToken, amt); err != nil {
		return nil, err
	}
	participant.Contributed = contributed
	participant.Claimable = new(big.Int).Add(participant.Claimable, tokens)
	if err := e.state.ParticipantPut(participant); err != nil {
		_ = e.transferToken(e.vault, caller, BaseToken, amt)
		return nil, err
	}
	totals.Raised = new(big.Int).Add(totals.Raised, amt)
	totals.TokensSold = sold
	if err := e.state.TotalsPut(totals); err != nil {
		_ = e.state.ParticipantPut(prev)
		_ = e.transferToken(e.vault, caller, BaseToken, amt)
		return nil, err
	}
	e.emit(NewPurchasedEvent(caller, amt, tokens))
	return &Receipt{Buyer: caller, Amount: amt, Tokens: tokens}, nil
}

// Claim withdraws the caller's entire claimable token balance. The claimable
// balance is zeroed and persisted before the token transfer is attempted so a
// reentrant call can never observe a stale positive balance; if the transfer
// fails the zeroing is rolled back and ErrTransferFailed surfaces.
func (e *Engine) Claim(caller [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if caller == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	open, err := e.state.ClaimGateGet()
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrClaimNotOpen
	}
	participant, err := e.loadParticipant(caller)
	if err != nil {
		return nil, err
	}
	tokens := cloneBigInt(participant.Claimable)
	if tokens.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	participant.Claimable = big.NewInt(0)
	if err := e.state.ParticipantPut(participant); err != nil {
		return nil, err
	}
	if err := e.transferToken(e.vault, caller, e.config.Token, tokens); err != nil {
		participant.Claimable = tokens
		if restoreErr := e.state.ParticipantPut(participant); restoreErr != nil {
			return nil, fmt.Errorf("%w: %v (restore failed: %v)", ErrTransferFailed, err, restoreErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.emit(NewClaimedEvent(caller, tokens))
	return tokens, nil
}

// EnableTokenRetrieval opens the global claim gate. The operation is owner
// only and idempotent: repeated calls succeed without emitting further events.
func (e *Engine) EnableTokenRetrieval(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	open, err := e.state.ClaimGateGet()
	if err != nil {
		return err
	}
	if open {
		return nil
	}
	if err := e.state.ClaimGateSet(true); err != nil {
		return err
	}
	e.emit(NewClaimsEnabledEvent(caller))
	return nil
}

// SweepRemainingTokens transfers the vault's entire sale token balance to the
// owner and returns the amount moved. No sale-ended check is enforced: the
// owner is trusted to decide when cleanup is appropriate.
func (e *Engine) SweepRemainingTokens(caller [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	vaultAcc, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	balance := cloneBigInt(vaultAcc.Clone().BalanceTAKO)
	if balance.Sign() > 0 {
		if err := e.transferToken(e.vault, e.owner, e.config.Token, balance); err != nil {
			return nil, err
		}
	}
	e.emit(NewTokensSweptEvent(caller, balance))
	return balance, nil
}

// SweepRaisedFunds transfers the vault's entire base currency balance to the
// owner and returns the amount moved. Same trust model as
// SweepRemainingTokens.
func (e *Engine) SweepRaisedFunds(caller [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	vaultAcc, err := e.state.GetAccount(e.vault[:])
	if err != nil {
		return nil, err
	}
	balance := cloneBigInt(vaultAcc.Clone().BalanceBNB)
	if balance.Sign() > 0 {
		if err := e.transferToken(e.vault, e.owner, BaseToken, balance); err != nil {
			return nil, err
		}
	}
	e.emit(NewFundsSweptEvent(caller, balance))
	return balance, nil
}
