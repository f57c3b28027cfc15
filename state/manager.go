package state

import (
	"encoding/hex"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"takochain/core/types"
	"takochain/native/presale"
	"takochain/storage"
)

var (
	participantPrefix = []byte("presale/participant/")
	totalsKey         = []byte("presale/totals")
	gateKey           = []byte("presale/gate")
	accountPrefix     = []byte("account/")
)

// storedParticipant is the RLP persistence form of a participant record.
type storedParticipant struct {
	Address     [20]byte
	Contributed *big.Int
	Claimable   *big.Int
}

type storedTotals struct {
	Raised     *big.Int
	TokensSold *big.Int
}

type storedAccount struct {
	Nonce       uint64
	BalanceBNB  *big.Int
	BalanceTAKO *big.Int
}

// Manager persists presale ledger state in a key-value database. It satisfies
// the presale engine's state interface; absent records decode as zero values
// so participants exist lazily.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func participantKey(addr [20]byte) []byte {
	return append(append([]byte(nil), participantPrefix...), []byte(hex.EncodeToString(addr[:]))...)
}

func accountKey(addr []byte) []byte {
	return append(append([]byte(nil), accountPrefix...), []byte(hex.EncodeToString(addr))...)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// ParticipantGet loads the record for the supplied address. The boolean result
// reports whether the participant has ever been persisted.
func (m *Manager) ParticipantGet(addr [20]byte) (*presale.Participant, bool, error) {
	var stored storedParticipant
	ok, err := m.get(participantKey(addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &presale.Participant{
		Address:     stored.Address,
		Contributed: nonNil(stored.Contributed),
		Claimable:   nonNil(stored.Claimable),
	}, true, nil
}

// ParticipantPut persists the supplied record.
func (m *Manager) ParticipantPut(p *presale.Participant) error {
	if p == nil {
		return fmt.Errorf("state: nil participant")
	}
	stored := storedParticipant{
		Address:     p.Address,
		Contributed: nonNil(p.Contributed),
		Claimable:   nonNil(p.Claimable),
	}
	return m.put(participantKey(p.Address), &stored)
}

// TotalsGet loads the aggregate counters, returning zeroes before the first
// accepted purchase.
func (m *Manager) TotalsGet() (*presale.SaleTotals, error) {
	var stored storedTotals
	ok, err := m.get(totalsKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &presale.SaleTotals{Raised: big.NewInt(0), TokensSold: big.NewInt(0)}, nil
	}
	return &presale.SaleTotals{
		Raised:     nonNil(stored.Raised),
		TokensSold: nonNil(stored.TokensSold),
	}, nil
}

// TotalsPut persists the aggregate counters.
func (m *Manager) TotalsPut(t *presale.SaleTotals) error {
	if t == nil {
		return fmt.Errorf("state: nil totals")
	}
	stored := storedTotals{Raised: nonNil(t.Raised), TokensSold: nonNil(t.TokensSold)}
	return m.put(totalsKey, &stored)
}

// ClaimGateGet reports the persisted claim gate state; the gate starts closed.
func (m *Manager) ClaimGateGet() (bool, error) {
	var open bool
	ok, err := m.get(gateKey, &open)
	if err != nil || !ok {
		return false, err
	}
	return open, nil
}

// ClaimGateSet persists the claim gate state.
func (m *Manager) ClaimGateSet(open bool) error {
	return m.put(gateKey, open)
}

// GetAccount loads the balances for an address, returning a zero-balance
// account when the address has never been seen.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.get(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{BalanceBNB: big.NewInt(0), BalanceTAKO: big.NewInt(0)}, nil
	}
	return &types.Account{
		Nonce:       stored.Nonce,
		BalanceBNB:  nonNil(stored.BalanceBNB),
		BalanceTAKO: nonNil(stored.BalanceTAKO),
	}, nil
}

// PutAccount persists the balances for an address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	stored := storedAccount{
		Nonce:       account.Nonce,
		BalanceBNB:  nonNil(account.BalanceBNB),
		BalanceTAKO: nonNil(account.BalanceTAKO),
	}
	return m.put(accountKey(addr), &stored)
}

// VaultAddress derives the deterministic module address that custodies the
// sale token allocation and the raised funds.
func VaultAddress(token string) [20]byte {
	digest := ethcrypto.Keccak256([]byte("takochain/presale/vault/"), []byte(token))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

// SeedAccount funds an address with an opening base-currency balance. Used by
// genesis application at first boot; existing accounts are left untouched.
func (m *Manager) SeedAccount(addr [20]byte, balance *big.Int) (bool, error) {
	ok, err := m.db.Has(accountKey(addr[:]))
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	acc := &types.Account{BalanceBNB: nonNil(balance), BalanceTAKO: big.NewInt(0)}
	if err := m.PutAccount(addr[:], acc); err != nil {
		return false, err
	}
	return true, nil
}

// CreditVault seeds the vault with the sale token allocation. It is invoked
// once at first boot so claims can settle; subsequent boots are no-ops because
// the vault account already exists.
func (m *Manager) CreditVault(token string, allocation *big.Int) (bool, error) {
	vault := VaultAddress(token)
	ok, err := m.db.Has(accountKey(vault[:]))
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	acc := &types.Account{BalanceBNB: big.NewInt(0), BalanceTAKO: nonNil(allocation)}
	if err := m.PutAccount(vault[:], acc); err != nil {
		return false, err
	}
	return true, nil
}
