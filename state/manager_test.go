package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"takochain/core/types"
	"takochain/native/presale"
	"takochain/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestParticipantLazyZero(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	p, ok, err := m.ParticipantGet(testAddr(0x42))
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, p)
}

func TestParticipantPersistence(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x42)
	require.NoError(t, m.ParticipantPut(&presale.Participant{
		Address:     addr,
		Contributed: big.NewInt(7),
		Claimable:   big.NewInt(7000),
	}))
	p, ok, err := m.ParticipantGet(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr, p.Address)
	require.Zero(t, p.Contributed.Cmp(big.NewInt(7)))
	require.Zero(t, p.Claimable.Cmp(big.NewInt(7000)))

	// Draining the claimable balance must survive a round trip.
	p.Claimable = big.NewInt(0)
	require.NoError(t, m.ParticipantPut(p))
	p, ok, err = m.ParticipantGet(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, p.Claimable.Sign())
}

func TestTotalsDefaultAndPersist(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	totals, err := m.TotalsGet()
	require.NoError(t, err)
	require.Zero(t, totals.Raised.Sign())
	require.Zero(t, totals.TokensSold.Sign())

	require.NoError(t, m.TotalsPut(&presale.SaleTotals{
		Raised:     big.NewInt(12),
		TokensSold: big.NewInt(12000),
	}))
	totals, err = m.TotalsGet()
	require.NoError(t, err)
	require.Zero(t, totals.Raised.Cmp(big.NewInt(12)))
	require.Zero(t, totals.TokensSold.Cmp(big.NewInt(12000)))
}

func TestClaimGateStartsClosed(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	open, err := m.ClaimGateGet()
	require.NoError(t, err)
	require.False(t, open)

	require.NoError(t, m.ClaimGateSet(true))
	open, err = m.ClaimGateGet()
	require.NoError(t, err)
	require.True(t, open)
}

func TestAccountRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x11)

	acc, err := m.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, acc.BalanceBNB.Sign())
	require.Zero(t, acc.BalanceTAKO.Sign())

	acc.BalanceBNB = big.NewInt(20)
	acc.BalanceTAKO = big.NewInt(500)
	require.NoError(t, m.PutAccount(addr[:], acc))

	acc, err = m.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, acc.BalanceBNB.Cmp(big.NewInt(20)))
	require.Zero(t, acc.BalanceTAKO.Cmp(big.NewInt(500)))
}

func TestCreditVaultOnce(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	vault := VaultAddress(presale.SaleToken)

	seeded, err := m.CreditVault(presale.SaleToken, big.NewInt(100_000))
	require.NoError(t, err)
	require.True(t, seeded)

	acc, err := m.GetAccount(vault[:])
	require.NoError(t, err)
	require.Zero(t, acc.BalanceTAKO.Cmp(big.NewInt(100_000)))

	// Second boot must not reset the allocation.
	require.NoError(t, m.PutAccount(vault[:], &types.Account{
		BalanceBNB:  big.NewInt(0),
		BalanceTAKO: big.NewInt(250),
	}))
	seeded, err = m.CreditVault(presale.SaleToken, big.NewInt(100_000))
	require.NoError(t, err)
	require.False(t, seeded)
	acc, err = m.GetAccount(vault[:])
	require.NoError(t, err)
	require.Zero(t, acc.BalanceTAKO.Cmp(big.NewInt(250)))
}

func TestSeedAccountOnce(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x42)

	seeded, err := m.SeedAccount(addr, big.NewInt(15))
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = m.SeedAccount(addr, big.NewInt(99))
	require.NoError(t, err)
	require.False(t, seeded)

	acc, err := m.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, acc.BalanceBNB.Cmp(big.NewInt(15)))
}

func TestVaultAddressDeterministic(t *testing.T) {
	require.Equal(t, VaultAddress(presale.SaleToken), VaultAddress(presale.SaleToken))
	require.NotEqual(t, VaultAddress(presale.SaleToken), VaultAddress(presale.BaseToken))
	require.NotEqual(t, [20]byte{}, VaultAddress(presale.SaleToken))
}
