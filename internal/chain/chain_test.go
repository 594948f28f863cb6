package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNetwork struct{ id ID }

func (s stubNetwork) ID() ID { return s.id }
func (s stubNetwork) Family() hdwallet.Family { return hdwallet.FamilyEVM }
func (s stubNetwork) ValidateAddress(string) error { return nil }
func (s stubNetwork) PollStatus(context.Context, string) (*TransactionResult, error) {
	return &TransactionResult{Status: TxStatusPending}, nil
}
func (s stubNetwork) Balance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s stubNetwork) EstimateNetworkFee(context.Context, *WithdrawalRequest) (*NetworkFee, error) {
	return &NetworkFee{}, nil
}
func (s stubNetwork) Send(context.Context, *WithdrawalRequest, []byte) (*TransactionResult, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(stubNetwork{id: Polygon})
	r.Register(stubNetwork{id: Ethereum})

	n, err := r.Get(Ethereum)
	require.NoError(t, err)
	assert.Equal(t, Ethereum, n.ID())

	_, err = r.Get("dogecoin")
	assert.True(t, errors.Is(err, errno.ErrUnsupportedChain))

	assert.Equal(t, []ID{Ethereum, Polygon}, r.List())
}

func TestCatalog(t *testing.T) {
	info, ok := Lookup(Hyperliquid)
	require.True(t, ok)
	assert.True(t, info.Gasless)
	assert.True(t, info.SupportsToken("usdc"))
	assert.False(t, info.SupportsToken("ETH"))

	poly, _ := Lookup(Polygon)
	assert.Equal(t, hdwallet.FamilyEVM, poly.Family)
	assert.Equal(t, "POL", poly.NativeSymbol)

	sol, _ := Lookup(Solana)
	assert.Equal(t, hdwallet.FamilySolana, sol.Family)

	_, ok = Lookup("dogecoin")
	assert.False(t, ok)
	assert.Len(t, Names(), 7)
}

func TestUnits(t *testing.T) {
	wei := ToBaseUnits(decimal.RequireFromString("1.5"), 18)
	assert.Equal(t, "1500000000000000000", wei.String())

	lamports := ToBaseUnits(decimal.RequireFromString("0.0000000019"), 9)
	assert.Equal(t, "1", lamports.String())

	back := FromBaseUnits(big.NewInt(2500000), 6)
	assert.True(t, back.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, FromBaseUnits(nil, 9).IsZero())

	assert.True(t, TxStatusFailed.Terminal())
	assert.False(t, TxStatusPending.Terminal())
}

func TestFitsDecimals(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int32
		want     bool
	}{
		{"1", 18, true},
		{"1.5000", 6, true},
		{"0.000000000000000001", 18, true},
		{"0.0000000000000000001", 18, false},
		{"1.0000000000000000009", 18, false},
		{"0.0000000019", 9, false},
		{"2.000001", 6, true},
		{"2.0000001", 6, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FitsDecimals(decimal.RequireFromString(tt.amount), tt.decimals), tt.amount)
	}
}
