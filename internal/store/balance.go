package store

import (
	"context"
	"sync"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Balance 单条链的原生资产余额，Error 非空表示该链查询失败
type Balance struct {
	Chain    chain.ID        `json:"chain"`
	Address  string          `json:"address"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Error    string          `json:"error,omitempty"`
}

// Balances 并发查询所有已注册链的余额，单条链故障不影响整体结果
func (s *Store) Balances(ctx context.Context, userID string) ([]Balance, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := s.registry.List()
	out := make([]Balance, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id chain.ID) {
			defer wg.Done()

			b := Balance{Chain: id}
			if info, ok := chain.Lookup(id); ok {
				b.Currency = info.NativeSymbol
			}
			network, err := s.registry.Get(id)
			if err != nil {
				b.Error = err.Error()
				out[i] = b
				return
			}

			b.Address = wallet.AddressFor(network.Family())
			amount, err := network.Balance(ctx, b.Address)
			if err != nil {
				logger.Warn("查询余额失败", zap.String("chain", string(id)), zap.Error(err))
				b.Error = err.Error()
			} else {
				b.Amount = amount
			}
			out[i] = b
		}(i, id)
	}
	wg.Wait()

	return out, nil
}
