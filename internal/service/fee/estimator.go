package fee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/monitor"

	"github.com/shopspring/decimal"
)

// PlatformFee 平台按路线收取的固定费用，与网络费分开展示
type PlatformFee struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
}

type Estimator struct {
	registry     *chain.Registry
	platformFees map[chain.ID]PlatformFee
}

func NewEstimator(registry *chain.Registry, platformFees map[chain.ID]PlatformFee) *Estimator {
	if platformFees == nil {
		platformFees = make(map[chain.ID]PlatformFee)
	}
	return &Estimator{registry: registry, platformFees: platformFees}
}

// Validate 在任何网络调用之前检查链、代币、金额与收款地址
func (e *Estimator) Validate(req *chain.WithdrawalRequest) (chain.Network, chain.Info, error) {
	network, err := e.registry.Get(req.Chain)
	if err != nil {
		return nil, chain.Info{}, err
	}
	info, _ := chain.Lookup(req.Chain)
	if !info.SupportsToken(req.Token) {
		return nil, info, errno.ErrUnsupportedToken
	}
	if !req.Amount.IsPositive() {
		return nil, info, errno.ErrInvalidAmount
	}
	// 超出链精度的金额会在构造交易时被截断，直接拒绝
	if !chain.FitsDecimals(req.Amount, info.Decimals) {
		return nil, info, errno.ErrInvalidAmount.WithMessage(fmt.Sprintf("amount exceeds %d decimal places", info.Decimals))
	}
	if err := network.ValidateAddress(req.RecipientAddress); err != nil {
		return nil, info, err
	}
	return network, info, nil
}

// Estimate 报价。免 gas 路线不做任何模拟，网络费为 0，平台费为唯一成本。
func (e *Estimator) Estimate(ctx context.Context, req *chain.WithdrawalRequest) (*chain.GasEstimate, error) {
	network, info, err := e.Validate(req)
	if err != nil {
		return nil, err
	}

	est := &chain.GasEstimate{
		NetworkFee:         decimal.Zero,
		NetworkFeeCurrency: info.NativeSymbol,
		IsGasless:          info.Gasless,
	}

	if !info.Gasless {
		start := time.Now()
		nf, err := network.EstimateNetworkFee(ctx, req)
		monitor.Business.FeeEstimateDuration.WithLabelValues(string(network.Family())).Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, errno.ErrFeeEstimationFailed) || errors.Is(err, errno.ErrInvalidRecipientAddress) {
				return nil, err
			}
			return nil, errno.ErrFeeEstimationFailed.WithMessage(err.Error())
		}
		est.NetworkFee = nf.Amount
		est.NetworkFeeCurrency = nf.Currency
	}

	if pf, ok := e.platformFees[req.Chain]; ok {
		amount := pf.Amount
		est.PlatformFee = &amount
		est.PlatformFeeCurrency = pf.Currency
		est.PlatformFeeDescription = pf.Description
	}
	return est, nil
}

// SameTokenFees 估算中与 token 同币种的费用之和
func SameTokenFees(token string, est *chain.GasEstimate) decimal.Decimal {
	total := decimal.Zero
	if est == nil {
		return total
	}
	if strings.EqualFold(est.NetworkFeeCurrency, token) {
		total = total.Add(est.NetworkFee)
	}
	if est.PlatformFee != nil && strings.EqualFold(est.PlatformFeeCurrency, token) {
		total = total.Add(*est.PlatformFee)
	}
	return total
}

// MaxSendable 余额减去同币种费用，结果不小于 0
func MaxSendable(balance decimal.Decimal, token string, est *chain.GasEstimate) decimal.Decimal {
	max := balance.Sub(SameTokenFees(token, est))
	if max.IsNegative() {
		return decimal.Zero
	}
	return max
}
