package cmd

import (
	"context"
	"fmt"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/chain/evm"
	"wallet-custody/internal/chain/solana"
	"wallet-custody/internal/exchange/hyperliquid"
	"wallet-custody/pkg/config"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"

	"github.com/spf13/cobra"
)

const defaultTimeout = 30 * time.Second

func commandTimeout(cmd *cobra.Command) time.Duration {
	d, _ := cmd.Flags().GetDuration("timeout")
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// dialRegistry 按配置 (或 --rpc 覆盖) 连接单条链，返回只含该链的注册表
func dialRegistry(ctx context.Context, id chain.ID, rpcURL string, timeout time.Duration) (*chain.Registry, error) {
	info, ok := chain.Lookup(id)
	if !ok {
		return nil, errno.ErrUnsupportedChain.WithMessage(fmt.Sprintf("unsupported chain %q", id))
	}

	config.Init()
	cfg := config.Global
	registry := chain.NewRegistry()

	switch {
	case info.Gasless:
		url := cfg.Exchange.ApiUrl
		if rpcURL != "" {
			url = rpcURL
		}
		client := hyperliquid.NewClient(url, cfg.Exchange.IsMainnet, timeout)
		registry.Register(hyperliquid.NewRoute(client, cfg.Exchange.ExplorerUrl))

	case info.Family == hdwallet.FamilySolana:
		url := cfg.Solana.RpcUrl
		if rpcURL != "" {
			url = rpcURL
		}
		registry.Register(solana.NewNetwork(solana.Dial(url), cfg.Solana.Commitment, cfg.Solana.ExplorerUrl))

	default:
		cc := cfg.Chains[string(id)]
		if rpcURL != "" {
			cc.RpcUrl = rpcURL
		}
		if cc.RpcUrl == "" {
			return nil, fmt.Errorf("%s 未配置 RPC 地址，请使用 --rpc", id)
		}
		client, err := evm.Dial(ctx, cc.RpcUrl)
		if err != nil {
			return nil, fmt.Errorf("连接 %s 节点失败: %w", id, err)
		}
		network, err := evm.NewNetwork(ctx, id, client, cc.ChainID, cc.ExplorerUrl)
		if err != nil {
			return nil, err
		}
		registry.Register(network)
	}

	return registry, nil
}
