package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/service/fee"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// estimateCmd 对线上节点做一次手续费报价，不签名不广播
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "提现手续费报价 (Online)",
	RunE: func(cmd *cobra.Command, args []string) error {
		chainName, _ := cmd.Flags().GetString("chain")
		token, _ := cmd.Flags().GetString("token")
		amountStr, _ := cmd.Flags().GetString("amount")
		to, _ := cmd.Flags().GetString("to")
		from, _ := cmd.Flags().GetString("from")
		rpcURL, _ := cmd.Flags().GetString("rpc")

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("金额格式错误: %w", err)
		}

		id := chain.ID(chainName)
		if token == "" {
			if info, ok := chain.Lookup(id); ok {
				token = info.NativeSymbol
			}
		}

		timeout := commandTimeout(cmd)
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		registry, err := dialRegistry(ctx, id, rpcURL, timeout)
		if err != nil {
			return err
		}

		est, err := fee.NewEstimator(registry, nil).Estimate(ctx, &chain.WithdrawalRequest{
			Chain:            id,
			Token:            token,
			Amount:           amount,
			RecipientAddress: to,
			SourceAddress:    from,
		})
		if err != nil {
			return err
		}

		data, _ := json.MarshalIndent(est, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().String("chain", "", "链名 (solana / ethereum / arbitrum / polygon / bnb / hyperevm / hyperliquid)")
	estimateCmd.Flags().String("token", "", "代币符号，默认链原生资产")
	estimateCmd.Flags().String("amount", "0", "金额 (代币单位)")
	estimateCmd.Flags().String("to", "", "收款地址")
	estimateCmd.Flags().String("from", "", "发送方地址 (可选)")
	estimateCmd.Flags().String("rpc", "", "覆盖配置中的 RPC 地址")

	estimateCmd.MarkFlagRequired("chain")
	estimateCmd.MarkFlagRequired("to")
}
