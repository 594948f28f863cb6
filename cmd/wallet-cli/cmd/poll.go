package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-custody/internal/chain"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll <tx-hash>",
	Short: "查询交易状态 (Online)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainName, _ := cmd.Flags().GetString("chain")
		rpcURL, _ := cmd.Flags().GetString("rpc")
		id := chain.ID(chainName)

		timeout := commandTimeout(cmd)
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		registry, err := dialRegistry(ctx, id, rpcURL, timeout)
		if err != nil {
			return err
		}
		network, err := registry.Get(id)
		if err != nil {
			return err
		}

		result, err := network.PollStatus(ctx, args[0])
		if err != nil {
			return err
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)

	pollCmd.Flags().String("chain", "", "链名")
	pollCmd.Flags().String("rpc", "", "覆盖配置中的 RPC 地址")
	pollCmd.MarkFlagRequired("chain")
}
