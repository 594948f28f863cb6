package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "wallet-cli",
	Short: "托管钱包命令行工具",
	Long: `托管钱包的离线辅助工具。
支持生成/恢复助记词并派生 Solana 与 EVM 地址，以及对线上节点做手续费报价和交易状态查询。`,
	SilenceUsage: true,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Duration("timeout", 0, "网络请求超时 (0 表示 30s)")
}
