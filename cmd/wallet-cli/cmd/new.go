package cmd

import (
	"fmt"
	"io"

	"wallet-custody/pkg/hdwallet"

	"github.com/spf13/cobra"
)

// newCmd 代表 new 命令
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "创建一个新的钱包",
	Long:  `生成一个新的 12 词助记词，派生 Solana 与 EVM 地址。助记词只显示这一次，退出前清零内存中的密钥。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "正在生成新钱包...")

		mnemonic, pairs, err := hdwallet.NewEngine().Generate()
		if err != nil {
			return fmt.Errorf("生成钱包失败: %w", err)
		}
		defer mnemonic.Destroy()
		defer hdwallet.DestroyAll(pairs)

		printAddresses(out, pairs)
		fmt.Fprintln(out, "---------------------------------------------------")
		fmt.Fprintln(out, "助记词 (请抄写在纸上并安全保管):")
		fmt.Fprintln(out, mnemonic.Phrase())
		fmt.Fprintln(out, "---------------------------------------------------")
		fmt.Fprintln(out, "请妥善保管您的助记词！任何拥有助记词的人都可以控制该钱包的所有资产。")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}

func printAddresses(w io.Writer, pairs []*hdwallet.ChainKeyPair) {
	fmt.Fprintln(w, "---------------------------------------------------")
	for _, p := range pairs {
		fmt.Fprintf(w, "%-7s %s\n", p.Family, p.Address)
	}
}
