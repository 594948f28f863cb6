package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"wallet-custody/pkg/bip39"
	"wallet-custody/pkg/crypto_util"
	"wallet-custody/pkg/hdwallet"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "由助记词恢复钱包地址",
	Long:  `从终端读取助记词 (不回显)，重新派生 Solana 与 EVM 地址。非终端输入时从标准输入读取一行。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, "输入助记词: ")

		raw, err := readSecret(cmd.InOrStdin())
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("读取助记词失败: %w", err)
		}
		mnemonic := bip39.NewMnemonic(string(raw))
		crypto_util.Wipe(raw)
		defer mnemonic.Destroy()

		pairs, err := hdwallet.NewEngine().Recover(mnemonic)
		if err != nil {
			return err
		}
		defer hdwallet.DestroyAll(pairs)

		printAddresses(out, pairs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

// readSecret 终端下关闭回显读取，否则读一行
func readSecret(in io.Reader) ([]byte, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return term.ReadPassword(int(f.Fd()))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, bip39.ErrInvalidMnemonic
	}
	return []byte(line), nil
}
