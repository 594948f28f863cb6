package main

import "wallet-custody/cmd/wallet-cli/cmd"

func main() {
	cmd.Execute()
}
