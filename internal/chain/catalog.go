package chain

import (
	"sort"
	"strings"

	"wallet-custody/pkg/hdwallet"
)

// Info 链的静态属性
type Info struct {
	ID           ID
	Family       hdwallet.Family
	NativeSymbol string
	Decimals     int32
	// Gasless 为 true 时由交易所代付，用户只承担平台费
	Gasless bool
}

var catalog = map[ID]Info{
	Solana:      {ID: Solana, Family: hdwallet.FamilySolana, NativeSymbol: "SOL", Decimals: 9},
	Ethereum:    {ID: Ethereum, Family: hdwallet.FamilyEVM, NativeSymbol: "ETH", Decimals: 18},
	Arbitrum:    {ID: Arbitrum, Family: hdwallet.FamilyEVM, NativeSymbol: "ETH", Decimals: 18},
	Polygon:     {ID: Polygon, Family: hdwallet.FamilyEVM, NativeSymbol: "POL", Decimals: 18},
	BNB:         {ID: BNB, Family: hdwallet.FamilyEVM, NativeSymbol: "BNB", Decimals: 18},
	HyperEVM:    {ID: HyperEVM, Family: hdwallet.FamilyEVM, NativeSymbol: "HYPE", Decimals: 18},
	Hyperliquid: {ID: Hyperliquid, Family: hdwallet.FamilyEVM, NativeSymbol: "USDC", Decimals: 6, Gasless: true},
}

// Lookup 查询链属性
func Lookup(id ID) (Info, bool) {
	info, ok := catalog[id]
	return info, ok
}

// All 返回全部链 (按名称排序)
func All() []Info {
	out := make([]Info, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Names 返回全部链名
func Names() []string {
	infos := All()
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = string(info.ID)
	}
	return out
}

// SupportsToken 只支持链原生资产 (免 gas 路线为 USDC)
func (i Info) SupportsToken(token string) bool {
	return strings.EqualFold(token, i.NativeSymbol)
}
