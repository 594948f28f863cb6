package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits 将代币数量转换为最小单位 (wei / lamports)，多余小数位截断。
// 用户金额需先经过 FitsDecimals 校验。
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FitsDecimals 金额能否精确表示为整数个最小单位
func FitsDecimals(amount decimal.Decimal, decimals int32) bool {
	return amount.Shift(decimals).IsInteger()
}

// FromBaseUnits 将最小单位转换为代币数量
func FromBaseUnits(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}
