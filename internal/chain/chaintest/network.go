// Package chaintest 提供可编程的 chain.Network 实现，供各服务测试使用
package chaintest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"

	"github.com/shopspring/decimal"
)

// Sent 一次 Send 调用的快照，Key 为调用时签名密钥的副本
type Sent struct {
	Request chain.WithdrawalRequest
	Key     []byte
}

type Network struct {
	Chain    chain.ID
	Fam      hdwallet.Family
	Fee      decimal.Decimal
	Gasless  bool
	Currency string

	FeeErr     error
	SendErr    error
	BalanceErr error
	Balances   map[string]decimal.Decimal
	// Statuses 按哈希返回的状态，缺省为 pending
	Statuses map[string]*chain.TransactionResult

	// Hold 非 nil 时 Send 阻塞直到其关闭
	Hold chan struct{}

	mu       sync.Mutex
	sent     []Sent
	feeCalls int
}

func New(id chain.ID) *Network {
	info, _ := chain.Lookup(id)
	return &Network{
		Chain:    id,
		Fam:      info.Family,
		Gasless:  info.Gasless,
		Currency: info.NativeSymbol,
		Balances: make(map[string]decimal.Decimal),
		Statuses: make(map[string]*chain.TransactionResult),
	}
}

func (n *Network) ID() chain.ID { return n.Chain }

func (n *Network) Family() hdwallet.Family { return n.Fam }

// ValidateAddress 以 "bad" 开头的地址视为非法
func (n *Network) ValidateAddress(addr string) error {
	if addr == "" || strings.HasPrefix(addr, "bad") {
		return errno.ErrInvalidRecipientAddress
	}
	return nil
}

func (n *Network) EstimateNetworkFee(_ context.Context, _ *chain.WithdrawalRequest) (*chain.NetworkFee, error) {
	n.mu.Lock()
	n.feeCalls++
	n.mu.Unlock()
	if n.FeeErr != nil {
		return nil, n.FeeErr
	}
	fee := n.Fee
	if n.Gasless {
		fee = decimal.Zero
	}
	return &chain.NetworkFee{Amount: fee, Currency: n.Currency, Gasless: n.Gasless, Units: 21000}, nil
}

func (n *Network) Send(ctx context.Context, req *chain.WithdrawalRequest, key []byte) (*chain.TransactionResult, error) {
	if n.Hold != nil {
		select {
		case <-n.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n.SendErr != nil {
		return nil, n.SendErr
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Sent{Request: *req, Key: append([]byte(nil), key...)})
	hash := fmt.Sprintf("0x%064x", len(n.sent))
	return &chain.TransactionResult{TxHash: hash, ExplorerURL: "https://explorer/" + hash, Status: chain.TxStatusPending}, nil
}

func (n *Network) PollStatus(_ context.Context, txHash string) (*chain.TransactionResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if res, ok := n.Statuses[txHash]; ok {
		cp := *res
		cp.TxHash = txHash
		return &cp, nil
	}
	return &chain.TransactionResult{TxHash: txHash, Status: chain.TxStatusPending}, nil
}

func (n *Network) Balance(_ context.Context, addr string) (decimal.Decimal, error) {
	if n.BalanceErr != nil {
		return decimal.Zero, n.BalanceErr
	}
	return n.Balances[addr], nil
}

// SetStatus 设置某哈希的轮询结果
func (n *Network) SetStatus(txHash string, res *chain.TransactionResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Statuses[txHash] = res
}

// SentTxs 返回所有 Send 调用的快照
func (n *Network) SentTxs() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Sent(nil), n.sent...)
}

// FeeCalls 网络费报价次数
func (n *Network) FeeCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.feeCalls
}
