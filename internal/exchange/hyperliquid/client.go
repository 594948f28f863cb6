package hyperliquid

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"wallet-custody/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrExchange 交易所返回非 ok 状态
var ErrExchange = errors.New("exchange rejected request")

// Agent 已授权的 API 钱包
type Agent struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	ValidUntil int64  `json:"validUntil"` // 毫秒时间戳
}

// LedgerUpdate 非资金费率类账本变动，只解析提现需要的字段
type LedgerUpdate struct {
	Time  int64  `json:"time"`
	Hash  string `json:"hash"`
	Delta struct {
		Type  string `json:"type"`
		USDC  string `json:"usdc"`
		Nonce int64  `json:"nonce"`
		Fee   string `json:"fee"`
	} `json:"delta"`
}

// Client 交易所 HTTP API 客户端 (/info 与 /exchange)
type Client struct {
	baseURL   string
	isMainnet bool
	http      *http.Client
	now       func() time.Time
}

func NewClient(baseURL string, isMainnet bool, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		isMainnet: isMainnet,
		http:      &http.Client{Timeout: timeout},
		now:       time.Now,
	}
}

func (c *Client) chainName() string {
	if c.isMainnet {
		return "Mainnet"
	}
	return "Testnet"
}

// nonce 毫秒时间戳
func (c *Client) nonce() int64 {
	return c.now().UnixMilli()
}

type exchangeRequest struct {
	Action       interface{} `json:"action"`
	Nonce        int64       `json:"nonce"`
	Signature    *Signature  `json:"signature"`
	VaultAddress *string     `json:"vaultAddress"`
}

type exchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求交易所失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d: %s", ErrExchange, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

// submit 提交已签名的 action，status != ok 时携带交易所原始信息返回错误
func (c *Client) submit(ctx context.Context, action map[string]interface{}, nonce int64, sig *Signature) error {
	var out exchangeResponse
	if err := c.post(ctx, "/exchange", exchangeRequest{Action: action, Nonce: nonce, Signature: sig}, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		var msg string
		if err := json.Unmarshal(out.Response, &msg); err != nil {
			msg = string(out.Response)
		}
		return fmt.Errorf("%w: %s", ErrExchange, msg)
	}
	return nil
}

// ApproveAgent 用用户 EVM 主密钥授权一个 API 钱包，validUntil 为零时不设过期
func (c *Client) ApproveAgent(ctx context.Context, userKey *ecdsa.PrivateKey, agentAddress common.Address, agentName string, validUntil time.Time) error {
	name := agentName
	if !validUntil.IsZero() {
		name = fmt.Sprintf("%s valid_until %d", agentName, validUntil.UnixMilli())
	}
	nonce := c.nonce()

	sig, err := signTypedData(userKey, "HyperliquidTransaction:ApproveAgent", approveAgentTypes, apitypes.TypedDataMessage{
		"hyperliquidChain": c.chainName(),
		"agentAddress":     agentAddress.Hex(),
		"agentName":        name,
		"nonce":            big.NewInt(nonce),
	})
	if err != nil {
		return fmt.Errorf("签名 approveAgent 失败: %w", err)
	}

	action := map[string]interface{}{
		"type":             "approveAgent",
		"hyperliquidChain": c.chainName(),
		"signatureChainId": signatureChainID,
		"agentAddress":     strings.ToLower(agentAddress.Hex()),
		"agentName":        name,
		"nonce":            nonce,
	}
	if err := c.submit(ctx, action, nonce, sig); err != nil {
		return err
	}

	logger.Info("API 钱包已授权",
		zap.String("user", logger.MaskAddress(crypto.PubkeyToAddress(userKey.PublicKey).Hex())),
		zap.String("agent", logger.MaskAddress(agentAddress.Hex())),
		zap.Time("valid_until", validUntil))
	return nil
}

// Withdraw 发起免 gas 提现 (跨链桥由交易所代付)，返回签名时使用的 nonce
func (c *Client) Withdraw(ctx context.Context, userKey *ecdsa.PrivateKey, destination common.Address, amount decimal.Decimal) (int64, error) {
	nonce := c.nonce()
	dest := strings.ToLower(destination.Hex())
	amt := amount.String()

	sig, err := signTypedData(userKey, "HyperliquidTransaction:Withdraw", withdrawTypes, apitypes.TypedDataMessage{
		"hyperliquidChain": c.chainName(),
		"destination":      dest,
		"amount":           amt,
		"time":             big.NewInt(nonce),
	})
	if err != nil {
		return 0, fmt.Errorf("签名 withdraw 失败: %w", err)
	}

	action := map[string]interface{}{
		"type":             "withdraw3",
		"hyperliquidChain": c.chainName(),
		"signatureChainId": signatureChainID,
		"destination":      dest,
		"amount":           amt,
		"time":             nonce,
	}
	if err := c.submit(ctx, action, nonce, sig); err != nil {
		return 0, err
	}
	return nonce, nil
}

// ExtraAgents 查询用户已授权的 API 钱包
func (c *Client) ExtraAgents(ctx context.Context, user common.Address) ([]Agent, error) {
	var agents []Agent
	err := c.post(ctx, "/info", map[string]string{"type": "extraAgents", "user": strings.ToLower(user.Hex())}, &agents)
	return agents, err
}

// Withdrawable 账户可提现 USDC
func (c *Client) Withdrawable(ctx context.Context, user common.Address) (decimal.Decimal, error) {
	var state struct {
		Withdrawable string `json:"withdrawable"`
	}
	if err := c.post(ctx, "/info", map[string]string{"type": "clearinghouseState", "user": strings.ToLower(user.Hex())}, &state); err != nil {
		return decimal.Zero, err
	}
	if state.Withdrawable == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(state.Withdrawable)
}

// LedgerUpdates 查询 since 之后的账本变动
func (c *Client) LedgerUpdates(ctx context.Context, user common.Address, since time.Time) ([]LedgerUpdate, error) {
	var updates []LedgerUpdate
	err := c.post(ctx, "/info", map[string]interface{}{
		"type":      "userNonFundingLedgerUpdates",
		"user":      strings.ToLower(user.Hex()),
		"startTime": since.UnixMilli(),
	}, &updates)
	return updates, err
}
