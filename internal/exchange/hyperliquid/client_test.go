package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

// fakeExchange 记录 /exchange 请求，按 type 应答 /info
type fakeExchange struct {
	mu       sync.Mutex
	actions  []map[string]interface{}
	sigs     []Signature
	reject   string
	info     map[string]interface{}
	infoReqs []map[string]interface{}
}

func (f *fakeExchange) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.URL.Path {
		case "/exchange":
			var req struct {
				Action    map[string]interface{} `json:"action"`
				Nonce     int64                  `json:"nonce"`
				Signature Signature              `json:"signature"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.actions = append(f.actions, req.Action)
			f.sigs = append(f.sigs, req.Signature)
			if f.reject != "" {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "err", "response": f.reject})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "response": map[string]string{"type": "default"}})
		case "/info":
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.infoReqs = append(f.infoReqs, req)
			_ = json.NewEncoder(w).Encode(f.info[req["type"].(string)])
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, fx *fakeExchange) *Client {
	srv := httptest.NewServer(fx.handler(t))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, true, time.Second)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestApproveAgentSignature(t *testing.T) {
	fx := &fakeExchange{}
	c := newTestClient(t, fx)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	agent := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	validUntil := fixedNow.Add(7 * 24 * time.Hour)

	require.NoError(t, c.ApproveAgent(context.Background(), key, agent, "wallet-custody", validUntil))
	require.Len(t, fx.actions, 1)

	action := fx.actions[0]
	assert.Equal(t, "approveAgent", action["type"])
	assert.Equal(t, "Mainnet", action["hyperliquidChain"])
	assert.Equal(t, signatureChainID, action["signatureChainId"])
	assert.Equal(t, "wallet-custody valid_until 1700604800000", action["agentName"])

	signer, err := recoverSigner("HyperliquidTransaction:ApproveAgent", approveAgentTypes, apitypes.TypedDataMessage{
		"hyperliquidChain": "Mainnet",
		"agentAddress":     agent.Hex(),
		"agentName":        action["agentName"],
		"nonce":            big.NewInt(fixedNow.UnixMilli()),
	}, &fx.sigs[0])
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)
}

func TestWithdrawRejectedKeepsMessage(t *testing.T) {
	fx := &fakeExchange{reject: "Insufficient balance for withdrawal"}
	c := newTestClient(t, fx)
	key, _ := crypto.GenerateKey()

	_, err := c.Withdraw(context.Background(), key, common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"), decimal.NewFromInt(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchange))
	assert.Contains(t, err.Error(), "Insufficient balance for withdrawal")
}

func TestExtraAgents(t *testing.T) {
	fx := &fakeExchange{info: map[string]interface{}{
		"extraAgents": []map[string]interface{}{
			{"address": "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", "name": "wallet-custody", "validUntil": 1700604800000},
		},
	}}
	c := newTestClient(t, fx)

	agents, err := c.ExtraAgents(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, int64(1700604800000), agents[0].ValidUntil)
	assert.Equal(t, "extraAgents", fx.infoReqs[0]["type"])
}

func TestRouteGaslessEstimate(t *testing.T) {
	r := NewRoute(NewClient("http://unused", true, time.Second), "")

	fee, err := r.EstimateNetworkFee(context.Background(), &chain.WithdrawalRequest{Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.True(t, fee.Gasless)
	assert.True(t, fee.Amount.IsZero())
	assert.Equal(t, "USDC", fee.Currency)
}

func TestRouteSendAndPoll(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := crypto.PubkeyToAddress(key.PublicKey)

	fx := &fakeExchange{info: map[string]interface{}{
		"userNonFundingLedgerUpdates": []map[string]interface{}{
			{"time": fixedNow.UnixMilli() + 5000, "hash": "0xabc", "delta": map[string]interface{}{"type": "withdraw", "usdc": "10", "nonce": fixedNow.UnixMilli(), "fee": "1"}},
		},
		"clearinghouseState": map[string]interface{}{"withdrawable": "42.5"},
	}}
	c := newTestClient(t, fx)
	r := NewRoute(c, "https://app.hyperliquid.xyz/explorer/tx/")

	req := &chain.WithdrawalRequest{
		Chain:            chain.Hyperliquid,
		Token:            "USDC",
		Amount:           decimal.NewFromInt(10),
		RecipientAddress: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		SourceAddress:    user.Hex(),
	}
	res, err := r.Send(context.Background(), req, crypto.FromECDSA(key))
	require.NoError(t, err)
	assert.Equal(t, chain.TxStatusPending, res.Status)
	require.Len(t, fx.actions, 1)
	assert.Equal(t, "withdraw3", fx.actions[0]["type"])
	assert.Equal(t, "10", fx.actions[0]["amount"])

	signer, err := recoverSigner("HyperliquidTransaction:Withdraw", withdrawTypes, apitypes.TypedDataMessage{
		"hyperliquidChain": "Mainnet",
		"destination":      "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf",
		"amount":           "10",
		"time":             big.NewInt(fixedNow.UnixMilli()),
	}, &fx.sigs[0])
	require.NoError(t, err)
	assert.Equal(t, user, signer)

	polled, err := r.PollStatus(context.Background(), res.TxHash)
	require.NoError(t, err)
	assert.Equal(t, chain.TxStatusConfirmed, polled.Status)
	assert.Equal(t, "https://app.hyperliquid.xyz/explorer/tx/0xabc", polled.ExplorerURL)

	bal, err := r.Balance(context.Background(), user.Hex())
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("42.5")))
}

func TestRoutePollUnknownNonceStaysPending(t *testing.T) {
	fx := &fakeExchange{info: map[string]interface{}{"userNonFundingLedgerUpdates": []interface{}{}}}
	r := NewRoute(newTestClient(t, fx), "")

	res, err := r.PollStatus(context.Background(), "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf:1700000000000")
	require.NoError(t, err)
	assert.Equal(t, chain.TxStatusPending, res.Status)

	_, err = r.PollStatus(context.Background(), "garbage")
	assert.True(t, errors.Is(err, errno.ErrBind))
}

func TestRouteSendRejected(t *testing.T) {
	fx := &fakeExchange{reject: "Must deposit before performing actions"}
	r := NewRoute(newTestClient(t, fx), "")
	key, _ := crypto.GenerateKey()

	_, err := r.Send(context.Background(), &chain.WithdrawalRequest{
		Amount:           decimal.NewFromInt(3),
		RecipientAddress: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
	}, crypto.FromECDSA(key))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrBroadcastRejected))
	assert.Contains(t, err.Error(), "Must deposit")
}
