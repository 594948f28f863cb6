package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/handler/response"
	"wallet-custody/internal/model"
	"wallet-custody/internal/service/provision"
	"wallet-custody/internal/service/withdraw"
	"wallet-custody/internal/session"
	"wallet-custody/internal/store"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validator.Init(chain.Names()); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeProvisioner struct {
	mu       sync.Mutex
	revealed bool
	abandons int
}

func (f *fakeProvisioner) ProvisionIfAbsent(_ context.Context, sess *session.Session) (*provision.Result, error) {
	return &provision.Result{
		Wallet:     &model.EmbeddedWallet{UserID: sess.UserID, EVMAddress: "0xabc"},
		State:      session.StateAwaitingConfirmation,
		Disclosure: true,
	}, nil
}

func (f *fakeProvisioner) Reveal(_ *session.Session) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revealed {
		return "", errno.ErrNoPendingDisclosure
	}
	f.revealed = true
	return "abandon ability able about above absent absorb abstract absurd abuse access accident", nil
}

func (f *fakeProvisioner) Confirm(_ context.Context, sess *session.Session) (*provision.Result, error) {
	return &provision.Result{Wallet: &model.EmbeddedWallet{UserID: sess.UserID, SeedConfirmed: true}, State: session.StateConfirmed}, nil
}

func (f *fakeProvisioner) Abandon(_ *session.Session) {
	f.mu.Lock()
	f.abandons++
	f.mu.Unlock()
}

func (f *fakeProvisioner) Status(_ *session.Session) (session.ProvisionState, string) {
	return session.StateConfirmed, ""
}

type fakeWallets struct{}

func (fakeWallets) GetWallet(_ context.Context, userID string) (*model.EmbeddedWallet, error) {
	if userID == "nobody" {
		return nil, errno.ErrWalletNotFound
	}
	return &model.EmbeddedWallet{UserID: userID, EVMAddress: "0xabc"}, nil
}

func (fakeWallets) Balances(_ context.Context, _ string) ([]store.Balance, error) {
	return []store.Balance{
		{Chain: chain.Ethereum, Address: "0xabc", Amount: decimal.RequireFromString("1.5"), Currency: "ETH"},
		{Chain: chain.Solana, Currency: "SOL", Error: "rpc unavailable"},
	}, nil
}

type fakeWithdrawals struct {
	mu      sync.Mutex
	submits []*chain.WithdrawalRequest
}

func (f *fakeWithdrawals) Quote(_ context.Context, _ string, req *chain.WithdrawalRequest) (*withdraw.Quote, error) {
	return &withdraw.Quote{
		Estimate:    &chain.GasEstimate{NetworkFee: decimal.RequireFromString("0.001"), NetworkFeeCurrency: "ETH"},
		Balance:     decimal.RequireFromString("1"),
		MaxSendable: decimal.RequireFromString("0.999"),
	}, nil
}

func (f *fakeWithdrawals) Submit(_ context.Context, _ string, req *chain.WithdrawalRequest) (*chain.TransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if req.RecipientAddress == "bad" {
		return nil, errno.ErrInvalidRecipientAddress
	}
	return &chain.TransactionResult{TxHash: "0x01", Status: chain.TxStatusPending}, nil
}

func (f *fakeWithdrawals) Poll(_ context.Context, _ string, _ chain.ID, txHash string) (*chain.TransactionResult, error) {
	return &chain.TransactionResult{TxHash: txHash, Status: chain.TxStatusPending}, nil
}

func (f *fakeWithdrawals) List(_ context.Context, userID string, limit, offset int) ([]model.Withdrawal, error) {
	return []model.Withdrawal{{UserID: userID, TxHash: "0x01", Status: "pending"}}, nil
}

type fakeCreds struct{ renewErr error }

func (f fakeCreds) Status(_ context.Context, _ string) (*store.CredentialStatus, error) {
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &store.CredentialStatus{HasCredential: true, ExpiresAt: &exp}, nil
}

func (f fakeCreds) RenewNow(_ context.Context, _ *session.Session) (*store.CredentialStatus, error) {
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	return &store.CredentialStatus{HasCredential: true}, nil
}

type testEnv struct {
	r           *gin.Engine
	sessions    *session.Store
	provisioner *fakeProvisioner
	withdrawals *fakeWithdrawals
}

func newTestEnv(creds Credentials) *testEnv {
	env := &testEnv{
		sessions:    session.NewStore(time.Minute),
		provisioner: &fakeProvisioner{},
		withdrawals: &fakeWithdrawals{},
	}
	wallet := NewWalletHandler(env.provisioner, fakeWallets{}, env.sessions)
	wd := NewWithdrawHandler(env.withdrawals)
	cred := NewCredentialHandler(creds)
	limiter := NewRateLimiter(1, 2)

	r := gin.New()
	r.GET("/health", HealthCheck)
	api := r.Group("/api/v1", SessionMiddleware(env.sessions))
	api.POST("/wallet/provision", wallet.Provision)
	api.POST("/wallet/reveal", wallet.Reveal)
	api.POST("/wallet/confirm", wallet.Confirm)
	api.DELETE("/wallet/session", wallet.EndSession)
	api.GET("/wallet", wallet.Get)
	api.GET("/wallet/balances", wallet.Balances)
	api.POST("/withdrawals/estimate", wd.Estimate)
	api.POST("/withdrawals", limiter.Middleware(), wd.Create)
	api.GET("/withdrawals", wd.List)
	api.GET("/withdrawals/:chain/:tx_hash", wd.Get)
	api.GET("/credential", cred.Status)
	api.POST("/credential/renew", cred.Renew)
	env.r = r
	return env
}

func (e *testEnv) do(method, path, user, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderSessionID, "sess-"+user)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(fakeCreds{})
	w, resp := env.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
}

func TestSessionHeadersRequired(t *testing.T) {
	env := newTestEnv(fakeCreds{})
	w, resp := env.do(http.MethodGet, "/api/v1/wallet", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errno.ErrTokenInvalid.Code, resp.Code)

	// 会话 ID 已属于其他用户
	env.do(http.MethodGet, "/api/v1/wallet", "alice", "")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set(HeaderUserID, "mallory")
	req.Header.Set(HeaderSessionID, "sess-alice")
	rec := httptest.NewRecorder()
	env.r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProvisionRevealConfirmFlow(t *testing.T) {
	env := newTestEnv(fakeCreds{})

	_, resp := env.do(http.MethodPost, "/api/v1/wallet/provision", "alice", "")
	require.Equal(t, 0, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "awaiting_confirmation", data["state"])
	assert.Equal(t, true, data["disclosure_pending"])

	w, resp := env.do(http.MethodPost, "/api/v1/wallet/reveal", "alice", "")
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Len(t, strings.Fields(resp.Data.(map[string]interface{})["mnemonic"].(string)), 12)

	_, resp = env.do(http.MethodPost, "/api/v1/wallet/reveal", "alice", "")
	assert.Equal(t, errno.ErrNoPendingDisclosure.Code, resp.Code)

	_, resp = env.do(http.MethodPost, "/api/v1/wallet/confirm", "alice", "")
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, "confirmed", resp.Data.(map[string]interface{})["state"])
}

func TestEndSessionLogsOut(t *testing.T) {
	env := newTestEnv(fakeCreds{})
	env.do(http.MethodGet, "/api/v1/wallet", "alice", "")
	require.Equal(t, 1, env.sessions.Count())

	_, resp := env.do(http.MethodDelete, "/api/v1/wallet/session", "alice", "")
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, 1, env.provisioner.abandons)
	assert.Equal(t, 0, env.sessions.Count())
}

func TestWalletAndBalances(t *testing.T) {
	env := newTestEnv(fakeCreds{})

	_, resp := env.do(http.MethodGet, "/api/v1/wallet", "nobody", "")
	assert.Equal(t, errno.ErrWalletNotFound.Code, resp.Code)

	_, resp = env.do(http.MethodGet, "/api/v1/wallet/balances", "alice", "")
	require.Equal(t, 0, resp.Code)
	list := resp.Data.([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "1.5", list[0].(map[string]interface{})["amount"])
	assert.Equal(t, "rpc unavailable", list[1].(map[string]interface{})["error"])
}

func TestWithdrawalValidation(t *testing.T) {
	env := newTestEnv(fakeCreds{})

	tests := []struct {
		name string
		body string
	}{
		{"unknown chain", `{"chain":"dogecoin","token":"DOGE","amount":"1","recipient_address":"x"}`},
		{"zero amount", `{"chain":"ethereum","token":"ETH","amount":"0","recipient_address":"0xabc"}`},
		{"missing recipient", `{"chain":"ethereum","token":"ETH","amount":"1"}`},
		{"malformed", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := env.do(http.MethodPost, "/api/v1/withdrawals/estimate", "alice", tt.body)
			assert.Equal(t, errno.ErrBind.Code, resp.Code)
		})
	}
	assert.Empty(t, env.withdrawals.submits)
}

func TestWithdrawalEstimateAndSubmit(t *testing.T) {
	env := newTestEnv(fakeCreds{})
	body := `{"chain":"ethereum","token":"ETH","amount":"0.25","recipient_address":"0xabc"}`

	_, resp := env.do(http.MethodPost, "/api/v1/withdrawals/estimate", "alice", body)
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, "0.999", resp.Data.(map[string]interface{})["max_sendable"])

	_, resp = env.do(http.MethodPost, "/api/v1/withdrawals", "alice", body)
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, "pending", resp.Data.(map[string]interface{})["status"])
	require.Len(t, env.withdrawals.submits, 1)
	assert.True(t, env.withdrawals.submits[0].Amount.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, chain.Ethereum, env.withdrawals.submits[0].Chain)

	_, resp = env.do(http.MethodPost, "/api/v1/withdrawals", "alice",
		`{"chain":"ethereum","token":"ETH","amount":"0.25","recipient_address":"bad"}`)
	assert.Equal(t, errno.ErrInvalidRecipientAddress.Code, resp.Code)
}

func TestWithdrawalSubmitRateLimited(t *testing.T) {
	env := newTestEnv(fakeCreds{})
	body := `{"chain":"ethereum","token":"ETH","amount":"0.1","recipient_address":"0xabc"}`

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w, _ := env.do(http.MethodPost, "/api/v1/withdrawals", "alice", body)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 其他用户不受影响
	w, _ := env.do(http.MethodPost, "/api/v1/withdrawals", "bob", body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWithdrawalPollAndList(t *testing.T) {
	env := newTestEnv(fakeCreds{})

	_, resp := env.do(http.MethodGet, "/api/v1/withdrawals/solana/5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW", "alice", "")
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, "pending", resp.Data.(map[string]interface{})["status"])

	_, resp = env.do(http.MethodGet, "/api/v1/withdrawals/dogecoin/0x01", "alice", "")
	assert.Equal(t, errno.ErrBind.Code, resp.Code)

	_, resp = env.do(http.MethodGet, "/api/v1/withdrawals?limit=10", "alice", "")
	require.Equal(t, 0, resp.Code)
	assert.Len(t, resp.Data.([]interface{}), 1)

	_, resp = env.do(http.MethodGet, "/api/v1/withdrawals?limit=1000", "alice", "")
	assert.Equal(t, errno.ErrBind.Code, resp.Code)
}

func TestCredentialRoutes(t *testing.T) {
	env := newTestEnv(fakeCreds{})
	_, resp := env.do(http.MethodGet, "/api/v1/credential", "alice", "")
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["has_credential"])

	env = newTestEnv(fakeCreds{renewErr: errno.ErrCredentialRenewalFailed.WithMessage("renewal already in progress")})
	_, resp = env.do(http.MethodPost, "/api/v1/credential/renew", "alice", "")
	assert.Equal(t, errno.ErrCredentialRenewalFailed.Code, resp.Code)
	assert.Equal(t, "renewal already in progress", resp.Message)
}
