package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-custody/internal/handler"
	"wallet-custody/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	sessions := session.NewStore(time.Minute)
	return NewHTTPRouter(Handlers{
		Wallet:     handler.NewWalletHandler(nil, nil, sessions),
		Withdraw:   handler.NewWithdrawHandler(nil),
		Credential: handler.NewCredentialHandler(nil),
		Sessions:   sessions,
		Limiter:    handler.NewRateLimiter(1, 1),
	})
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := newTestRouter()

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_APIRequiresSessionHeaders(t *testing.T) {
	r := newTestRouter()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/wallet/provision"},
		{http.MethodGet, "/api/v1/wallet"},
		{http.MethodPost, "/api/v1/withdrawals"},
		{http.MethodGet, "/api/v1/withdrawals/ethereum/0xdeadbeef"},
		{http.MethodPost, "/api/v1/credential/renew"},
	}
	for _, rt := range routes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.path)
	}
}

func TestApp_ShutdownHooksRunInReverse(t *testing.T) {
	app := New(Config{HttpPort: "0"}, newTestRouter())

	var order []int
	app.OnShutdown(func() { order = append(order, 1) })
	app.OnShutdown(func() { order = append(order, 2) })
	app.Shutdown()

	assert.Equal(t, []int{2, 1}, order)
}
