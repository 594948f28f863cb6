package handler

import (
	"context"

	"wallet-custody/internal/handler/response"
	"wallet-custody/internal/session"
	"wallet-custody/internal/store"

	"github.com/gin-gonic/gin"
)

// Credentials 交易所 API 钱包，*renewal.Controller 满足该接口
type Credentials interface {
	Status(ctx context.Context, userID string) (*store.CredentialStatus, error)
	RenewNow(ctx context.Context, sess *session.Session) (*store.CredentialStatus, error)
}

type CredentialHandler struct {
	creds Credentials
}

func NewCredentialHandler(creds Credentials) *CredentialHandler {
	return &CredentialHandler{creds: creds}
}

func (h *CredentialHandler) Status(c *gin.Context) {
	status, err := h.creds.Status(c.Request.Context(), CurrentSession(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

func (h *CredentialHandler) Renew(c *gin.Context) {
	status, err := h.creds.RenewNow(c.Request.Context(), CurrentSession(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}
