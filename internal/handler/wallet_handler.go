package handler

import (
	"context"

	"wallet-custody/internal/handler/response"
	"wallet-custody/internal/model"
	"wallet-custody/internal/service/provision"
	"wallet-custody/internal/session"
	"wallet-custody/internal/store"

	"github.com/gin-gonic/gin"
)

// Provisioner 钱包开通流程，*provision.Controller 满足该接口
type Provisioner interface {
	ProvisionIfAbsent(ctx context.Context, sess *session.Session) (*provision.Result, error)
	Reveal(sess *session.Session) (string, error)
	Confirm(ctx context.Context, sess *session.Session) (*provision.Result, error)
	Abandon(sess *session.Session)
	Status(sess *session.Session) (session.ProvisionState, string)
}

// WalletReader 钱包与余额查询，*store.Store 满足该接口
type WalletReader interface {
	GetWallet(ctx context.Context, userID string) (*model.EmbeddedWallet, error)
	Balances(ctx context.Context, userID string) ([]store.Balance, error)
}

type WalletHandler struct {
	provisioner Provisioner
	wallets     WalletReader
	sessions    *session.Store
}

func NewWalletHandler(p Provisioner, wallets WalletReader, sessions *session.Store) *WalletHandler {
	return &WalletHandler{provisioner: p, wallets: wallets, sessions: sessions}
}

// Provision 没有钱包时创建，已有则返回现有钱包
func (h *WalletHandler) Provision(c *gin.Context) {
	res, err := h.provisioner.ProvisionIfAbsent(c.Request.Context(), CurrentSession(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Reveal 返回助记词，每个会话只能展示一次
func (h *WalletHandler) Reveal(c *gin.Context) {
	phrase, err := h.provisioner.Reveal(CurrentSession(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, gin.H{"mnemonic": phrase})
}

// Confirm 用户已保存助记词
func (h *WalletHandler) Confirm(c *gin.Context) {
	res, err := h.provisioner.Confirm(c.Request.Context(), CurrentSession(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// EndSession 放弃展示并结束会话，销毁会话内所有秘密
func (h *WalletHandler) EndSession(c *gin.Context) {
	sess := CurrentSession(c)
	h.provisioner.Abandon(sess)
	h.sessions.Logout(sess.ID)
	response.Success(c, nil)
}

func (h *WalletHandler) Get(c *gin.Context) {
	sess := CurrentSession(c)
	wallet, err := h.wallets.GetWallet(c.Request.Context(), sess.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, lastErr := h.provisioner.Status(sess)
	response.Success(c, gin.H{
		"wallet":     wallet,
		"state":      state,
		"last_error": lastErr,
	})
}

func (h *WalletHandler) Balances(c *gin.Context) {
	balances, err := h.wallets.Balances(c.Request.Context(), CurrentSession(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, balances)
}
