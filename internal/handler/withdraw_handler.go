package handler

import (
	"context"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/handler/request"
	"wallet-custody/internal/handler/response"
	"wallet-custody/internal/model"
	"wallet-custody/internal/service/withdraw"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Withdrawals 提现业务，*withdraw.Service 满足该接口
type Withdrawals interface {
	Quote(ctx context.Context, userID string, req *chain.WithdrawalRequest) (*withdraw.Quote, error)
	Submit(ctx context.Context, userID string, req *chain.WithdrawalRequest) (*chain.TransactionResult, error)
	Poll(ctx context.Context, userID string, chainID chain.ID, txHash string) (*chain.TransactionResult, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Withdrawal, error)
}

type WithdrawHandler struct {
	svc Withdrawals
}

func NewWithdrawHandler(svc Withdrawals) *WithdrawHandler {
	return &WithdrawHandler{svc: svc}
}

func bindWithdrawal(c *gin.Context) (*chain.WithdrawalRequest, bool) {
	var req request.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return nil, false
	}
	return req.ToChain(), true
}

// Estimate 费用报价与最大可提数量
func (h *WithdrawHandler) Estimate(c *gin.Context) {
	req, ok := bindWithdrawal(c)
	if !ok {
		return
	}
	quote, err := h.svc.Quote(c.Request.Context(), CurrentSession(c).UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, quote)
}

// Create 提交提现，广播成功后立即返回 pending
func (h *WithdrawHandler) Create(c *gin.Context) {
	req, ok := bindWithdrawal(c)
	if !ok {
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), CurrentSession(c).UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Get 查询单笔提现状态
func (h *WithdrawHandler) Get(c *gin.Context) {
	var uri request.WithdrawalURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	res, err := h.svc.Poll(c.Request.Context(), CurrentSession(c).UserID, chain.ID(uri.Chain), uri.TxHash)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *WithdrawHandler) List(c *gin.Context) {
	var q request.ListWithdrawalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	list, err := h.svc.List(c.Request.Context(), CurrentSession(c).UserID, q.Limit, q.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
