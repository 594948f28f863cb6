package provision

import (
	"context"
	"errors"

	"wallet-custody/internal/model"
	"wallet-custody/internal/session"
	"wallet-custody/pkg/bip39"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"
	"wallet-custody/pkg/monitor"

	"go.uber.org/zap"
)

// WalletStore 开通流程依赖的持久化操作
type WalletStore interface {
	CreateWallet(ctx context.Context, userID string, pairs []*hdwallet.ChainKeyPair) (*model.EmbeddedWallet, error)
	GetWallet(ctx context.Context, userID string) (*model.EmbeddedWallet, error)
	ConfirmSeedShown(ctx context.Context, userID string) error
}

// Deriver 生成助记词与各链族密钥对
type Deriver interface {
	Generate() (*bip39.Mnemonic, []*hdwallet.ChainKeyPair, error)
}

// Result 开通结果。Disclosure 为 true 表示本会话持有待展示的助记词。
type Result struct {
	Wallet     *model.EmbeddedWallet  `json:"wallet"`
	State      session.ProvisionState `json:"state"`
	Disclosure bool                   `json:"disclosure_pending"`
}

type Controller struct {
	store   WalletStore
	deriver Deriver
}

func NewController(store WalletStore, deriver Deriver) *Controller {
	return &Controller{store: store, deriver: deriver}
}

func existingState(w *model.EmbeddedWallet, sess *session.Session) *Result {
	res := &Result{Wallet: w, State: session.StateConfirmed}
	if !w.SeedConfirmed {
		res.State = session.StateAwaitingConfirmation
		res.Disclosure = sess.Pending() != nil
	}
	return res
}

// ProvisionIfAbsent 用户没有钱包时生成并持久化，已有钱包时直接返回
func (c *Controller) ProvisionIfAbsent(ctx context.Context, sess *session.Session) (*Result, error) {
	existing, err := c.store.GetWallet(ctx, sess.UserID)
	if err == nil {
		res := existingState(existing, sess)
		sess.CompleteProvisioning(res.State)
		return res, nil
	}
	if !errors.Is(err, errno.ErrWalletNotFound) {
		return nil, err
	}

	if !sess.BeginProvisioning() {
		return nil, errno.ErrProvisionInProgress
	}

	// 1. Deriving
	mnemonic, pairs, err := c.deriver.Generate()
	if err != nil {
		sess.FailProvisioning(err)
		monitor.Business.ProvisionTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	// 签名密钥落库 (加密) 后立即清零，无论成败
	defer hdwallet.DestroyAll(pairs)

	// 2. PersistingAddresses
	sess.SetState(session.StatePersistingAddresses)
	wallet, err := c.store.CreateWallet(ctx, sess.UserID, pairs)
	switch {
	case errors.Is(err, errno.ErrWalletAlreadyExists):
		// 另一会话抢先创建：丢弃本次生成的材料，以服务端记录为准
		mnemonic.Destroy()
		existing, gerr := c.store.GetWallet(ctx, sess.UserID)
		if gerr != nil {
			sess.FailProvisioning(gerr)
			monitor.Business.ProvisionTotal.WithLabelValues("failed").Inc()
			return nil, gerr
		}
		res := existingState(existing, sess)
		sess.CompleteProvisioning(res.State)
		monitor.Business.ProvisionTotal.WithLabelValues("existing").Inc()
		logger.Info("钱包已存在，复用服务端记录", zap.String("user_id", sess.UserID))
		return res, nil

	case err != nil:
		mnemonic.Destroy()
		sess.FailProvisioning(err)
		monitor.Business.ProvisionTotal.WithLabelValues("failed").Inc()
		logger.Error("钱包开通失败", zap.String("user_id", sess.UserID), zap.Error(err))
		return nil, err
	}

	// 3. AwaitingConfirmation：会话在此期间被放弃时 SetPending 会直接销毁助记词
	disclosed := sess.SetPending(NewDisclosure(mnemonic))
	sess.CompleteProvisioning(session.StateAwaitingConfirmation)
	monitor.Business.ProvisionTotal.WithLabelValues("created").Inc()

	return &Result{Wallet: wallet, State: session.StateAwaitingConfirmation, Disclosure: disclosed}, nil
}

func pendingDisclosure(sess *session.Session) (*Disclosure, error) {
	d, ok := sess.Pending().(*Disclosure)
	if !ok || d == nil || d.Destroyed() {
		return nil, errno.ErrNoPendingDisclosure
	}
	return d, nil
}

// Reveal 向用户展示助记词 (仅一次)
func (c *Controller) Reveal(sess *session.Session) (string, error) {
	d, err := pendingDisclosure(sess)
	if err != nil {
		return "", err
	}
	return d.Reveal()
}

// Confirm 用户确认已保存助记词：标记服务端记录后销毁助记词。
// 持久化失败时保留助记词以便重试。
func (c *Controller) Confirm(ctx context.Context, sess *session.Session) (*Result, error) {
	if _, err := pendingDisclosure(sess); err != nil {
		return nil, err
	}
	if err := c.store.ConfirmSeedShown(ctx, sess.UserID); err != nil {
		return nil, err
	}
	sess.ClearPending()
	sess.SetState(session.StateConfirmed)

	wallet, err := c.store.GetWallet(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &Result{Wallet: wallet, State: session.StateConfirmed}, nil
}

// Abandon 放弃展示，销毁助记词
func (c *Controller) Abandon(sess *session.Session) {
	sess.ClearPending()
}

// Status 当前会话的开通状态
func (c *Controller) Status(sess *session.Session) (session.ProvisionState, string) {
	return sess.State()
}
