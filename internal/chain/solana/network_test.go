package solana

import (
	"context"
	"errors"
	"testing"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	fee      *uint64
	lamports uint64
	sendErr  error
	statuses map[sol.Signature]*rpc.SignatureStatusesResult

	blockhashCalls int
	sent           []*sol.Transaction
}

func (f *fakeClient) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.blockhashCalls++
	h := sol.Hash{byte(f.blockhashCalls), 1, 2, 3}
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: h, LastValidBlockHeight: 100}}, nil
}

func (f *fakeClient) GetFeeForMessage(context.Context, string, rpc.CommitmentType) (*rpc.GetFeeForMessageResult, error) {
	return &rpc.GetFeeForMessageResult{Value: f.fee}, nil
}

func (f *fakeClient) GetBalance(context.Context, sol.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: f.lamports}, nil
}

func (f *fakeClient) SendTransactionWithOpts(_ context.Context, tx *sol.Transaction, _ rpc.TransactionOpts) (sol.Signature, error) {
	if f.sendErr != nil {
		return sol.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeClient) GetSignatureStatuses(_ context.Context, _ bool, sigs ...sol.Signature) (*rpc.GetSignatureStatusesResult, error) {
	out := &rpc.GetSignatureStatusesResult{}
	for _, s := range sigs {
		out.Value = append(out.Value, f.statuses[s])
	}
	return out, nil
}

func newKey(t *testing.T) sol.PrivateKey {
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func TestEstimateNetworkFee(t *testing.T) {
	fee := uint64(5000)
	n := NewNetwork(&fakeClient{fee: &fee}, "", "https://solscan.io/tx/")

	req := &chain.WithdrawalRequest{
		Chain:            chain.Solana,
		Token:            "SOL",
		Amount:           decimal.RequireFromString("0.5"),
		RecipientAddress: newKey(t).PublicKey().String(),
	}
	got, err := n.EstimateNetworkFee(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("0.000005")), got.Amount.String())
	assert.Equal(t, "SOL", got.Currency)
	assert.Equal(t, uint64(1), got.Units)
}

func TestEstimateNetworkFeeExpiredBlockhash(t *testing.T) {
	n := NewNetwork(&fakeClient{}, "confirmed", "")
	req := &chain.WithdrawalRequest{Amount: decimal.NewFromInt(1), RecipientAddress: newKey(t).PublicKey().String()}

	_, err := n.EstimateNetworkFee(context.Background(), req)
	assert.True(t, errors.Is(err, errno.ErrFeeEstimationFailed))
}

func TestSend(t *testing.T) {
	fc := &fakeClient{}
	n := NewNetwork(fc, "confirmed", "https://solscan.io/tx/")
	key := newKey(t)
	to := newKey(t).PublicKey()

	req := &chain.WithdrawalRequest{
		Chain:            chain.Solana,
		Token:            "SOL",
		Amount:           decimal.RequireFromString("1.25"),
		RecipientAddress: to.String(),
		SourceAddress:    key.PublicKey().String(),
	}
	res, err := n.Send(context.Background(), req, key)
	require.NoError(t, err)
	require.Len(t, fc.sent, 1)

	tx := fc.sent[0]
	require.NoError(t, tx.VerifySignatures())
	assert.Equal(t, tx.Signatures[0].String(), res.TxHash)
	assert.Equal(t, chain.TxStatusPending, res.Status)
	assert.Equal(t, "https://solscan.io/tx/"+res.TxHash, res.ExplorerURL)
	assert.True(t, tx.Message.AccountKeys[0].Equals(key.PublicKey()))

	// 调用方的密钥不应被修改
	assert.NotEqual(t, make([]byte, 64), []byte(key))
}

func TestSendFetchesFreshBlockhash(t *testing.T) {
	fc := &fakeClient{}
	n := NewNetwork(fc, "", "")
	key := newKey(t)
	req := &chain.WithdrawalRequest{Amount: decimal.NewFromInt(1), RecipientAddress: newKey(t).PublicKey().String()}

	_, err := n.Send(context.Background(), req, key)
	require.NoError(t, err)
	_, err = n.Send(context.Background(), req, key)
	require.NoError(t, err)

	require.Len(t, fc.sent, 2)
	assert.NotEqual(t, fc.sent[0].Message.RecentBlockhash, fc.sent[1].Message.RecentBlockhash)
}

func TestSendRejected(t *testing.T) {
	n := NewNetwork(&fakeClient{sendErr: errors.New("insufficient funds for rent")}, "", "")
	req := &chain.WithdrawalRequest{Amount: decimal.NewFromInt(1), RecipientAddress: newKey(t).PublicKey().String()}

	_, err := n.Send(context.Background(), req, newKey(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrBroadcastRejected))
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestSendSourceMismatch(t *testing.T) {
	fc := &fakeClient{}
	n := NewNetwork(fc, "", "")
	req := &chain.WithdrawalRequest{
		Amount:           decimal.NewFromInt(1),
		RecipientAddress: newKey(t).PublicKey().String(),
		SourceAddress:    newKey(t).PublicKey().String(),
	}

	_, err := n.Send(context.Background(), req, newKey(t))
	require.Error(t, err)
	assert.Empty(t, fc.sent)
}

func TestPollStatus(t *testing.T) {
	confirmed := sol.Signature{1}
	failed := sol.Signature{2}
	processed := sol.Signature{3}
	unknown := sol.Signature{4}

	fc := &fakeClient{statuses: map[sol.Signature]*rpc.SignatureStatusesResult{
		confirmed: {Slot: 42, ConfirmationStatus: rpc.ConfirmationStatusFinalized},
		failed:    {Slot: 43, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		processed: {Slot: 44, ConfirmationStatus: rpc.ConfirmationStatusProcessed},
	}}
	n := NewNetwork(fc, "", "")
	ctx := context.Background()

	res, err := n.PollStatus(ctx, confirmed.String())
	require.NoError(t, err)
	assert.Equal(t, chain.TxStatusConfirmed, res.Status)
	require.NotNil(t, res.BlockNumber)
	assert.Equal(t, uint64(42), *res.BlockNumber)

	res, err = n.PollStatus(ctx, failed.String())
	require.NoError(t, err)
	assert.Equal(t, chain.TxStatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "InstructionError")

	res, err = n.PollStatus(ctx, processed.String())
	require.NoError(t, err)
	assert.Equal(t, chain.TxStatusPending, res.Status)
	assert.Nil(t, res.BlockNumber)

	for i := 0; i < 3; i++ {
		res, err = n.PollStatus(ctx, unknown.String())
		require.NoError(t, err)
		assert.Equal(t, chain.TxStatusPending, res.Status)
	}

	_, err = n.PollStatus(ctx, "not-a-signature")
	assert.Error(t, err)
}

func TestValidateAndBalance(t *testing.T) {
	n := NewNetwork(&fakeClient{lamports: 1_500_000_000}, "", "")
	addr := newKey(t).PublicKey().String()

	assert.NoError(t, n.ValidateAddress(addr))
	assert.ErrorIs(t, n.ValidateAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"), errno.ErrInvalidRecipientAddress)

	bal, err := n.Balance(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("1.5")))
}
