package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoller struct {
	status chain.TxStatus
	err    error
	calls  int
}

func (f *fakePoller) Poll(_ context.Context, _ string, _ chain.ID, txHash string) (*chain.TransactionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &chain.TransactionResult{TxHash: txHash, Status: f.status}, nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func pollTask(t *testing.T, attempt int) *asynq.Task {
	task, err := NewWithdrawalPollTask(WithdrawalPollPayload{
		UserID: "user-1", Chain: chain.Ethereum, TxHash: "0xabc", Attempt: attempt,
	}, time.Second)
	require.NoError(t, err)
	return task
}

func TestPollPendingSchedulesNextRound(t *testing.T) {
	poller := &fakePoller{status: chain.TxStatusPending}
	enq := &fakeEnqueuer{}
	h := NewWithdrawalPollHandler(poller, enq, 5*time.Second, 10)

	require.NoError(t, h.ProcessTask(context.Background(), pollTask(t, 3)))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeWithdrawalPoll, enq.tasks[0].Type())

	var next WithdrawalPollPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &next))
	assert.Equal(t, 4, next.Attempt)
	assert.Equal(t, "0xabc", next.TxHash)
	assert.Equal(t, "user-1", next.UserID)
}

func TestPollTerminalStops(t *testing.T) {
	for _, status := range []chain.TxStatus{chain.TxStatusConfirmed, chain.TxStatusFailed} {
		enq := &fakeEnqueuer{}
		h := NewWithdrawalPollHandler(&fakePoller{status: status}, enq, time.Second, 10)
		require.NoError(t, h.ProcessTask(context.Background(), pollTask(t, 0)))
		assert.Empty(t, enq.tasks, string(status))
	}
}

func TestPollGivesUpAtMaxPolls(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := NewWithdrawalPollHandler(&fakePoller{status: chain.TxStatusPending}, enq, time.Second, 5)

	require.NoError(t, h.ProcessTask(context.Background(), pollTask(t, 4)))
	assert.Empty(t, enq.tasks)
}

func TestPollDuplicateScheduleIgnored(t *testing.T) {
	enq := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}
	h := NewWithdrawalPollHandler(&fakePoller{status: chain.TxStatusPending}, enq, time.Second, 5)

	assert.NoError(t, h.ProcessTask(context.Background(), pollTask(t, 0)))
}

func TestPollErrors(t *testing.T) {
	h := NewWithdrawalPollHandler(&fakePoller{err: errno.ErrWithdrawalNotFound}, &fakeEnqueuer{}, time.Second, 5)
	err := h.ProcessTask(context.Background(), pollTask(t, 0))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	rpcErr := errors.New("rpc timeout")
	h = NewWithdrawalPollHandler(&fakePoller{err: rpcErr}, &fakeEnqueuer{}, time.Second, 5)
	err = h.ProcessTask(context.Background(), pollTask(t, 0))
	assert.ErrorIs(t, err, rpcErr)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	bad := asynq.NewTask(TypeWithdrawalPoll, []byte("{"))
	err = h.ProcessTask(context.Background(), bad)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
