package worker

import (
	"context"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 封装 Asynq Client
type Client struct {
	client    *asynq.Client
	pollDelay time.Duration
}

// NewClient 初始化 Client
// addr: "localhost:6379"
func NewClient(addr string, password string, db int, pollDelay time.Duration) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c, pollDelay: pollDelay}
}

// Enqueue 将任务推送到队列
func (c *Client) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.Enqueue(task, opts...)
}

func (c *Client) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, task, opts...)
}

// EnqueueConfirmation 提现广播后投递第一轮确认轮询
func (c *Client) EnqueueConfirmation(ctx context.Context, userID string, chainID chain.ID, txHash string) error {
	task, err := tasks.NewWithdrawalPollTask(tasks.WithdrawalPollPayload{
		UserID: userID,
		Chain:  chainID,
		TxHash: txHash,
	}, c.pollDelay)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue("critical"))
	return err
}

// Close 关闭客户端连接
func (c *Client) Close() error {
	return c.client.Close()
}
