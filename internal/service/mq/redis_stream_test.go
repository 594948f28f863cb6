package mq

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisProducerPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisProducer(client, 1000)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "wallet_events_withdrawal_settled", "user-1", []byte(`{"status":"confirmed"}`)))
	require.NoError(t, p.Publish(ctx, "wallet_events_withdrawal_settled", "user-2", []byte(`{"status":"failed"}`)))

	msgs, err := client.XRange(ctx, "wallet_events_withdrawal_settled", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user-1", msgs[0].Values["key"])
	assert.Equal(t, `{"status":"confirmed"}`, msgs[0].Values["payload"])
	assert.Equal(t, "user-2", msgs[1].Values["key"])
	assert.NoError(t, p.Close())
}

func TestRedisProducerUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	err := NewRedisProducer(client, 0).Publish(context.Background(), "t", "k", []byte("x"))
	assert.ErrorContains(t, err, "redis xadd error")
}
