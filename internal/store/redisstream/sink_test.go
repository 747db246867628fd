package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodtherapist/backend/internal/model/chatlog"
)

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial("not-a-url://x", "chatlog")
	assert.Error(t, err)
}

func TestInsertWrapsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	sink := New(rdb, "")
	t.Cleanup(func() { _ = sink.Close() })

	err := sink.Insert(context.Background(), chatlog.Record{ID: "r1", UserMessage: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xadd chatlog")
	assert.Error(t, sink.Ping(context.Background()))
}
