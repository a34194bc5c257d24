package workers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type link struct{ telegramID, chatID int64 }

type fakeLinker struct {
	mu    sync.Mutex
	links []link
	err   error
}

func (f *fakeLinker) LinkChat(_ context.Context, telegramID, chatID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.links = append(f.links, link{telegramID, chatID})
	return true, nil
}

func setupWorker(t *testing.T, linker ChatLinker) (*ChatLinkStreamWorker, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewChatLinkStreamWorker(rdb, linker, "test"), rdb
}

func publish(t *testing.T, rdb *goredis.Client, values map[string]interface{}) {
	t.Helper()
	require.NoError(t, rdb.XAdd(context.Background(), &goredis.XAddArgs{Stream: StreamKey, Values: values}).Err())
}

func TestPoll_LinksChat(t *testing.T) {
	linker := &fakeLinker{}
	w, rdb := setupWorker(t, linker)
	ctx := context.Background()

	// published before the group exists
	publish(t, rdb, map[string]interface{}{"type": EventChatLinked, "telegram_id": "42", "chat_id": "4200"})
	require.NoError(t, w.EnsureGroup(ctx))
	require.NoError(t, w.EnsureGroup(ctx), "second call must tolerate BUSYGROUP")

	publish(t, rdb, map[string]interface{}{"type": "bot_removed", "channel_id": "-100"})
	publish(t, rdb, map[string]interface{}{"type": EventChatLinked, "telegram_id": "oops", "chat_id": "1"})

	acked, err := w.Poll(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 3, acked)
	assert.Equal(t, []link{{42, 4200}}, linker.links)

	acked, err = w.Poll(ctx, -1)
	require.NoError(t, err)
	assert.Zero(t, acked)
}

func TestPoll_StorageFailureLeavesPending(t *testing.T) {
	linker := &fakeLinker{err: errors.New("storage down")}
	w, rdb := setupWorker(t, linker)
	ctx := context.Background()
	require.NoError(t, w.EnsureGroup(ctx))

	publish(t, rdb, map[string]interface{}{"type": EventChatLinked, "telegram_id": "7", "chat_id": "70"})

	acked, err := w.Poll(ctx, -1)
	require.NoError(t, err)
	assert.Zero(t, acked)

	pending, err := rdb.XPending(ctx, StreamKey, consumerGroup).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestStart_StopsOnCancel(t *testing.T) {
	w, _ := setupWorker(t, &fakeLinker{})
	w.block = -1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()
	<-done
}

func TestRetryPending_AfterRestart(t *testing.T) {
	down := &fakeLinker{err: errors.New("storage down")}
	w, rdb := setupWorker(t, down)
	ctx := context.Background()
	require.NoError(t, w.EnsureGroup(ctx))

	publish(t, rdb, map[string]interface{}{"type": EventChatLinked, "telegram_id": "7", "chat_id": "70"})
	acked, err := w.Poll(ctx, -1)
	require.NoError(t, err)
	require.Zero(t, acked)

	// same consumer name, storage back
	up := &fakeLinker{}
	restarted := NewChatLinkStreamWorker(rdb, up, "test")

	acked, err = restarted.Poll(ctx, -1)
	require.NoError(t, err)
	assert.Zero(t, acked, "new entries only")

	acked, err = restarted.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	assert.Equal(t, []link{{7, 70}}, up.links)

	pending, err := rdb.XPending(ctx, StreamKey, consumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestRetryPending_ClaimsIdleEntriesOfOtherConsumers(t *testing.T) {
	w, rdb := setupWorker(t, &fakeLinker{err: errors.New("storage down")})
	ctx := context.Background()
	require.NoError(t, w.EnsureGroup(ctx))

	publish(t, rdb, map[string]interface{}{"type": EventChatLinked, "telegram_id": "8", "chat_id": "80"})
	_, err := w.Poll(ctx, -1)
	require.NoError(t, err)

	up := &fakeLinker{}
	other := NewChatLinkStreamWorker(rdb, up, "worker_2")
	other.claimIdle = 0

	acked, err := other.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	assert.Equal(t, []link{{8, 80}}, up.links)

	pending, err := rdb.XPending(ctx, StreamKey, consumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestRetryPending_StillFailingStaysPending(t *testing.T) {
	w, rdb := setupWorker(t, &fakeLinker{err: errors.New("storage down")})
	ctx := context.Background()
	require.NoError(t, w.EnsureGroup(ctx))

	publish(t, rdb, map[string]interface{}{"type": EventChatLinked, "telegram_id": "9", "chat_id": "90"})
	_, err := w.Poll(ctx, -1)
	require.NoError(t, err)

	acked, err := w.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)

	pending, err := rdb.XPending(ctx, StreamKey, consumerGroup).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}
