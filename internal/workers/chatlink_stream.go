package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"marketplace-miniapp-backend/internal/common/logger"
)

const (
	StreamKey     = "bot:events"
	consumerGroup = "marketplace_backend_consumers"

	EventChatLinked = "chat_linked"
)

// ChatLinker attaches a bot chat id to a reconciled user.
type ChatLinker interface {
	LinkChat(ctx context.Context, telegramID, chatID int64) (bool, error)
}

// ChatLinkStreamWorker consumes chat link events published by the bot.
type ChatLinkStreamWorker struct {
	rdb      goredis.UniversalClient
	linker   ChatLinker
	consumer string
	block    time.Duration
	// How often unacknowledged entries are retried, and how long another
	// consumer's entry must sit idle before it is claimed.
	retryEvery time.Duration
	claimIdle  time.Duration
	log        zerolog.Logger
}

func NewChatLinkStreamWorker(rdb goredis.UniversalClient, linker ChatLinker, consumer string) *ChatLinkStreamWorker {
	if consumer == "" {
		consumer = "marketplace_worker_1"
	}
	return &ChatLinkStreamWorker{
		rdb:      rdb,
		linker:   linker,
		consumer:   consumer,
		block:      5 * time.Second,
		retryEvery: 30 * time.Second,
		claimIdle:  time.Minute,
		log:        logger.Component("chatlink_stream"),
	}
}

// EnsureGroup creates the consumer group. Events published before the group
// existed are still delivered.
func (w *ChatLinkStreamWorker) EnsureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, StreamKey, consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start begins listening to the Redis stream until ctx is cancelled.
func (w *ChatLinkStreamWorker) Start(ctx context.Context) {
	if err := w.EnsureGroup(ctx); err != nil {
		w.log.Error().Err(err).Msg("Error creating consumer group")
	}

	w.log.Info().Str("stream", StreamKey).Msg("Starting Redis stream worker")

	var lastRetry time.Time
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping Redis stream worker")
			return
		default:
		}

		if time.Since(lastRetry) >= w.retryEvery {
			lastRetry = time.Now()
			if n, err := w.RetryPending(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Error retrying pending entries")
			} else if n > 0 {
				w.log.Info().Int("acked", n).Msg("Pending chat links processed")
			}
		}

		if _, err := w.Poll(ctx, w.block); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Error reading from stream")
			time.Sleep(time.Second)
		}
	}
}

// Poll reads one batch of new entries and processes it. A negative block
// does not wait. It returns the number of acknowledged messages.
func (w *ChatLinkStreamWorker) Poll(ctx context.Context, block time.Duration) (int, error) {
	return w.read(ctx, ">", block)
}

// RetryPending processes entries that were delivered but never acknowledged:
// this consumer's own backlog first, then entries another consumer has left
// idle for longer than claimIdle.
func (w *ChatLinkStreamWorker) RetryPending(ctx context.Context) (int, error) {
	acked, err := w.read(ctx, "0", -1)
	if err != nil {
		return acked, err
	}

	start := "0-0"
	for {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
			Stream:   StreamKey,
			Group:    consumerGroup,
			Consumer: w.consumer,
			MinIdle:  w.claimIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return acked, nil
			}
			return acked, err
		}

		n, err := w.handle(ctx, msgs)
		acked += n
		if err != nil {
			return acked, err
		}
		if next == "" || next == "0-0" {
			return acked, nil
		}
		start = next
	}
}

func (w *ChatLinkStreamWorker) read(ctx context.Context, id string, block time.Duration) (int, error) {
	entries, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: w.consumer,
		Streams:  []string{StreamKey, id},
		Count:    10,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	acked := 0
	for _, stream := range entries {
		n, err := w.handle(ctx, stream.Messages)
		acked += n
		if err != nil {
			return acked, err
		}
	}
	return acked, nil
}

// handle acknowledges every message that processMessage accepts. The rest
// stay pending for RetryPending.
func (w *ChatLinkStreamWorker) handle(ctx context.Context, msgs []goredis.XMessage) (int, error) {
	acked := 0
	for _, msg := range msgs {
		if !w.processMessage(ctx, msg.Values) {
			continue
		}
		if err := w.rdb.XAck(ctx, StreamKey, consumerGroup, msg.ID).Err(); err != nil {
			return acked, err
		}
		acked++
	}
	return acked, nil
}

// processMessage reports whether the message may be acknowledged. Malformed
// and unrelated events are acknowledged and skipped; storage failures are not.
func (w *ChatLinkStreamWorker) processMessage(ctx context.Context, values map[string]interface{}) bool {
	eventType, _ := values["type"].(string)
	if eventType != EventChatLinked {
		return true
	}

	telegramID, err1 := parseID(values["telegram_id"])
	chatID, err2 := parseID(values["chat_id"])
	if err1 != nil || err2 != nil {
		w.log.Warn().Interface("values", values).Msg("Invalid chat_linked event")
		return true
	}

	linked, err := w.linker.LinkChat(ctx, telegramID, chatID)
	if err != nil {
		w.log.Error().Err(err).Int64("telegram_id", telegramID).Msg("Error linking chat")
		return false
	}
	w.log.Debug().Int64("telegram_id", telegramID).Bool("linked", linked).Msg("Processed chat_linked event")
	return true
}

func parseID(v interface{}) (int64, error) {
	s, _ := v.(string)
	return strconv.ParseInt(s, 10, 64)
}
