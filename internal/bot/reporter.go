package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"marketplace-miniapp-backend/internal/common/logger"
)

// Reporter delivers {telegramId, chatId} to the backend. Delivery failures
// are logged and swallowed; the link is retried on the user's next message.
type Reporter interface {
	ReportChatLink(ctx context.Context, telegramID, chatID int64)
}

const secretHeader = "X-Bot-Secret"

// HTTPReporter calls POST /api/updateUserChatId.
type HTTPReporter struct {
	url    string
	secret string
	client *http.Client
	log    zerolog.Logger
}

func NewHTTPReporter(url, secret string, client *http.Client) *HTTPReporter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPReporter{url: url, secret: secret, client: client, log: logger.Component("chatlink_reporter")}
}

type chatLinkBody struct {
	TelegramID     int64 `json:"telegramId"`
	TelegramChatID int64 `json:"telegramChatId"`
}

func (r *HTTPReporter) ReportChatLink(ctx context.Context, telegramID, chatID int64) {
	body, _ := json.Marshal(chatLinkBody{TelegramID: telegramID, TelegramChatID: chatID})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		r.log.Error().Err(err).Msg("build chat link request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set(secretHeader, r.secret)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("chat link callback failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.log.Warn().
			Int("status", resp.StatusCode).
			Int64("telegram_id", telegramID).
			Str("body", string(snippet)).
			Msg("chat link callback rejected")
		return
	}

	var out struct {
		Linked bool `json:"linked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && !out.Linked {
		r.log.Info().Int64("telegram_id", telegramID).Msg("user not registered yet, chat link dropped")
	}
}

// StreamReporter publishes chat_linked events to the bot:events stream.
type StreamReporter struct {
	rdb    goredis.UniversalClient
	stream string
	log    zerolog.Logger
}

func NewStreamReporter(rdb goredis.UniversalClient, stream string) *StreamReporter {
	return &StreamReporter{rdb: rdb, stream: stream, log: logger.Component("chatlink_reporter")}
}

func (r *StreamReporter) ReportChatLink(ctx context.Context, telegramID, chatID int64) {
	err := r.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: r.stream,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]interface{}{
			"type":        "chat_linked",
			"telegram_id": strconv.FormatInt(telegramID, 10),
			"chat_id":     strconv.FormatInt(chatID, 10),
		},
	}).Err()
	if err != nil {
		r.log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("publish chat link failed")
	}
}
