package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

type recordingReporter struct {
	mu    sync.Mutex
	calls [][2]int64
}

func (r *recordingReporter) ReportChatLink(_ context.Context, telegramID, chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]int64{telegramID, chatID})
}

func command(text string, fromID, chatID int64, chatType string) tgbotapi.Update {
	m := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: fromID, FirstName: "Ann"},
		Chat: &tgbotapi.Chat{ID: chatID, Type: chatType},
	}
	if len(text) > 0 && text[0] == '/' {
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: m}
}

func TestStartHandler_CanHandle(t *testing.T) {
	h := NewStartHandler(&recordingReporter{}, "")

	assert.True(t, h.CanHandle(command("/start", 1, 1, "private")))
	assert.False(t, h.CanHandle(command("/help", 1, 1, "private")))
	assert.False(t, h.CanHandle(command("hello", 1, 1, "private")))
	assert.False(t, h.CanHandle(tgbotapi.Update{}))
	assert.False(t, h.CanHandle(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{Data: "x"}}))
}

func TestDispatch_StartReportsAndGreets(t *testing.T) {
	reporter := &recordingReporter{}
	sender := &fakeSender{}
	b := NewWithSender(sender)
	b.RegisterHandler(NewStartHandler(reporter, "https://t.me/market_bot/app"))
	b.RegisterHandler(NewLinkHandler(reporter))

	require.True(t, b.Dispatch(context.Background(), command("/start", 42, 4200, "private")))

	assert.Equal(t, [][2]int64{{42, 4200}}, reporter.calls)
	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(4200), msg.ChatID)
	assert.Contains(t, msg.Text, "Ann")
	assert.NotNil(t, msg.ReplyMarkup)
}

func TestDispatch_SendFailureIsSwallowed(t *testing.T) {
	reporter := &recordingReporter{}
	b := NewWithSender(&fakeSender{err: errors.New("forbidden: bot was blocked by the user")})
	b.RegisterHandler(NewStartHandler(reporter, ""))

	assert.True(t, b.Dispatch(context.Background(), command("/start", 42, 4200, "private")))
	assert.Len(t, reporter.calls, 1)
}

func TestDispatch_PlainMessageLinksOnlyPrivateChats(t *testing.T) {
	reporter := &recordingReporter{}
	sender := &fakeSender{}
	b := NewWithSender(sender)
	b.RegisterHandler(NewStartHandler(reporter, ""))
	b.RegisterHandler(NewLinkHandler(reporter))

	assert.True(t, b.Dispatch(context.Background(), command("hi", 7, 70, "private")))
	assert.False(t, b.Dispatch(context.Background(), command("hi", 7, -100, "supergroup")))
	assert.False(t, b.Dispatch(context.Background(), tgbotapi.Update{}))

	assert.Equal(t, [][2]int64{{7, 70}}, reporter.calls)
	assert.Empty(t, sender.sent)
}

func TestHTTPReporter(t *testing.T) {
	var (
		mu   sync.Mutex
		got  chatLinkBody
		hdr  string
		code = http.StatusOK
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		hdr = r.Header.Get(secretHeader)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"linked":true}`))
	}))
	defer srv.Close()

	r := NewHTTPReporter(srv.URL, "s3cret", srv.Client())
	r.ReportChatLink(context.Background(), 42, 4200)

	mu.Lock()
	assert.Equal(t, chatLinkBody{TelegramID: 42, TelegramChatID: 4200}, got)
	assert.Equal(t, "s3cret", hdr)
	code = http.StatusInternalServerError
	mu.Unlock()

	// non-2xx must not panic or block
	r.ReportChatLink(context.Background(), 42, 4200)

	srv.Close()
	r.ReportChatLink(context.Background(), 42, 4200)
}

func TestStreamReporter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	NewStreamReporter(rdb, "bot:events").ReportChatLink(context.Background(), 42, 4200)

	msgs, err := rdb.XRange(context.Background(), "bot:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "chat_linked", msgs[0].Values["type"])
	assert.Equal(t, "42", msgs[0].Values["telegram_id"])
	assert.Equal(t, "4200", msgs[0].Values["chat_id"])

	mr.Close()
	NewStreamReporter(rdb, "bot:events").ReportChatLink(context.Background(), 1, 2)
}
