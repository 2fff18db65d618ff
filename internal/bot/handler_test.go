package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
	"github.com/romanzzaa/red-pencil-promo/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type fakeAPI struct {
	updates chan tgbotapi.Update
	replies []string
	stopped int
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped++ }

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.replies = append(f.replies, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

type fakeStatus struct {
	items map[string]usecase.ItemStatus
	err   error
}

func (f *fakeStatus) Status(sku string, _ time.Time) (usecase.ItemStatus, error) {
	if f.err != nil {
		return usecase.ItemStatus{}, f.err
	}
	st, ok := f.items[sku]
	if !ok {
		return usecase.ItemStatus{}, usecase.ErrUnknownItem
	}
	return st, nil
}

type fakeWatcher struct {
	watched []string
	err     error
}

func (f *fakeWatcher) Watch(skus []string) error {
	f.watched = append(f.watched, skus...)
	return f.err
}

func command(text string) *tgbotapi.Message {
	n := strings.IndexByte(text, ' ')
	if n < 0 {
		n = len(text)
	}
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 7},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}
}

func newTestHandler(status *fakeStatus, watcher *fakeWatcher) (*Handler, *fakeAPI) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	h := NewHandler(api, status, watcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return now }
	return h, api
}

func TestStatusWithActivePromo(t *testing.T) {
	promo := domain.Promotion{
		BaselinePrice: decimal.NewFromInt(100),
		ExpiresAt:     now.Add(10 * 24 * time.Hour),
	}
	status := &fakeStatus{items: map[string]usecase.ItemStatus{
		"SKU-1": {SKU: "SKU-1", Price: decimal.NewFromInt(75), UpdatedAt: now, Active: true, Promotion: &promo},
	}}
	h, api := newTestHandler(status, &fakeWatcher{})

	h.handleMessage(context.Background(), command("/status SKU-1"))
	require.Len(t, api.replies, 1)
	assert.Equal(t,
		"SKU-1: 75\nUpdated: 2026-04-01T10:00:00Z\n🔴 Red pencil promo: -25% from 100 until 2026-04-11T10:00:00Z",
		api.replies[0])
}

func TestStatusWithoutPromo(t *testing.T) {
	status := &fakeStatus{items: map[string]usecase.ItemStatus{
		"SKU-2": {SKU: "SKU-2", Price: decimal.NewFromInt(40), UpdatedAt: now},
	}}
	h, api := newTestHandler(status, &fakeWatcher{})

	h.handleMessage(context.Background(), command("/status SKU-2"))
	require.Len(t, api.replies, 1)
	assert.True(t, strings.HasSuffix(api.replies[0], "No active promo"))
}

func TestStatusErrors(t *testing.T) {
	h, api := newTestHandler(&fakeStatus{}, &fakeWatcher{})
	h.handleMessage(context.Background(), command("/status"))
	h.handleMessage(context.Background(), command("/status SKU-9"))
	require.Len(t, api.replies, 2)
	assert.Equal(t, "Usage: /status <SKU>", api.replies[0])
	assert.Contains(t, api.replies[1], "No prices seen for SKU-9")

	h, api = newTestHandler(&fakeStatus{err: errors.New("boom")}, &fakeWatcher{})
	h.handleMessage(context.Background(), command("/status SKU-1"))
	assert.Equal(t, []string{"⚠️ Status lookup failed."}, api.replies)
}

func TestWatch(t *testing.T) {
	w := &fakeWatcher{}
	h, api := newTestHandler(&fakeStatus{}, w)

	h.handleMessage(context.Background(), command("/watch SKU-1 SKU-2"))
	assert.Equal(t, []string{"SKU-1", "SKU-2"}, w.watched)
	assert.Equal(t, []string{"✅ Watching SKU-1, SKU-2"}, api.replies)

	h.handleMessage(context.Background(), command("/watch"))
	assert.Equal(t, "Usage: /watch <SKU> [SKU...]", api.replies[1])

	w.err = errors.New("offline")
	h.handleMessage(context.Background(), command("/watch SKU-3"))
	assert.Equal(t, "⚠️ Failed to subscribe.", api.replies[2])
}

func TestNonCommandAndUnknown(t *testing.T) {
	h, api := newTestHandler(&fakeStatus{}, &fakeWatcher{})

	h.handleMessage(context.Background(), &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}, Text: "hello"})
	h.handleMessage(context.Background(), command("/nope"))
	h.handleMessage(context.Background(), command("/start"))

	require.Len(t, api.replies, 3)
	assert.Contains(t, api.replies[0], "/status <SKU>")
	assert.True(t, strings.HasPrefix(api.replies[1], "Unknown command."))
	assert.Equal(t, helpText, api.replies[2])
}

func TestStartStopsOnCancel(t *testing.T) {
	h, api := newTestHandler(&fakeStatus{}, &fakeWatcher{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Start(ctx)
		close(done)
	}()

	api.updates <- tgbotapi.Update{Message: command("/help")}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
	assert.Equal(t, 1, api.stopped)
}

func TestStartReturnsWhenUpdatesClosed(t *testing.T) {
	h, api := newTestHandler(&fakeStatus{}, &fakeWatcher{})
	close(api.updates)

	h.Start(context.Background())
	assert.Equal(t, 0, api.stopped)
}
