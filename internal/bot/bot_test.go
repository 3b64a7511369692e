package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"memeiq_bot/internal/config"
	"memeiq_bot/internal/memeiq"
	"memeiq_bot/internal/metrics"
	"memeiq_bot/internal/repository"
	"memeiq_bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const bonkAddress = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

const tokenJSON = `{
	"ok": true,
	"token": {
		"name": "Bonk", "symbol": "BONK",
		"price": 0.0000123, "marketCap": 850000000,
		"recommendation": "CAUTION",
		"scores": {"overall": 73, "liquidity": 70, "volume": 80, "holders": 69}
	}
}`

// fakeAPI records everything the bot sends to Telegram.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	msgID    int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.msgID++
	return tgbotapi.Message{MessageID: f.msgID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if edit, ok := f.sent[i].(tgbotapi.EditMessageTextConfig); ok {
			return edit
		}
	}
	t.Fatal("no message edit recorded")
	return tgbotapi.EditMessageTextConfig{}
}

func newTestBot(t *testing.T, handler http.HandlerFunc, adminIDs ...int64) (*Bot, *fakeAPI, *repository.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BotUsername:      "MemeIQBot",
		WebsiteURL:       "https://meme-iq.vercel.app",
		FreeDailyLimit:   5,
		FreeWatchlistCap: 5,
		AdminTelegramIDs: adminIDs,
	}

	store := repository.NewMemoryStore()
	client := memeiq.NewClient(srv.URL, 5*time.Second)
	analyzer := service.NewAnalyzer(store, client, cfg.WebsiteURL, cfg.FreeDailyLimit)
	referrals := service.NewReferralService(store)
	stats := service.NewStatsService(store)

	api := &fakeAPI{}
	b := newWithAPI(api, cfg, store, analyzer, referrals, stats)
	return b, api, store
}

func userMessage(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: userID, UserName: "tester", FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmdLen := len(text)
		if i := strings.Index(text, " "); i > 0 {
			cmdLen = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	}
	return msg
}

func TestAnalyzeCommandEditsPlaceholder(t *testing.T) {
	b, api, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenJSON))
	})

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/analyze "+bonkAddress)})

	if len(api.sent) < 2 {
		t.Fatalf("sent %d messages, want placeholder + edit", len(api.sent))
	}
	placeholder, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok || !strings.Contains(placeholder.Text, "Analyzing") {
		t.Errorf("first send = %+v, want placeholder", api.sent[0])
	}

	edit := api.lastEdit(t)
	for _, want := range []string{"Bonk", "BONK", "73/100", "⚠️"} {
		if !strings.Contains(edit.Text, want) {
			t.Errorf("edited message missing %q", want)
		}
	}
	if edit.ReplyMarkup == nil || len(edit.ReplyMarkup.InlineKeyboard) != 2 {
		t.Error("expected two rows of inline buttons")
	}

	u, _ := store.Get(context.Background(), 1)
	if u.DailyCount != 1 {
		t.Errorf("DailyCount = %d, want 1", u.DailyCount)
	}
}

func TestAnalyzeRemoteErrorShowsRetryHint(t *testing.T) {
	b, api, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/analyze "+bonkAddress)})

	edit := api.lastEdit(t)
	if !strings.Contains(edit.Text, "try again") {
		t.Errorf("error edit = %q, want retry hint", edit.Text)
	}

	u, _ := store.Get(context.Background(), 1)
	if u.DailyCount != 0 {
		t.Errorf("DailyCount after failure = %d, want 0", u.DailyCount)
	}
}

func TestAutoDetectAnalyzesEmbeddedAddress(t *testing.T) {
	var calls atomic.Int64
	b, api, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("address"); got != bonkAddress {
			t.Errorf("address param = %q, want matched substring only", got)
		}
		w.Write([]byte(tokenJSON))
	})
	autoBefore := testutil.ToFloat64(metrics.CommandsTotal.WithLabelValues("auto"))

	// must create the user first: auto-detection has no /start guarantee
	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/start")})
	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "yo is "+bonkAddress+" a rug?")})

	if calls.Load() != 1 {
		t.Errorf("API calls = %d, want exactly 1", calls.Load())
	}
	edit := api.lastEdit(t)
	if !strings.Contains(edit.Text, "Bonk") {
		t.Errorf("edit text = %q", edit.Text)
	}

	// auto-detected analyses count like explicit commands
	autoAfter := testutil.ToFloat64(metrics.CommandsTotal.WithLabelValues("auto"))
	if autoAfter-autoBefore != 1 {
		t.Errorf("auto command counter moved by %v, want 1", autoAfter-autoBefore)
	}
}

func TestAutoDetectDeletesPlaceholderOnError(t *testing.T) {
	b, api, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/start")})
	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "check "+bonkAddress)})

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, c := range api.sent {
		if _, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			t.Error("auto-detect error must not edit the placeholder")
		}
	}
	deleted := false
	for _, c := range api.requests {
		if _, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			deleted = true
		}
	}
	if !deleted {
		t.Error("placeholder was not deleted")
	}
}

func TestStartAttachesReferral(t *testing.T) {
	b, api, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenJSON))
	})
	ctx := context.Background()

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/start")})
	alice, _ := store.Get(ctx, 1)

	b.handleUpdate(tgbotapi.Update{Message: userMessage(2, "/start "+alice.ReferralCode)})

	bob, _ := store.Get(ctx, 2)
	if bob.ReferredBy != 1 {
		t.Errorf("ReferredBy = %d, want 1", bob.ReferredBy)
	}

	// referrer got a bonus notification
	api.mu.Lock()
	defer api.mu.Unlock()
	notified := false
	for _, c := range api.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == 1 && strings.Contains(m.Text, "referral") {
			notified = true
		}
	}
	if !notified {
		t.Error("referrer was not notified")
	}
}

func TestAdminCommandAllowList(t *testing.T) {
	b, api, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenJSON))
	}, 99)

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/admin")})

	api.mu.Lock()
	last := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	api.mu.Unlock()
	if !strings.Contains(last.Text, "Unknown command") {
		t.Errorf("non-admin got %q", last.Text)
	}

	b.handleUpdate(tgbotapi.Update{Message: userMessage(99, "/admin")})

	api.mu.Lock()
	last = api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	api.mu.Unlock()
	if !strings.Contains(last.Text, "MemeIQ Admin") {
		t.Errorf("admin got %q", last.Text)
	}
}

func TestWatchlistCallback(t *testing.T) {
	b, _, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenJSON))
	})
	ctx := context.Background()

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/start")})
	b.handleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 1},
		Data: "watch:" + bonkAddress,
	}})

	u, _ := store.Get(ctx, 1)
	if len(u.Watchlist) != 1 || u.Watchlist[0] != bonkAddress {
		t.Errorf("watchlist = %v", u.Watchlist)
	}

	b.handleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb2",
		From: &tgbotapi.User{ID: 1},
		Data: "unwatch:" + bonkAddress,
	}})

	u, _ = store.Get(ctx, 1)
	if len(u.Watchlist) != 0 {
		t.Errorf("watchlist after unwatch = %v", u.Watchlist)
	}
}

func TestStatsShowsUsageAndReferralLink(t *testing.T) {
	b, api, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenJSON))
	})

	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/analyze "+bonkAddress)})
	b.handleUpdate(tgbotapi.Update{Message: userMessage(1, "/stats")})

	api.mu.Lock()
	last := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	api.mu.Unlock()

	if !strings.Contains(last.Text, "1 / 5") {
		t.Errorf("stats text missing usage: %q", last.Text)
	}
	if !strings.Contains(last.Text, "t.me/MemeIQBot?start=") {
		t.Errorf("stats text missing referral link: %q", last.Text)
	}
}
