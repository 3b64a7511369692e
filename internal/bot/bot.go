package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"memeiq_bot/internal/config"
	"memeiq_bot/internal/logger"
	"memeiq_bot/internal/metrics"
	"memeiq_bot/internal/repository"
	"memeiq_bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of tgbotapi.BotAPI the handlers use; tests swap in a
// recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot runs the long-polling update loop and dispatches chat commands.
type Bot struct {
	api       sender
	tg        *tgbotapi.BotAPI
	cfg       *config.Config
	store     repository.UserStore
	analyzer  *service.Analyzer
	referrals *service.ReferralService
	stats     *service.StatsService
	log       *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New authorizes against Telegram and wires the handlers.
func New(cfg *config.Config, store repository.UserStore, analyzer *service.Analyzer,
	referrals *service.ReferralService, stats *service.StatsService) (*Bot, error) {

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "bot")
	log.Info("bot authorized", "username", tg.Self.UserName)

	b := newWithAPI(tg, cfg, store, analyzer, referrals, stats)
	b.tg = tg
	return b, nil
}

// newWithAPI wires a bot around any sender; used directly by tests.
func newWithAPI(api sender, cfg *config.Config, store repository.UserStore, analyzer *service.Analyzer,
	referrals *service.ReferralService, stats *service.StatsService) *Bot {

	return &Bot{
		api:       api,
		cfg:       cfg,
		store:     store,
		analyzer:  analyzer,
		referrals: referrals,
		stats:     stats,
		log:       logger.With("component", "bot"),
		stopCh:    make(chan struct{}),
	}
}

// Start runs the update loop until Stop is called.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(upd)
			}(update)
		}
	}
}

// Stop shuts the update loop down and waits for in-flight handlers.
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	if b.tg != nil {
		b.tg.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

// handleUpdate is the top-level dispatch. Panics are recovered here so one
// bad update can't take the service down.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic", "panic", r)
			if update.Message != nil {
				b.reply(update.Message.Chat.ID, "😕 Something went wrong. Please try again.")
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Free-text address auto-detection.
	if addr, ok := service.ExtractAddress(msg.Text); ok {
		b.recordCommand(ctx, "auto")
		metrics.CommandsTotal.WithLabelValues("auto").Inc()
		b.ensureUser(ctx, msg)
		b.runAnalysis(ctx, msg, addr, true)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	b.recordCommand(ctx, cmd)
	metrics.CommandsTotal.WithLabelValues(cmd).Inc()

	switch cmd {
	case "start":
		b.handleStart(ctx, msg)
	case "analyze", "quick":
		addr := strings.TrimSpace(msg.CommandArguments())
		b.ensureUser(ctx, msg)
		b.runAnalysis(ctx, msg, addr, false)
	case "watchlist":
		b.handleWatchlist(ctx, msg)
	case "stats":
		b.handleStats(ctx, msg)
	case "upgrade":
		b.handleUpgrade(ctx, msg)
	case "trending":
		b.handleTrending(ctx, msg)
	case "help":
		b.replyHTML(msg.Chat.ID, helpText)
	case "admin":
		b.handleAdmin(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

// runAnalysis sends the placeholder, runs the pipeline and edits the
// placeholder in place. Auto-detected errors delete the placeholder instead
// of editing, so casual chat is not spammed over false positives.
func (b *Bot) runAnalysis(ctx context.Context, msg *tgbotapi.Message, address string, auto bool) {
	placeholder, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "🔍 Analyzing token..."))
	if err != nil {
		b.log.Warn("placeholder send failed", "error", err)
		return
	}

	result, err := b.analyzer.Analyze(ctx, msg.From.ID, address)
	if err != nil {
		if auto {
			_, _ = b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, placeholder.MessageID))
			return
		}
		edit := tgbotapi.NewEditMessageText(msg.Chat.ID, placeholder.MessageID, b.analyzer.UserMessage(err))
		edit.ParseMode = tgbotapi.ModeHTML
		_, _ = b.api.Send(edit)
		return
	}

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, placeholder.MessageID, result.Text)
	edit.ParseMode = tgbotapi.ModeHTML
	keyboard := analysisKeyboard(result)
	edit.ReplyMarkup = &keyboard
	_, _ = b.api.Send(edit)
}

func analysisKeyboard(result *service.AnalysisResult) tgbotapi.InlineKeyboardMarkup {
	addr := result.Token.Address
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Watchlist", "watch:"+addr),
			tgbotapi.NewInlineKeyboardButtonData("🔔 Alert", "alert:"+addr),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📈 Chart", result.ChartURL),
			tgbotapi.NewInlineKeyboardButtonURL("🌐 Full Report", result.ReportURL),
		),
	)
}

// Notify implements service.Notifier for alert pings.
func (b *Bot) Notify(tgID int64, text string) {
	b.replyHTML(tgID, text)
}

func (b *Bot) ensureUser(ctx context.Context, msg *tgbotapi.Message) {
	_, created, err := b.store.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		b.log.Warn("user upsert failed", "tg_id", msg.From.ID, "error", err)
		return
	}
	if created {
		b.log.Info("new user", "tg_id", msg.From.ID)
	}
}

func (b *Bot) recordCommand(ctx context.Context, name string) {
	if err := b.store.RecordCommand(ctx, name); err != nil {
		b.log.Debug("command record failed", "command", name, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("send failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyHTML(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	if _, err := b.api.Send(m); err != nil {
		b.log.Warn("send failed", "chat_id", chatID, "error", err)
	}
}
