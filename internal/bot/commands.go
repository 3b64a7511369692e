package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memeiq_bot/internal/domain"
	"memeiq_bot/internal/repository"
	"memeiq_bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	u, created, err := b.store.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		b.log.Warn("user upsert failed", "tg_id", msg.From.ID, "error", err)
		b.reply(msg.Chat.ID, "😕 Something went wrong. Please try again.")
		return
	}

	if created {
		if code := strings.TrimSpace(msg.CommandArguments()); code != "" {
			if referrer := b.referrals.Attach(ctx, u.TgID, code); referrer != nil {
				b.replyHTML(referrer.TgID,
					"🎉 Someone joined with your referral link!\nYou get <b>unlimited analyses for today</b>.")
			}
		}
	}

	b.replyHTML(msg.Chat.ID, welcomeText(msg.From.FirstName))
}

func (b *Bot) handleWatchlist(ctx context.Context, msg *tgbotapi.Message) {
	b.ensureUser(ctx, msg)

	u, err := b.store.Get(ctx, msg.From.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "😕 Something went wrong. Please try again.")
		return
	}

	if len(u.Watchlist) == 0 {
		b.replyHTML(msg.Chat.ID, "⭐ Your watchlist is empty.\nAnalyze a token and tap <b>⭐ Watchlist</b> to add it.")
		return
	}

	var sb strings.Builder
	sb.WriteString("⭐ <b>Your Watchlist</b>\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(u.Watchlist))
	for i, addr := range u.Watchlist {
		fmt.Fprintf(&sb, "%d. <code>%s</code>\n", i+1, addr)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Remove #%d", i+1), "unwatch:"+addr),
		))
	}
	sb.WriteString("\nSend any address again for a fresh analysis.")

	m := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(m); err != nil {
		b.log.Warn("send failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	b.ensureUser(ctx, msg)

	u, err := b.store.Get(ctx, msg.From.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "😕 Something went wrong. Please try again.")
		return
	}

	limit := "∞"
	if l := u.Tier.DailyLimit(b.analyzer.FreeLimit()); l >= 0 {
		limit = fmt.Sprintf("%d", l)
	}
	used := u.DailyCount
	if u.LastAnalysisDay != domain.DayKey(nowUTC()) {
		used = 0
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Your Stats</b>\n\n")
	fmt.Fprintf(&sb, "🎖 Tier: <b>%s</b>\n", u.Tier)
	fmt.Fprintf(&sb, "📅 Today: %d / %s analyses\n", used, limit)
	fmt.Fprintf(&sb, "🧠 All time: %d analyses\n", u.TotalCount)
	fmt.Fprintf(&sb, "⭐ Watchlist: %d tokens\n", len(u.Watchlist))
	fmt.Fprintf(&sb, "🤝 Referrals: %d\n\n", len(u.Referrals))
	fmt.Fprintf(&sb, "Invite friends for bonus days:\nhttps://t.me/%s?start=%s", b.cfg.BotUsername, u.ReferralCode)

	b.replyHTML(msg.Chat.ID, sb.String())
}

func (b *Bot) handleUpgrade(ctx context.Context, msg *tgbotapi.Message) {
	b.ensureUser(ctx, msg)
	b.replyHTML(msg.Chat.ID, fmt.Sprintf(upgradeText, b.analyzer.FreeLimit()))
}

func (b *Bot) handleTrending(ctx context.Context, msg *tgbotapi.Message) {
	b.ensureUser(ctx, msg)

	text, err := b.analyzer.Trending(ctx)
	if err != nil || text == "" {
		b.replyHTML(msg.Chat.ID, trendingFallback)
		return
	}
	b.replyHTML(msg.Chat.ID, text)
}

func (b *Bot) handleAdmin(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, "Unknown command. Try /help.")
		return
	}

	text, err := b.stats.AdminText(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, "😕 Stats unavailable right now.")
		return
	}

	if service.JWTEnabled() {
		if token, err := service.GenerateAdminToken(msg.From.ID); err == nil {
			text += fmt.Sprintf("\n🔗 Dashboard:\n%s/admin?token=%s", b.cfg.WebsiteURL, token)
		}
	}

	b.replyHTML(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, addr, ok := strings.Cut(cb.Data, ":")
	if !ok || cb.From == nil {
		return
	}

	var note string
	switch action {
	case "watch":
		err := b.store.AddToWatchlist(ctx, cb.From.ID, addr, b.cfg.FreeWatchlistCap)
		switch {
		case errors.Is(err, repository.ErrWatchlistFull):
			note = fmt.Sprintf("Watchlist full (%d max on free tier). /upgrade for more.", b.cfg.FreeWatchlistCap)
		case err != nil:
			note = "Could not update watchlist."
		default:
			note = "Added to your watchlist ⭐"
		}
	case "unwatch":
		if err := b.store.RemoveFromWatchlist(ctx, cb.From.ID, addr); err != nil {
			note = "Not on your watchlist."
		} else {
			note = "Removed from watchlist."
		}
	case "alert":
		err := b.store.AddAlert(ctx, repository.Alert{TgID: cb.From.ID, Address: addr, CreatedAt: nowUTC()})
		if err != nil {
			note = "Could not set alert."
		} else {
			note = "Alert set — you'll get a ping on big moves 🔔"
		}
	default:
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, note)); err != nil {
		b.log.Debug("callback answer failed", "error", err)
	}
}
