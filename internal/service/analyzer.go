package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"memeiq_bot/internal/domain"
	"memeiq_bot/internal/format"
	"memeiq_bot/internal/logger"
	"memeiq_bot/internal/memeiq"
	"memeiq_bot/internal/metrics"
	"memeiq_bot/internal/repository"
)

// ErrInvalidAddress is a user-correctable input error; no remote call is
// made and no quota is consumed.
var ErrInvalidAddress = errors.New("invalid address format")

// AnalysisAPI is the slice of the MemeIQ client the analyzer needs.
type AnalysisAPI interface {
	Analyze(ctx context.Context, address string) (*domain.TokenAnalysis, error)
	Trending(ctx context.Context) ([]domain.TrendingToken, error)
}

// AnalysisResult is a rendered analysis plus the links the bot attaches as
// inline buttons.
type AnalysisResult struct {
	Token     *domain.TokenAnalysis
	Text      string
	ChartURL  string
	ReportURL string
}

// Analyzer orchestrates one analysis: validate the address, reserve a quota
// slot, call the API, render, and commit or refund the slot.
type Analyzer struct {
	store      repository.UserStore
	api        AnalysisAPI
	websiteURL string
	freeLimit  int
	log        *slog.Logger

	now func() time.Time
}

func NewAnalyzer(store repository.UserStore, api AnalysisAPI, websiteURL string, freeLimit int) *Analyzer {
	return &Analyzer{
		store:      store,
		api:        api,
		websiteURL: websiteURL,
		freeLimit:  freeLimit,
		log:        logger.With("component", "analyzer"),
		now:        time.Now,
	}
}

// FreeLimit returns the configured free-tier daily quota.
func (a *Analyzer) FreeLimit() int { return a.freeLimit }

// Analyze runs the full pipeline for one address. The quota slot is
// reserved atomically before the remote call and released again if the call
// fails, so a failed analysis never consumes quota and two concurrent
// requests cannot slip past the limit together.
func (a *Analyzer) Analyze(ctx context.Context, tgID int64, address string) (*AnalysisResult, error) {
	if !ValidAddress(address) {
		metrics.AnalysesTotal.WithLabelValues("invalid_address").Inc()
		return nil, ErrInvalidAddress
	}

	now := a.now()
	if err := a.store.ReserveDailySlot(ctx, tgID, a.freeLimit, now); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			metrics.AnalysesTotal.WithLabelValues("quota_exceeded").Inc()
		}
		return nil, err
	}

	token, err := a.api.Analyze(ctx, address)
	if err != nil {
		if relErr := a.store.ReleaseDailySlot(ctx, tgID, now); relErr != nil {
			a.log.Warn("quota release failed", "tg_id", tgID, "error", relErr)
		}
		a.log.Warn("analysis failed", "address", address, "error", err)
		metrics.AnalysesTotal.WithLabelValues("remote_error").Inc()
		return nil, err
	}

	if err := a.store.CommitAnalysis(ctx, tgID, now); err != nil {
		a.log.Warn("analysis commit failed", "tg_id", tgID, "error", err)
	}
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()

	return &AnalysisResult{
		Token:     token,
		Text:      format.Analysis(token),
		ChartURL:  format.ChartURL(token.Address),
		ReportURL: format.ReportURL(a.websiteURL, token.Address),
	}, nil
}

// Trending fetches and renders the trending feed.
func (a *Analyzer) Trending(ctx context.Context) (string, error) {
	tokens, err := a.api.Trending(ctx)
	if err != nil || len(tokens) == 0 {
		return "", err
	}
	return format.TrendingList(tokens), nil
}

// UserMessage converts an analysis error into the chat text shown to the
// user. Nothing from the error taxonomy escapes the bot as a raw error.
func (a *Analyzer) UserMessage(err error) string {
	var statusErr *memeiq.StatusError
	switch {
	case errors.Is(err, ErrInvalidAddress):
		return "❌ That doesn't look like a Solana token address.\nAddresses are 32-44 Base58 characters, e.g.\n<code>DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263</code>"
	case errors.Is(err, repository.ErrQuotaExceeded):
		return fmt.Sprintf("🚫 Daily limit reached (%d free analyses per day).\nUse /upgrade for unlimited access, or come back tomorrow.", a.freeLimit)
	case errors.As(err, &statusErr):
		return "😕 Analysis failed. The service hiccuped — please try again in a moment."
	case errors.Is(err, memeiq.ErrTokenData):
		return "🔍 Token not found. It may be too new or have no liquidity yet."
	case errors.Is(err, memeiq.ErrUnavailable):
		return "⏱ The analysis service timed out. Please try again shortly."
	default:
		return "😕 Something went wrong. Please try again."
	}
}
