package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"memeiq_bot/internal/format"
	"memeiq_bot/internal/logger"
	"memeiq_bot/internal/repository"
)

// Notifier pushes a message to one user; implemented by the bot.
type Notifier interface {
	Notify(tgID int64, text string)
}

// AlertSweeper periodically re-checks alerted tokens and pings owners on
// big 24h moves. Sweeps are bounded so a long watch list cannot starve the
// update loop.
type AlertSweeper struct {
	store    repository.UserStore
	api      AnalysisAPI
	notifier Notifier
	log      *slog.Logger

	interval     time.Duration
	maxPerSweep  int
	thresholdPct float64

	// cursor rotates the sweep window so alerts past the per-sweep cap
	// still get checked on later sweeps. Touched only from the sweep
	// goroutine.
	cursor int

	stopCh chan struct{}
}

func NewAlertSweeper(store repository.UserStore, api AnalysisAPI, notifier Notifier) *AlertSweeper {
	return &AlertSweeper{
		store:        store,
		api:          api,
		notifier:     notifier,
		log:          logger.With("component", "alerts"),
		interval:     5 * time.Minute,
		maxPerSweep:  20,
		thresholdPct: 10,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the sweep ticker. Returns immediately.
func (s *AlertSweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *AlertSweeper) Stop() {
	close(s.stopCh)
}

func (s *AlertSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	alerts, err := s.store.Alerts(ctx)
	if err != nil {
		s.log.Warn("alert listing failed", "error", err)
		return
	}
	if n := len(alerts); n > s.maxPerSweep {
		start := s.cursor % n
		window := make([]repository.Alert, 0, s.maxPerSweep)
		for i := 0; i < s.maxPerSweep; i++ {
			window = append(window, alerts[(start+i)%n])
		}
		s.cursor = (start + s.maxPerSweep) % n
		alerts = window
	}

	for _, a := range alerts {
		token, err := s.api.Analyze(ctx, a.Address)
		if err != nil {
			s.log.Debug("alert check failed", "address", a.Address, "error", err)
			continue
		}
		if math.Abs(token.PriceChange24h) < s.thresholdPct {
			continue
		}

		text := fmt.Sprintf("🔔 <b>%s</b> moved %s\nPrice: %s\n\nSend the address again for a fresh analysis.",
			token.Symbol, format.Change(token.PriceChange24h), format.Price(token.Price))
		s.notifier.Notify(a.TgID, text)

		// one ping per alert, then it retires
		if err := s.store.RemoveAlert(ctx, a.TgID, a.Address); err != nil {
			s.log.Warn("alert removal failed", "tg_id", a.TgID, "address", a.Address, "error", err)
		}
	}
}
