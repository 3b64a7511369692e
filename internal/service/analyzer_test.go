package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"memeiq_bot/internal/memeiq"
	"memeiq_bot/internal/repository"
)

const tokenJSON = `{
	"ok": true,
	"token": {
		"name": "Bonk", "symbol": "BONK",
		"price": 0.0000123, "marketCap": 850000000,
		"recommendation": "CAUTION",
		"scores": {"overall": 73, "liquidity": 70, "volume": 80, "holders": 69}
	}
}`

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) (*Analyzer, *repository.MemoryStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := repository.NewMemoryStore()
	if _, _, err := store.GetOrCreate(context.Background(), 1, "tester", "Test"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	client := memeiq.NewClient(srv.URL, 5*time.Second)
	a := NewAnalyzer(store, client, "https://meme-iq.vercel.app", 5)
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return a, store, srv
}

func TestAnalyzeSuccessConsumesOneSlot(t *testing.T) {
	a, store, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenJSON))
	})

	result, err := a.Analyze(context.Background(), 1, bonkAddress)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, want := range []string{"Bonk", "BONK", "73/100", "⚠️"} {
		if !strings.Contains(result.Text, want) {
			t.Errorf("rendered text missing %q", want)
		}
	}
	if !strings.Contains(result.ChartURL, bonkAddress) {
		t.Errorf("ChartURL = %q", result.ChartURL)
	}

	u, _ := store.Get(context.Background(), 1)
	if u.DailyCount != 1 {
		t.Errorf("DailyCount = %d, want 1", u.DailyCount)
	}
	if u.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", u.TotalCount)
	}
}

func TestAnalyzeRemoteFailureRefundsQuota(t *testing.T) {
	a, store, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := a.Analyze(context.Background(), 1, bonkAddress)
	var statusErr *memeiq.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("got %v, want StatusError", err)
	}

	u, _ := store.Get(context.Background(), 1)
	if u.DailyCount != 0 {
		t.Errorf("DailyCount after failure = %d, want 0", u.DailyCount)
	}
	if u.TotalCount != 0 {
		t.Errorf("TotalCount after failure = %d, want 0", u.TotalCount)
	}
}

func TestAnalyzeInvalidAddressSkipsAPI(t *testing.T) {
	var calls atomic.Int64
	a, store, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(tokenJSON))
	})

	_, err := a.Analyze(context.Background(), 1, "tooshort")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("got %v, want ErrInvalidAddress", err)
	}
	if calls.Load() != 0 {
		t.Errorf("API called %d times for invalid address", calls.Load())
	}

	u, _ := store.Get(context.Background(), 1)
	if u.DailyCount != 0 {
		t.Errorf("DailyCount = %d, want 0", u.DailyCount)
	}
}

func TestAnalyzeQuotaDenial(t *testing.T) {
	var calls atomic.Int64
	a, _, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(tokenJSON))
	})

	for i := 0; i < 5; i++ {
		if _, err := a.Analyze(context.Background(), 1, bonkAddress); err != nil {
			t.Fatalf("analyze %d: %v", i, err)
		}
	}

	_, err := a.Analyze(context.Background(), 1, bonkAddress)
	if !errors.Is(err, repository.ErrQuotaExceeded) {
		t.Fatalf("got %v, want ErrQuotaExceeded", err)
	}
	if calls.Load() != 5 {
		t.Errorf("API calls = %d, want 5 (denied request must not hit the API)", calls.Load())
	}
}

func TestUserMessageTaxonomy(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {})

	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidAddress, "address"},
		{repository.ErrQuotaExceeded, "/upgrade"},
		{&memeiq.StatusError{Status: 500}, "try again"},
		{memeiq.ErrTokenData, "not found"},
		{memeiq.ErrUnavailable, "timed out"},
		{errors.New("boom"), "went wrong"},
	}
	for _, c := range cases {
		got := a.UserMessage(c.err)
		if !strings.Contains(got, c.want) {
			t.Errorf("UserMessage(%v) = %q, want substring %q", c.err, got, c.want)
		}
	}
}

func TestTrendingRendersList(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true, "tokens": [{"name": "Bonk", "symbol": "BONK", "price": 0.00001}]}`))
	})

	text, err := a.Trending(context.Background())
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if !strings.Contains(text, "BONK") {
		t.Errorf("trending text = %q", text)
	}
}

func TestTrendingErrorFallsThrough(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	text, err := a.Trending(context.Background())
	if err == nil {
		t.Error("expected an error")
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}
