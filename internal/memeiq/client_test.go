package memeiq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const bonkAddress = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != bonkAddress {
			t.Errorf("address param = %q", got)
		}
		if got := r.Header.Get("X-Client"); got != clientID {
			t.Errorf("X-Client = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ok": true,
			"token": {
				"name": "Bonk", "symbol": "BONK",
				"price": 0.0000123, "marketCap": 850000000,
				"recommendation": "CAUTION",
				"scores": {"overall": 73}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	token, err := c.Analyze(context.Background(), bonkAddress)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if token.Name != "Bonk" || token.Symbol != "BONK" {
		t.Errorf("token = %s/%s", token.Name, token.Symbol)
	}
	if token.OverallScore() != 73 {
		t.Errorf("score = %d, want 73", token.OverallScore())
	}
	if token.Address != bonkAddress {
		t.Errorf("address not backfilled: %q", token.Address)
	}
}

func TestAnalyzeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), bonkAddress)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("got %v, want StatusError", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", statusErr.Status)
	}
}

func TestAnalyzeNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "token not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), bonkAddress)
	if !errors.Is(err, ErrTokenData) {
		t.Errorf("got %v, want ErrTokenData", err)
	}
}

func TestAnalyzeMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Analyze(context.Background(), bonkAddress); !errors.Is(err, ErrTokenData) {
		t.Errorf("got %v, want ErrTokenData", err)
	}
}

func TestAnalyzeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Analyze(context.Background(), bonkAddress); !errors.Is(err, ErrTokenData) {
		t.Errorf("got %v, want ErrTokenData", err)
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	// closed server: transport error, not a status error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Analyze(context.Background(), bonkAddress); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestTrending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/trending" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok": true, "tokens": [{"name": "Bonk", "symbol": "BONK", "price": 0.00001}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	tokens, err := c.Trending(context.Background())
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Symbol != "BONK" {
		t.Errorf("tokens = %+v", tokens)
	}
}
