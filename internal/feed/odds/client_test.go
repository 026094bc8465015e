package odds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

func TestSpreads(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"game_id":"g1","side":"home","line":-6.5,"price":-110,"book":"circa"},
			{"game_id":"g2","side":"home","line":3.0,"price":-105,"book":"circa"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", WithRateLimit(1000, 10))
	lines, err := c.Spreads(context.Background(), model.LeagueNFL)
	if err != nil {
		t.Fatalf("Spreads: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].GameID != "g1" || lines[0].Line != -6.5 || lines[0].Side != model.SideHome {
		t.Errorf("first line = %+v", lines[0])
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQuery != "league=NFL&market=spread" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestGameSpread_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRateLimit(1000, 10))
	_, err := c.GameSpread(context.Background(), "missing")
	var nf *model.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestGet_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", WithRateLimit(1000, 10))
	if _, err := c.Spreads(context.Background(), model.LeagueNFL); err == nil {
		t.Fatal("want error on 429 response")
	}
}
