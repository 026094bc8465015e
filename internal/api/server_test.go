package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/decay"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/edge"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/evaluate"
	enginemetrics "github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/metrics"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/ratings"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/signalagg"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/staking"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/tracker"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/stream"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/teams"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()
	store := ratings.NewMemoryStore()
	policy := staking.NewPolicy(nil)
	track := tracker.New(nil)
	track.OnSettle(policy.Portfolio().Release)

	srv := NewServer(Deps{
		Log:      log,
		Store:    store,
		Updater:  ratings.NewUpdater(store, nil),
		Engine:   evaluate.New(store, signalagg.New(decay.New(nil)), edge.NewCalculator(nil), nil),
		Policy:   policy,
		Tracker:  track,
		Resolver: teams.NewResolver(),
		Hub:      stream.NewHub(log),
		Metrics:  enginemetrics.New(),
		Bankroll: decimal.NewFromInt(10000),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp
}

func registerTeams(t *testing.T, ts *httptest.Server) {
	t.Helper()
	for _, id := range []string{"KC", "BUF"} {
		resp := post(t, ts, "/v1/teams", registerTeamRequest{
			Team: model.Team{ID: id, League: model.LeagueNFL, Name: id},
		}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("register %s: status %d", id, resp.StatusCode)
		}
	}
}

func TestFullBetLifecycle(t *testing.T) {
	ts := newTestServer(t)
	registerTeams(t, ts)

	// A lopsided week 9 result moves the ratings apart.
	var snaps map[string]model.PowerRatingSnapshot
	resp := post(t, ts, "/v1/results", model.GameResult{
		GameID: "g0", League: model.LeagueNFL, Season: 2025, Week: 9,
		HomeTeamID: "KC", AwayTeamID: "BUF", HomeScore: 45, AwayScore: 3,
	}, &snaps)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results: status %d", resp.StatusCode)
	}
	if snaps["home"].Rating <= snaps["away"].Rating {
		t.Fatalf("home rating %v not above away %v", snaps["home"].Rating, snaps["away"].Rating)
	}

	// The market has not caught up, so the evaluation is playable.
	var ev model.Evaluation
	resp = post(t, ts, "/v1/evaluations", evaluateRequest{
		GameID: "g1", League: model.LeagueNFL, Season: 2025, Week: 10,
		HomeTeamID: "KC", AwayTeamID: "BUF",
		Market: model.MarketLine{GameID: "g1", Side: model.SideHome, Line: 1.0, Price: -110},
	}, &ev)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("evaluations: status %d", resp.StatusCode)
	}
	if ev.State != model.EvalPlayable {
		t.Fatalf("state = %s, want PLAYABLE (edge %.1f)", ev.State, ev.EdgePercentage)
	}

	var rec model.BetRecommendation
	post(t, ts, "/v1/recommendations", recommendRequest{EvaluationID: ev.ID, Price: -110}, &rec)
	if !rec.IsPlay || rec.Stake.IsZero() {
		t.Fatalf("recommendation not a play: %+v", rec)
	}

	var bet model.TrackedBet
	post(t, ts, "/v1/bets", openBetRequest{RecommendationID: rec.ID}, &bet)
	if bet.ID == "" || bet.Result != model.BetPending {
		t.Fatalf("bet not opened: %+v", bet)
	}

	var clv map[string]float64
	post(t, ts, fmt.Sprintf("/v1/bets/%s/closing-line", bet.ID), closingLineRequest{ClosingLine: bet.Line - 1.5}, &clv)
	if clv["clv_points"] != 1.5 {
		t.Errorf("clv = %v, want 1.5", clv["clv_points"])
	}

	var settled struct {
		Result model.BetResult `json:"result"`
	}
	post(t, ts, fmt.Sprintf("/v1/bets/%s/result", bet.ID), betResultRequest{HomeScore: 35, AwayScore: 10}, &settled)
	if settled.Result != model.BetWin {
		t.Errorf("result = %s, want win", settled.Result)
	}

	// Settlement released the portfolio exposure via the OnSettle hook.
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	var health struct {
		OpenStakes int `json:"open_stakes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if health.OpenStakes != 0 {
		t.Errorf("open stakes = %d, want 0 after settlement", health.OpenStakes)
	}

	var perf struct {
		Overall tracker.Summary `json:"overall"`
	}
	resp, err = http.Get(ts.URL + "/v1/performance")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&perf); err != nil {
		t.Fatalf("decode performance: %v", err)
	}
	if perf.Overall.Wins != 1 || perf.Overall.Total != 1 {
		t.Errorf("performance = %+v, want one settled win", perf.Overall)
	}
}

func TestLosingSettlement(t *testing.T) {
	ts := newTestServer(t)
	registerTeams(t, ts)

	// With flat ratings a home line of +4.0 leaves a playable edge.
	var ev model.Evaluation
	post(t, ts, "/v1/evaluations", evaluateRequest{
		GameID: "g2", League: model.LeagueNFL, Season: 2025, Week: 10,
		HomeTeamID: "KC", AwayTeamID: "BUF",
		Market: model.MarketLine{GameID: "g2", Side: model.SideHome, Line: 4.0, Price: -110},
	}, &ev)
	if ev.State != model.EvalPlayable {
		t.Fatalf("state = %s, want PLAYABLE (edge %.1f)", ev.State, ev.EdgePercentage)
	}

	var rec model.BetRecommendation
	post(t, ts, "/v1/recommendations", recommendRequest{EvaluationID: ev.ID, Price: -110}, &rec)
	if !rec.IsPlay {
		t.Fatalf("recommendation not a play: %+v", rec)
	}
	var bet model.TrackedBet
	post(t, ts, "/v1/bets", openBetRequest{RecommendationID: rec.ID}, &bet)

	// Home loses by more than the 4 points taken: a graded loss must
	// settle cleanly, not blow up on the way into the metrics.
	var settled struct {
		Result     model.BetResult `json:"result"`
		ProfitLoss decimal.Decimal `json:"profit_loss"`
	}
	resp := post(t, ts, fmt.Sprintf("/v1/bets/%s/result", bet.ID), betResultRequest{HomeScore: 17, AwayScore: 24}, &settled)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("losing settlement: status %d, want 200", resp.StatusCode)
	}
	if settled.Result != model.BetLoss {
		t.Fatalf("result = %s, want loss", settled.Result)
	}
	if !settled.ProfitLoss.Equal(rec.Stake.Neg()) {
		t.Errorf("profit_loss = %s, want %s", settled.ProfitLoss, rec.Stake.Neg())
	}

	body := fetchMetrics(t, ts)
	for _, want := range []string{
		`walters_settlements_total{result="loss"} 1`,
		`walters_realized_pnl_usd{result="loss"} -`,
		`walters_open_bets 0`,
		`walters_signal_net_points_count{league="NFL"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func fetchMetrics(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read /metrics: %v", err)
	}
	return string(body)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	registerTeams(t, ts)

	// Unknown team on a result: 404.
	resp := post(t, ts, "/v1/results", model.GameResult{
		GameID: "gX", League: model.LeagueNFL, Season: 2025, Week: 1,
		HomeTeamID: "KC", AwayTeamID: "LV",
	}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown team: status %d, want 404", resp.StatusCode)
	}

	// Negative score: 400.
	resp = post(t, ts, "/v1/results", model.GameResult{
		GameID: "gY", League: model.LeagueNFL, Season: 2025, Week: 1,
		HomeTeamID: "KC", AwayTeamID: "BUF", HomeScore: -1,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative score: status %d, want 400", resp.StatusCode)
	}

	// Missing evaluation: 404.
	resp = post(t, ts, "/v1/recommendations", recommendRequest{EvaluationID: "nope", Price: -110}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing evaluation: status %d, want 404", resp.StatusCode)
	}

	// Double settlement: 409.
	var ev model.Evaluation
	post(t, ts, "/v1/evaluations", evaluateRequest{
		GameID: "g1", League: model.LeagueNFL, Season: 2025, Week: 10,
		HomeTeamID: "KC", AwayTeamID: "BUF",
		Market: model.MarketLine{GameID: "g1", Side: model.SideHome, Line: 4.0, Price: -110},
	}, &ev)
	var rec model.BetRecommendation
	post(t, ts, "/v1/recommendations", recommendRequest{EvaluationID: ev.ID, Price: -110}, &rec)
	if !rec.IsPlay {
		t.Fatalf("setup rec not a play (state %s, edge unknown)", ev.State)
	}
	var bet model.TrackedBet
	post(t, ts, "/v1/bets", openBetRequest{RecommendationID: rec.ID}, &bet)
	post(t, ts, fmt.Sprintf("/v1/bets/%s/result", bet.ID), betResultRequest{HomeScore: 20, AwayScore: 24}, nil)
	resp = post(t, ts, fmt.Sprintf("/v1/bets/%s/result", bet.ID), betResultRequest{HomeScore: 20, AwayScore: 24}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double settlement: status %d, want 409", resp.StatusCode)
	}
}
