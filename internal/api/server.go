// Package api exposes the wagering engine over HTTP: rating updates,
// evaluations, stake recommendations, and the bet lifecycle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/evaluate"
	enginemetrics "github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/metrics"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/ratings"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/staking"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/tracker"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/stream"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/teams"
)

// Server wires the engine components behind a chi router.
type Server struct {
	log      zerolog.Logger
	store    ratings.Store
	updater  *ratings.Updater
	engine   *evaluate.Engine
	policy   *staking.Policy
	tracker  *tracker.Tracker
	resolver *teams.Resolver
	hub      *stream.Hub
	metrics  *enginemetrics.EngineMetrics
	bankroll decimal.Decimal

	mu    sync.RWMutex
	evals map[string]*model.Evaluation
	recs  map[string]*model.BetRecommendation
}

// Deps carries the constructed engine components.
type Deps struct {
	Log      zerolog.Logger
	Store    ratings.Store
	Updater  *ratings.Updater
	Engine   *evaluate.Engine
	Policy   *staking.Policy
	Tracker  *tracker.Tracker
	Resolver *teams.Resolver
	Hub      *stream.Hub
	Metrics  *enginemetrics.EngineMetrics
	Bankroll decimal.Decimal
}

// NewServer creates the API server.
func NewServer(d Deps) *Server {
	return &Server{
		log:      d.Log.With().Str("component", "api").Logger(),
		store:    d.Store,
		updater:  d.Updater,
		engine:   d.Engine,
		policy:   d.Policy,
		tracker:  d.Tracker,
		resolver: d.Resolver,
		hub:      d.Hub,
		metrics:  d.Metrics,
		bankroll: d.Bankroll,
		evals:    make(map[string]*model.Evaluation),
		recs:     make(map[string]*model.BetRecommendation),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	r.Get("/ws", s.hub.ServeWS)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/teams", s.handleRegisterTeam)
		r.Get("/teams/resolve", s.handleResolveTeam)

		r.Post("/results", s.handleGameResult)
		r.Get("/ratings/{teamID}", s.handleRatingHistory)

		r.Post("/evaluations", s.handleEvaluate)
		r.Get("/evaluations/{id}", s.handleGetEvaluation)

		r.Post("/recommendations", s.handleRecommend)

		r.Post("/bets", s.handleOpenBet)
		r.Get("/bets/{id}", s.handleGetBet)
		r.Post("/bets/{id}/closing-line", s.handleClosingLine)
		r.Post("/bets/{id}/result", s.handleBetResult)

		r.Get("/performance", s.handlePerformance)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"ws_clients":   s.hub.ClientCount(),
		"open_stakes":  s.policy.Portfolio().OpenCount(),
		"checked_at":   time.Now().UTC(),
		"service_name": "walterd",
	})
}

type registerTeamRequest struct {
	Team         model.Team `json:"team"`
	Abbreviation string     `json:"abbreviation"`
	Aliases      []string   `json:"aliases"`
}

func (s *Server) handleRegisterTeam(w http.ResponseWriter, r *http.Request) {
	var req registerTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}
	if err := s.store.RegisterTeam(r.Context(), req.Team); err != nil {
		writeError(w, err)
		return
	}
	if err := s.resolver.Register(teams.Entry{
		Team:         req.Team,
		Abbreviation: req.Abbreviation,
		Aliases:      req.Aliases,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req.Team)
}

func (s *Server) handleResolveTeam(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	team, ok := s.resolver.Resolve(ref)
	if !ok {
		writeError(w, model.NotFound("team", ref))
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleGameResult(w http.ResponseWriter, r *http.Request) {
	var result model.GameResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}

	home, away, err := s.updater.Apply(r.Context(), result)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, snap := range []model.PowerRatingSnapshot{home, away} {
		s.metrics.RecordRatingUpdate(string(snap.League))
		s.hub.BroadcastRating(snap)
	}
	s.log.Info().Str("game_id", result.GameID).
		Float64("home_rating", home.Rating).Float64("away_rating", away.Rating).
		Msg("ratings updated")

	writeJSON(w, http.StatusOK, map[string]model.PowerRatingSnapshot{
		"home": home,
		"away": away,
	})
}

func (s *Server) handleRatingHistory(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	league := model.League(r.URL.Query().Get("league"))
	season := atoiDefault(r.URL.Query().Get("season"), 0)

	history, err := s.store.History(r.Context(), teamID, league, season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type evaluateRequest struct {
	GameID      string           `json:"game_id"`
	League      model.League     `json:"league"`
	Season      int              `json:"season"`
	Week        int              `json:"week"`
	HomeTeamID  string           `json:"home_team_id"`
	AwayTeamID  string           `json:"away_team_id"`
	NeutralSite bool             `json:"neutral_site"`
	Signals     []model.Signal   `json:"signals"`
	Market      model.MarketLine `json:"market"`
	AsOf        time.Time        `json:"as_of"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now().UTC()
	}

	ev, err := s.engine.Evaluate(r.Context(), evaluate.Request{
		GameID:      req.GameID,
		League:      req.League,
		Season:      req.Season,
		Week:        req.Week,
		HomeTeamID:  req.HomeTeamID,
		AwayTeamID:  req.AwayTeamID,
		NeutralSite: req.NeutralSite,
		Signals:     req.Signals,
		Market:      req.Market,
		AsOf:        req.AsOf,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.evals[ev.ID] = ev
	s.mu.Unlock()

	s.metrics.RecordEvaluation(string(ev.League), string(ev.State),
		ev.EdgePercentage, ev.PredictedLine-ev.MarketLine)
	eventTypes := make([]string, 0, len(req.Signals))
	for _, sig := range req.Signals {
		eventTypes = append(eventTypes, string(sig.EventType))
	}
	s.metrics.RecordSignals(string(ev.League), ev.NetSignalPoints, eventTypes)
	s.hub.BroadcastEvaluation(ev)
	s.log.Info().Str("game_id", ev.GameID).Str("state", string(ev.State)).
		Float64("edge_pct", ev.EdgePercentage).Msg("game evaluated")

	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	ev, ok := s.evals[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, model.NotFound("evaluation", id))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type recommendRequest struct {
	EvaluationID string `json:"evaluation_id"`
	Price        int    `json:"price"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}

	s.mu.RLock()
	ev, ok := s.evals[req.EvaluationID]
	s.mu.RUnlock()
	if !ok {
		writeError(w, model.NotFound("evaluation", req.EvaluationID))
		return
	}

	rec, err := s.policy.BuildRecommendation(ev, req.Price, s.bankroll)
	if err != nil {
		var rl *model.RiskLimitError
		if errors.As(err, &rl) {
			s.metrics.RecordRiskRejection(rl.Limit)
		}
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.recs[rec.ID] = rec
	s.mu.Unlock()

	s.metrics.RecordRecommendation(starLabel(rec.StarRating), rec.IsPlay,
		rec.StakeFraction, s.policy.Portfolio().Exposure())
	s.hub.BroadcastRecommendation(rec)

	writeJSON(w, http.StatusCreated, rec)
}

type openBetRequest struct {
	RecommendationID string `json:"recommendation_id"`
}

func (s *Server) handleOpenBet(w http.ResponseWriter, r *http.Request) {
	var req openBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}

	s.mu.RLock()
	rec, ok := s.recs[req.RecommendationID]
	s.mu.RUnlock()
	if !ok {
		writeError(w, model.NotFound("recommendation", req.RecommendationID))
		return
	}

	bet, err := s.tracker.Open(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	s.updateOpenBets(r.Context())
	writeJSON(w, http.StatusCreated, bet)
}

func (s *Server) handleGetBet(w http.ResponseWriter, r *http.Request) {
	bet, err := s.tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

type closingLineRequest struct {
	ClosingLine float64 `json:"closing_line"`
}

func (s *Server) handleClosingLine(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	var req closingLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}

	clv, err := s.tracker.RecordClosingLine(r.Context(), betID, req.ClosingLine)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.RecordCLV(clv)
	s.hub.BroadcastClosingLine(betID, req.ClosingLine, clv)

	writeJSON(w, http.StatusOK, map[string]float64{"clv_points": clv})
}

type betResultRequest struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

func (s *Server) handleBetResult(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	var req betResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.Validationf("body", "invalid JSON: %v", err))
		return
	}

	result, pl, err := s.tracker.RecordResult(r.Context(), betID, req.HomeScore, req.AwayScore)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.RecordSettlement(string(result), pl)
	s.updateOpenBets(r.Context())

	bet, getErr := s.tracker.Get(r.Context(), betID)
	if getErr == nil {
		s.hub.BroadcastSettlement(bet)
	}
	s.log.Info().Str("bet_id", betID).Str("result", string(result)).
		Str("profit_loss", pl.StringFixed(2)).Msg("bet settled")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":      result,
		"profit_loss": pl,
	})
}

// updateOpenBets refreshes the open-bet gauge; a count failure only
// stales the gauge, it never fails the request.
func (s *Server) updateOpenBets(ctx context.Context) {
	n, err := s.tracker.PendingCount(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("counting open bets")
		return
	}
	s.metrics.SetOpenBets(n)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	summary, err := s.tracker.Performance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	byStar, err := s.tracker.PerformanceByStar(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"overall": summary,
		"by_star": byStar,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		ve *model.ValidationError
		nf *model.NotFoundError
		se *model.StateError
		rl *model.RiskLimitError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &se):
		status = http.StatusConflict
	case errors.As(err, &rl):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func starLabel(stars int) string {
	switch stars {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "0"
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
