// Package model defines the domain records shared across the wagering engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// League identifies the competition a team plays in.
type League string

const (
	LeagueNFL   League = "NFL"
	LeagueNCAAF League = "NCAAF"
	LeagueNBA   League = "NBA"
)

// Team is a competitor with a persistent power rating.
// Only the rating updater mutates the rating; everything else reads it.
type Team struct {
	ID           string  `json:"id"`
	League       League  `json:"league"`
	Name         string  `json:"name"`
	PowerRating  float64 `json:"power_rating"`
	RatingSource string  `json:"rating_source,omitempty"`
}

// PowerRatingSnapshot is one immutable rating observation.
// Exactly one snapshot exists per (team, league, season, week); a
// re-application of the same game overwrites rather than compounds.
type PowerRatingSnapshot struct {
	TeamID    string    `json:"team_id"`
	League    League    `json:"league"`
	Season    int       `json:"season"`
	Week      int       `json:"week"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// GameResult is a completed game as delivered by the score collector.
type GameResult struct {
	GameID      string `json:"game_id"`
	League      League `json:"league"`
	Season      int    `json:"season"`
	Week        int    `json:"week"`
	HomeTeamID  string `json:"home_team_id"`
	AwayTeamID  string `json:"away_team_id"`
	HomeScore   int    `json:"home_score"`
	AwayScore   int    `json:"away_score"`
	NeutralSite bool   `json:"neutral_site"`
}

// HomeMargin returns the final margin from the home team's perspective.
func (g GameResult) HomeMargin() int { return g.HomeScore - g.AwayScore }

// EventType classifies a news/injury/situational signal. The decay
// parameters for each type are declared once in the decay package.
type EventType string

const (
	EventInjuryKeyPlayerOut EventType = "injury_key_player_out"
	EventInjuryStarterOut   EventType = "injury_starter_out"
	EventInjuryBackupOut    EventType = "injury_backup_out"
	EventPositionGroup      EventType = "position_group_injury"
	EventHeadCoachChange    EventType = "head_coach_change"
	EventInterimCoach       EventType = "interim_coach"
	EventCoordinatorChange  EventType = "coordinator_change"
	EventTrade              EventType = "trade"
	EventRelease            EventType = "release"
	EventSigning            EventType = "signing"
	EventPlayoffImplication EventType = "playoff_implications"
	EventRestAdvantage      EventType = "rest_advantage"
	EventTravelFatigue      EventType = "travel_fatigue"
)

// ConfidenceLabel grades how reliable the source of a signal is.
type ConfidenceLabel string

const (
	ConfidenceVeryStrong ConfidenceLabel = "very_strong"
	ConfidenceStrong     ConfidenceLabel = "strong"
	ConfidenceModerate   ConfidenceLabel = "moderate"
	ConfidenceWeak       ConfidenceLabel = "weak"
	ConfidenceNone       ConfidenceLabel = "none"
)

// Signal is a timestamped point-impact event for one team in one game.
// Its decayed contribution is recomputed at evaluation time from
// OccurredAt; the record itself is never mutated.
type Signal struct {
	SubjectTeamID string          `json:"subject_team_id"`
	GameID        string          `json:"game_id"`
	EventType     EventType       `json:"event_type"`
	ImpactPoints  float64         `json:"impact_points"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Confidence    ConfidenceLabel `json:"confidence"`
}

// Side is the side of a market a bet is taken on.
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// MarketLine is a posted line from the odds collector. Line is
// home-relative for spreads (negative means home favored). Price is
// American odds.
type MarketLine struct {
	GameID     string    `json:"game_id"`
	Side       Side      `json:"side"`
	Line       float64   `json:"line"`
	Price      int       `json:"price"`
	Book       string    `json:"book,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// EvaluationState tracks an evaluation through its lifecycle.
type EvaluationState string

const (
	EvalDraft     EvaluationState = "DRAFT"
	EvalEvaluated EvaluationState = "EVALUATED"
	EvalPlayable  EvaluationState = "PLAYABLE"
	EvalRejected  EvaluationState = "REJECTED"
)

// Evaluation is one scored comparison of a predicted line against the
// market. Immutable once produced; re-evaluating a game as information
// arrives produces a new record.
type Evaluation struct {
	ID             string          `json:"id"`
	GameID         string          `json:"game_id"`
	League         League          `json:"league"`
	State          EvaluationState `json:"state"`
	PredictedLine  float64         `json:"predicted_line"`
	MarketLine     float64         `json:"market_line"`
	EdgePercentage float64         `json:"edge_percentage"`
	KeyNumbers     []int           `json:"key_numbers_crossed"`
	StarRating     int             `json:"star_rating"`
	Recommendation string          `json:"recommendation"`
	Side           Side            `json:"side"`

	// Model inputs carried for audit.
	NetSignalPoints float64   `json:"net_signal_points"`
	ConfidenceAdj   float64   `json:"confidence_adjustment"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// BetRecommendation is the staked output of one playable evaluation.
type BetRecommendation struct {
	ID            string          `json:"id"`
	EvaluationID  string          `json:"evaluation_id"`
	GameID        string          `json:"game_id"`
	Side          Side            `json:"side"`
	Line          float64         `json:"line"`
	Price         int             `json:"price"`
	StakeFraction float64         `json:"stake_fraction"`
	Stake         decimal.Decimal `json:"stake"`
	StarRating    int             `json:"star_rating"`
	IsPlay        bool            `json:"is_play"`
	Warning       string          `json:"warning,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BetResult is the settlement outcome of a tracked bet.
type BetResult string

const (
	BetPending BetResult = "pending"
	BetWin     BetResult = "win"
	BetLoss    BetResult = "loss"
	BetPush    BetResult = "push"
)

// TrackedBet is an accepted recommendation followed through to close.
// It is mutated at most twice (closing line, then final score), each
// mutation only fills fields, and it is terminal once Result is set.
type TrackedBet struct {
	ID               string           `json:"id"`
	RecommendationID string           `json:"recommendation_id"`
	GameID           string           `json:"game_id"`
	Side             Side             `json:"side"`
	Line             float64          `json:"line"`
	Price            int              `json:"price"`
	Stake            decimal.Decimal  `json:"stake"`
	StarRating       int              `json:"star_rating"`
	OpenedAt         time.Time        `json:"opened_at"`
	ClosingLine      *float64         `json:"closing_line,omitempty"`
	CLVPoints        *float64         `json:"clv_points,omitempty"`
	HomeScore        *int             `json:"home_score,omitempty"`
	AwayScore        *int             `json:"away_score,omitempty"`
	Result           BetResult        `json:"result"`
	ProfitLoss       *decimal.Decimal `json:"profit_loss,omitempty"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`
}

// Terminal reports whether the bet has been settled.
func (b TrackedBet) Terminal() bool { return b.Result != BetPending }
