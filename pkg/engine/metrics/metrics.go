// Package metrics exposes Prometheus metrics for the wagering engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// EngineMetrics collects evaluation, staking, and settlement metrics on
// a private registry so tests never collide on the default one.
type EngineMetrics struct {
	registry *prometheus.Registry

	// Evaluation metrics
	EvaluationsTotal *prometheus.CounterVec
	EdgePercentage   *prometheus.HistogramVec
	LineDelta        *prometheus.HistogramVec

	// Signal metrics
	SignalsTotal    *prometheus.CounterVec
	SignalNetPoints *prometheus.HistogramVec

	// Rating metrics
	RatingUpdates *prometheus.CounterVec

	// Staking metrics
	RecommendationsTotal *prometheus.CounterVec
	StakeFraction        *prometheus.HistogramVec
	OpenExposure         *prometheus.GaugeVec
	RiskRejections       *prometheus.CounterVec

	// Lifecycle metrics
	OpenBets    *prometheus.GaugeVec
	CLVPoints   *prometheus.HistogramVec
	RealizedPnL *prometheus.GaugeVec
	Settlements *prometheus.CounterVec
}

// New creates the metric set on a fresh registry.
func New() *EngineMetrics {
	m := &EngineMetrics{
		registry: prometheus.NewRegistry(),

		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walters_evaluations_total",
				Help: "Evaluations completed, by league and terminal state",
			},
			[]string{"league", "state"},
		),
		EdgePercentage: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walters_edge_percentage",
				Help:    "Key-number weighted edge per evaluation",
				Buckets: []float64{0, 2, 4, 5.5, 8, 12, 16, 25, 50},
			},
			[]string{"league"},
		),
		LineDelta: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walters_line_delta_points",
				Help:    "Absolute gap between predicted and market line",
				Buckets: prometheus.LinearBuckets(0, 1, 15),
			},
			[]string{"league"},
		),

		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walters_signals_total",
				Help: "Signals submitted with evaluations, by event type",
			},
			[]string{"event_type"},
		),
		SignalNetPoints: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walters_signal_net_points",
				Help:    "Net decayed signal points per team per evaluation",
				Buckets: prometheus.LinearBuckets(-10, 2, 11),
			},
			[]string{"league"},
		),

		RatingUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walters_rating_updates_total",
				Help: "Power rating snapshots written",
			},
			[]string{"league"},
		),

		RecommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walters_recommendations_total",
				Help: "Stake recommendations, by star tier and play flag",
			},
			[]string{"stars", "is_play"},
		),
		StakeFraction: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walters_stake_fraction",
				Help:    "Recommended bankroll fraction per play",
				Buckets: prometheus.LinearBuckets(0, 0.005, 8),
			},
			[]string{},
		),
		OpenExposure: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walters_open_exposure_usd",
				Help: "Total open stake across unsettled recommendations",
			},
			[]string{},
		),
		RiskRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walters_risk_rejections_total",
				Help: "Recommendations blocked by a risk limit",
			},
			[]string{"limit"},
		),

		OpenBets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walters_open_bets",
				Help: "Tracked bets awaiting settlement",
			},
			[]string{},
		),
		CLVPoints: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walters_clv_points",
				Help:    "Closing line value per bet in points",
				Buckets: prometheus.LinearBuckets(-4, 0.5, 17),
			},
			[]string{},
		),
		RealizedPnL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walters_realized_pnl_usd",
				Help: "Cumulative settled profit and loss, negative when down",
			},
			[]string{"result"},
		),
		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walters_settlements_total",
				Help: "Bets graded, by result",
			},
			[]string{"result"},
		),
	}

	m.registerAll()
	return m
}

func (m *EngineMetrics) registerAll() {
	m.registry.MustRegister(
		m.EvaluationsTotal,
		m.EdgePercentage,
		m.LineDelta,
		m.SignalsTotal,
		m.SignalNetPoints,
		m.RatingUpdates,
		m.RecommendationsTotal,
		m.StakeFraction,
		m.OpenExposure,
		m.RiskRejections,
		m.OpenBets,
		m.CLVPoints,
		m.RealizedPnL,
		m.Settlements,
	)
}

// Registry returns the backing registry for the /metrics handler.
func (m *EngineMetrics) Registry() *prometheus.Registry { return m.registry }

// RecordEvaluation records one completed evaluation.
func (m *EngineMetrics) RecordEvaluation(league, state string, edgePct, lineDelta float64) {
	m.EvaluationsTotal.WithLabelValues(league, state).Inc()
	m.EdgePercentage.WithLabelValues(league).Observe(edgePct)
	if lineDelta < 0 {
		lineDelta = -lineDelta
	}
	m.LineDelta.WithLabelValues(league).Observe(lineDelta)
}

// RecordSignals records one evaluation's signal inputs: the net decayed
// points and each submitted signal's event type.
func (m *EngineMetrics) RecordSignals(league string, netPoints float64, eventTypes []string) {
	m.SignalNetPoints.WithLabelValues(league).Observe(netPoints)
	for _, et := range eventTypes {
		m.SignalsTotal.WithLabelValues(et).Inc()
	}
}

// RecordRatingUpdate records one snapshot write.
func (m *EngineMetrics) RecordRatingUpdate(league string) {
	m.RatingUpdates.WithLabelValues(league).Inc()
}

// RecordRecommendation records one sizing decision.
func (m *EngineMetrics) RecordRecommendation(stars string, isPlay bool, fraction float64, exposure decimal.Decimal) {
	play := "false"
	if isPlay {
		play = "true"
	}
	m.RecommendationsTotal.WithLabelValues(stars, play).Inc()
	if isPlay {
		m.StakeFraction.WithLabelValues().Observe(fraction)
	}
	m.OpenExposure.WithLabelValues().Set(DecimalToFloat64(exposure))
}

// RecordRiskRejection records a blocked recommendation.
func (m *EngineMetrics) RecordRiskRejection(limit string) {
	m.RiskRejections.WithLabelValues(limit).Inc()
}

// RecordCLV records a captured closing line value.
func (m *EngineMetrics) RecordCLV(points float64) {
	m.CLVPoints.WithLabelValues().Observe(points)
}

// RecordSettlement records a graded bet.
func (m *EngineMetrics) RecordSettlement(result string, pnl decimal.Decimal) {
	m.Settlements.WithLabelValues(result).Inc()
	m.RealizedPnL.WithLabelValues(result).Add(DecimalToFloat64(pnl))
}

// SetOpenBets updates the unsettled bet gauge.
func (m *EngineMetrics) SetOpenBets(count int) {
	m.OpenBets.WithLabelValues().Set(float64(count))
}

// DecimalToFloat64 converts a decimal amount for metric observation.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

var (
	defaultMetrics *EngineMetrics
	once           sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *EngineMetrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
