// Package signalagg folds a team-game's timestamped signals into a net
// point adjustment with an associated confidence adjustment.
package signalagg

import (
	"time"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/decay"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Contribution records one signal's decayed share of the aggregate.
type Contribution struct {
	Signal        model.Signal `json:"signal"`
	DaysElapsed   float64      `json:"days_elapsed"`
	DecayedImpact float64      `json:"decayed_impact"`
	Recency       float64      `json:"recency_confidence"`
}

// Aggregation is the summed view of all still-live signals for a subject.
type Aggregation struct {
	NetPoints     float64        `json:"net_points"`
	ConfidenceAdj float64        `json:"confidence_adjustment"`
	Contributing  []Contribution `json:"contributing_signals"`
}

// Aggregator applies the decay model to each signal and sums.
type Aggregator struct {
	model *decay.Model
}

// New creates an aggregator over the given decay model.
func New(m *decay.Model) *Aggregator {
	if m == nil {
		m = decay.New(nil)
	}
	return &Aggregator{model: m}
}

// Aggregate sums the decayed impacts of the subject's signals as of the
// given time. Impacts are summed; confidence adjustments are averaged
// across contributing signals so stacking news does not inflate
// confidence without bound. Signals decayed to exactly zero are dropped
// from the contributing list. Duplicate event types are not merged:
// upstream collectors own deduplication.
func (a *Aggregator) Aggregate(signals []model.Signal, asOf time.Time) Aggregation {
	agg := Aggregation{}

	var confidenceSum float64
	for _, sig := range signals {
		days := asOf.Sub(sig.OccurredAt).Hours() / 24
		if days < 0 {
			days = 0
		}

		impact := a.model.DecayedImpact(sig.ImpactPoints, days, sig.EventType)
		if impact == 0 {
			continue
		}

		recency := a.model.RecencyConfidence(days, sig.Confidence, sig.EventType)
		agg.NetPoints += impact
		confidenceSum += recency
		agg.Contributing = append(agg.Contributing, Contribution{
			Signal:        sig,
			DaysElapsed:   days,
			DecayedImpact: impact,
			Recency:       recency,
		})
	}

	if n := len(agg.Contributing); n > 0 {
		agg.ConfidenceAdj = confidenceSum / float64(n)
	}
	return agg
}
