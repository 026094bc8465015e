// Package decay ages discrete news/injury signals into a current point
// impact. Each event type carries its own half-life, impact floor, and
// hard age cutoff, so structural changes (coaching, trades) outlive
// transient ones (rest, travel).
package decay

import (
	"math"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Params are the decay parameters for one event type.
type Params struct {
	HalfLifeDays      float64 // days to reach 50% of original impact
	MinImpactFraction float64 // floor on the decay factor, 0-1
	MaxAgeDays        float64 // impact is exactly zero at or past this age
}

// DefaultParams returns the per-event-type parameter table.
func DefaultParams() map[model.EventType]Params {
	return map[model.EventType]Params{
		model.EventInjuryKeyPlayerOut: {HalfLifeDays: 7, MinImpactFraction: 0.10, MaxAgeDays: 56},
		model.EventInjuryStarterOut:   {HalfLifeDays: 5, MinImpactFraction: 0.10, MaxAgeDays: 42},
		model.EventInjuryBackupOut:    {HalfLifeDays: 3, MinImpactFraction: 0.05, MaxAgeDays: 21},
		model.EventPositionGroup:      {HalfLifeDays: 6, MinImpactFraction: 0.10, MaxAgeDays: 42},
		model.EventHeadCoachChange:    {HalfLifeDays: 28, MinImpactFraction: 0.25, MaxAgeDays: 180},
		model.EventInterimCoach:       {HalfLifeDays: 21, MinImpactFraction: 0.20, MaxAgeDays: 120},
		model.EventCoordinatorChange:  {HalfLifeDays: 14, MinImpactFraction: 0.15, MaxAgeDays: 90},
		model.EventTrade:              {HalfLifeDays: 21, MinImpactFraction: 0.20, MaxAgeDays: 120},
		model.EventRelease:            {HalfLifeDays: 14, MinImpactFraction: 0.10, MaxAgeDays: 90},
		model.EventSigning:            {HalfLifeDays: 21, MinImpactFraction: 0.15, MaxAgeDays: 120},
		model.EventPlayoffImplication: {HalfLifeDays: 4, MinImpactFraction: 0.30, MaxAgeDays: 14},
		model.EventRestAdvantage:      {HalfLifeDays: 2, MinImpactFraction: 0.40, MaxAgeDays: 10},
		model.EventTravelFatigue:      {HalfLifeDays: 1, MinImpactFraction: 0.50, MaxAgeDays: 7},
	}
}

// Model computes time-discounted signal impacts. It is a pure function
// of its inputs and safe for concurrent use.
type Model struct {
	params map[model.EventType]Params
}

// New creates a model from the default table, with optional per-type
// overrides applied on top.
func New(overrides map[model.EventType]Params) *Model {
	params := DefaultParams()
	for et, p := range overrides {
		params[et] = p
	}
	return &Model{params: params}
}

// ParamsFor returns the decay parameters for an event type.
func (m *Model) ParamsFor(et model.EventType) (Params, bool) {
	p, ok := m.params[et]
	return p, ok
}

// DecayedImpact returns the current value of an original impact after
// daysElapsed. Negative elapsed time is clamped to zero. Unknown event
// types contribute nothing.
func (m *Model) DecayedImpact(original, daysElapsed float64, et model.EventType) float64 {
	p, ok := m.params[et]
	if !ok {
		return 0
	}
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	if daysElapsed >= p.MaxAgeDays {
		return 0
	}

	factor := math.Pow(0.5, daysElapsed/p.HalfLifeDays)
	if factor < p.MinImpactFraction {
		factor = p.MinImpactFraction
	}
	return original * factor
}

// Label weights for the recency confidence adjustment.
var labelWeights = map[model.ConfidenceLabel]float64{
	model.ConfidenceVeryStrong: 0.10,
	model.ConfidenceStrong:     0.06,
	model.ConfidenceModerate:   0.02,
	model.ConfidenceWeak:       -0.04,
	model.ConfidenceNone:       -0.08,
}

// RecencyConfidence returns an additive confidence adjustment in
// [-0.2, 0.2]: fresh, well-sourced signals score positive, stale or
// weakly-sourced ones negative. It is reported alongside edge and never
// folded into it.
func (m *Model) RecencyConfidence(daysElapsed float64, label model.ConfidenceLabel, et model.EventType) float64 {
	p, ok := m.params[et]
	if !ok {
		return 0
	}
	if daysElapsed < 0 {
		daysElapsed = 0
	}

	adj := labelWeights[label]

	switch {
	case daysElapsed <= 1:
		adj += 0.10
	case daysElapsed <= p.HalfLifeDays:
		adj += 0.05
	case daysElapsed <= 2*p.HalfLifeDays:
		// neither fresh nor stale
	case daysElapsed < p.MaxAgeDays:
		adj -= 0.05
	default:
		adj -= 0.10
	}

	return clamp(adj, -0.2, 0.2)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
