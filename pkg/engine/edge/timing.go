package edge

import (
	"math"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/keynum"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Timing actions and urgency levels.
const (
	TimingBetNow = "bet_now"
	TimingWait   = "wait"

	UrgencyNormal   = "normal"
	UrgencyElevated = "elevated"
)

// TimingAdvice says which side holds the value and when to take it.
type TimingAdvice struct {
	Side    model.Side `json:"side"`
	Action  string     `json:"action"`
	Urgency string     `json:"urgency"`
	Reason  string     `json:"reason"`
}

// OptimalBetTiming classifies the value side of a predicted-vs-market
// disagreement. Public money moves lines against favorite backers, so
// favorites get bet early; lines on underdogs tend to drift in the
// bettor's favor, so dogs wait. Urgency is elevated when the posted line
// sits within half a point of a key number, where the next move is the
// expensive one.
func (c *Calculator) OptimalBetTiming(predicted, market float64, league model.League) TimingAdvice {
	advice := TimingAdvice{Action: TimingWait, Urgency: UrgencyNormal}
	if math.Abs(predicted-market) < lineEpsilon {
		advice.Reason = "no disagreement with the market"
		return advice
	}

	// Model likes home more than the market does when its line is lower
	// (more negative) than the posted one.
	if predicted < market {
		advice.Side = model.SideHome
	} else {
		advice.Side = model.SideAway
	}

	favorite := (advice.Side == model.SideHome && market < 0) ||
		(advice.Side == model.SideAway && market > 0)
	if favorite {
		advice.Action = TimingBetNow
		advice.Reason = "value is on the favorite; public money will push this line away"
	} else {
		advice.Reason = "value is on the underdog; dog lines tend to improve closer to kickoff"
	}

	if nearKeyNumber(market, league) {
		advice.Urgency = UrgencyElevated
		if advice.Action == TimingWait {
			advice.Reason += " (but the line is parked next to a key number)"
		}
	}
	return advice
}

func nearKeyNumber(line float64, league model.League) bool {
	table := keynum.For(league)
	abs := math.Abs(line)
	for n := int(math.Floor(abs - 0.5)); n <= int(math.Ceil(abs+0.5)); n++ {
		if n > 0 && math.Abs(abs-float64(n)) <= 0.5 && table.IsKey(n) {
			return true
		}
	}
	return false
}
