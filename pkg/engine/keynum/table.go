// Package keynum holds empirical final-margin landing frequencies per
// sport. Margins cluster hard on a handful of numbers (3 and 7 in
// football), which is what makes a half point across them worth paying
// for.
package keynum

import "github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"

// Table maps an integer final margin to its landing frequency.
type Table struct {
	freqs        map[int]float64
	defaultValue float64
}

// nflFrequencies are long-run landing rates of NFL final margins.
var nflFrequencies = map[int]float64{
	1:  0.028,
	2:  0.025,
	3:  0.080,
	4:  0.038,
	5:  0.023,
	6:  0.050,
	7:  0.060,
	8:  0.025,
	10: 0.048,
	14: 0.045,
	17: 0.035,
}

// ncaafFrequencies are flatter than the NFL's: college margins spread
// wider, so key numbers matter less but still exist.
var ncaafFrequencies = map[int]float64{
	3:  0.065,
	4:  0.032,
	6:  0.038,
	7:  0.055,
	10: 0.040,
	14: 0.042,
	17: 0.033,
	21: 0.030,
}

// nbaFrequencies: basketball has no free-kick scoring structure, so the
// distribution is close to uniform with mild clustering in the 5-8 band.
var nbaFrequencies = map[int]float64{
	5: 0.035,
	6: 0.034,
	7: 0.033,
	8: 0.030,
}

const defaultFrequency = 0.015

// For returns the key-number table for a league. Unknown leagues get an
// empty table where every margin carries the default frequency.
func For(league model.League) Table {
	switch league {
	case model.LeagueNFL:
		return Table{freqs: nflFrequencies, defaultValue: defaultFrequency}
	case model.LeagueNCAAF:
		return Table{freqs: ncaafFrequencies, defaultValue: defaultFrequency}
	case model.LeagueNBA:
		return Table{freqs: nbaFrequencies, defaultValue: defaultFrequency}
	default:
		return Table{freqs: map[int]float64{}, defaultValue: defaultFrequency}
	}
}

// Value returns the landing frequency for an integer margin. Margins are
// symmetric, so the sign is ignored; a zero margin has no value.
func (t Table) Value(margin int) float64 {
	if margin < 0 {
		margin = -margin
	}
	if margin == 0 {
		return 0
	}
	if f, ok := t.freqs[margin]; ok {
		return f
	}
	return t.defaultValue
}

// DefaultValue returns the frequency assigned to unlisted margins.
func (t Table) DefaultValue() float64 { return t.defaultValue }

// keyThreshold is the landing rate above which a margin counts as a true
// key number (3, 6, 7, 10, 14 in the NFL) rather than merely tabled.
const keyThreshold = 0.04

// IsKey reports whether a margin is a key number.
func (t Table) IsKey(margin int) bool {
	if margin < 0 {
		margin = -margin
	}
	return t.freqs[margin] >= keyThreshold
}
