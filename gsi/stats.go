package gsi

import "math"

// Stats is the sparse bag of numeric performance fields extracted for one player.
// Absent source data means an absent key, never a zero.
type Stats map[string]float64

// Well-known stat keys.
const (
	StatKills     = "kills"
	StatDeaths    = "deaths"
	StatScore     = "score"
	StatDamage    = "damage"
	StatADR       = "adr"
	StatRounds    = "rounds"
	StatAssists   = "assists"
	StatMVPs      = "mvps"
	StatHSPercent = "hs_percent"
	StatKD        = "kd"
)

// passthroughKeys are copied verbatim when numeric-coercible.
var passthroughKeys = []string{StatDeaths, StatScore, StatDamage, StatADR, StatRounds, StatAssists, StatMVPs}

// ExtractStats pulls the stats bag for the given player out of the payload. Non-numeric
// fields are dropped. Headshot percentage prefers an explicit field, else is computed from
// headshots/kills. K/D is computed only when deaths > 0; with zero deaths it stays absent
// (no value, not zero or infinity).
func (s Snapshot) ExtractStats(steam64 string) Stats {
	out := Stats{}
	if steam64 == "" {
		return out
	}
	ms := s.player(steam64).Get("match_stats")
	if !ms.IsObject() {
		return out
	}

	for _, key := range passthroughKeys {
		if v, ok := floatValue(ms.Get(key)); ok {
			out[key] = v
		}
	}

	if v, ok := floatValue(ms.Get("headshot_percent")); ok {
		out[StatHSPercent] = v
	} else if hs, ok := floatValue(ms.Get("headshots")); ok {
		if kills, ok := intValue(ms.Get(StatKills)); ok {
			out[StatHSPercent] = round1(hs / math.Max(1, float64(kills)) * 100)
		}
	}

	if kills, ok := intValue(ms.Get(StatKills)); ok {
		out[StatKills] = float64(kills)
		if deaths, ok := intValue(ms.Get(StatDeaths)); ok && deaths > 0 {
			out[StatKD] = round2(float64(kills) / float64(deaths))
		}
	}

	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
