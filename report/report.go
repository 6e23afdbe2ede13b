// Package report computes history summaries for the Discord commands: kill averages,
// per-day buckets, sparklines, and per-map filters.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Catsarenotevil/AntonSlayer/db"
)

// NoData is rendered wherever a window contains no matches.
const NoData = "(no data)"

var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

// Summary aggregates kill counts over a set of matches.
type Summary struct {
	Count int
	Total int
	Avg   float64
	Min   int
	Max   int
}

// Summarize computes the kill summary. A zero Count means the other fields are
// meaningless and callers should render NoData.
func Summarize(matches []db.Match) Summary {
	s := Summary{}
	for _, m := range matches {
		if s.Count == 0 {
			s.Min, s.Max = m.Kills, m.Kills
		} else {
			if m.Kills < s.Min {
				s.Min = m.Kills
			}
			if m.Kills > s.Max {
				s.Max = m.Kills
			}
		}
		s.Count++
		s.Total += m.Kills
	}
	if s.Count > 0 {
		s.Avg = float64(s.Total) / float64(s.Count)
	}
	return s
}

// DailyBucket is one UTC calendar day of history. Count==0 marks a day with no data.
type DailyBucket struct {
	Day   time.Time
	Count int
	Total int
	Avg   float64
}

// DailyBuckets groups matches into the last `days` UTC calendar days ending at the day
// containing now. Every day in the window gets a bucket even when empty.
func DailyBuckets(matches []db.Match, days int, now time.Time) []DailyBucket {
	if days <= 0 {
		return nil
	}
	end := now.UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))
	buckets := make([]DailyBucket, days)
	for i := range buckets {
		buckets[i].Day = start.AddDate(0, 0, i)
	}
	for _, m := range matches {
		day := m.TS.UTC().Truncate(24 * time.Hour)
		idx := int(day.Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		buckets[idx].Count++
		buckets[idx].Total += m.Kills
	}
	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].Avg = float64(buckets[i].Total) / float64(buckets[i].Count)
		}
	}
	return buckets
}

// Sparkline renders values on the 8-glyph ramp. A flat window collapses to the lowest
// glyph repeated; no values renders NoData.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return NoData
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	var b strings.Builder
	if hi == lo {
		for range values {
			b.WriteRune(sparkGlyphs[0])
		}
		return b.String()
	}
	span := hi - lo
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(sparkGlyphs)-1))
		b.WriteRune(sparkGlyphs[idx])
	}
	return b.String()
}

// DailySparkline renders the per-day average kills of non-empty buckets, in order.
// Days without matches are omitted from the glyph sequence rather than drawn as a
// zero-valued glyph, so the line can be shorter than the window; the per-day text
// listing is where "no data" days show up.
func DailySparkline(buckets []DailyBucket) string {
	var vals []float64
	for _, b := range buckets {
		if b.Count > 0 {
			vals = append(vals, b.Avg)
		}
	}
	return Sparkline(vals)
}

// NormalizeMap canonicalizes a map name: lowercase, dashes to underscores, and the
// de_ prefix stripped. "De-Dust2" and "de_dust2" both normalize to "dust2".
func NormalizeMap(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	return strings.TrimPrefix(n, "de_")
}

// FilterByMap keeps matches whose normalized map equals the normalized query.
func FilterByMap(matches []db.Match, mapName string) []db.Match {
	want := NormalizeMap(mapName)
	var out []db.Match
	for _, m := range matches {
		if NormalizeMap(m.Map) == want {
			out = append(out, m)
		}
	}
	return out
}

// TopN returns the n highest-kill matches, best first. Ties keep input order.
func TopN(matches []db.Match, n int) []db.Match {
	out := make([]db.Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kills > out[j].Kills })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// BottomN returns the n lowest-kill matches, worst first. Ties keep input order.
func BottomN(matches []db.Match, n int) []db.Match {
	out := make([]db.Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kills < out[j].Kills })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// AggregateStats averages every stat key across the matches that carry it. Matches
// without a stat bag, or without a given key, do not dilute that key's average.
func AggregateStats(matches []db.Match) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, m := range matches {
		for k, v := range m.Stats {
			sums[k] += v
			counts[k]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

// FormatAvg renders an average to one decimal, the precision used in embeds.
func FormatAvg(v float64) string { return fmt.Sprintf("%.1f", v) }
