// Package gsi decodes CS2 Game State Integration payloads. Payloads are nested JSON of
// arbitrary depth; this package extracts the handful of optional fields the pipeline
// needs, treating absent or malformed fields as "no value" rather than errors.
package gsi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// PhaseGameOver is the map phase the client reports once a match has ended.
const PhaseGameOver = "gameover"

// Snapshot is a single decoded GSI payload.
type Snapshot struct {
	raw gjson.Result
}

// ParseSnapshot validates and wraps a raw payload. Only syntactically invalid JSON is an
// error; a valid document missing every field of interest is still a usable Snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return Snapshot{}, fmt.Errorf("invalid json payload")
	}
	return Snapshot{raw: gjson.ParseBytes(data)}, nil
}

// IsZero reports whether the snapshot holds no payload.
func (s Snapshot) IsZero() bool { return !s.raw.Exists() }

// MapName returns the trimmed map name, or empty when absent.
func (s Snapshot) MapName() string {
	return strings.TrimSpace(s.raw.Get("map.name").String())
}

// Phase returns the trimmed map phase, or empty when absent.
func (s Snapshot) Phase() string {
	return strings.TrimSpace(s.raw.Get("map.phase").String())
}

// Round returns the current round rendered as a string, or empty when absent.
func (s Snapshot) Round() string {
	return strings.TrimSpace(s.raw.Get("map.round").String())
}

// Signature derives the deduplication key for this payload. The provider timestamp is the
// most precise uniqueness key when present; the map|phase|round composite tolerates feeds
// that omit it but still changes per distinct match state. Two timestamp-less matches with
// identical map, phase and round collapse; accepted limitation of the fallback.
func (s Snapshot) Signature() string {
	if ts := s.raw.Get("provider.timestamp"); ts.Exists() {
		return "ts:" + ts.String()
	}
	return fmt.Sprintf("%s|p:%s|r:%s", s.MapName(), s.Phase(), s.Round())
}

// ProviderTime returns the provider timestamp as a UTC instant when present and numeric.
func (s Snapshot) ProviderTime() (time.Time, bool) {
	ts := s.raw.Get("provider.timestamp")
	if !ts.Exists() {
		return time.Time{}, false
	}
	v, ok := intValue(ts)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(v, 0).UTC(), true
}

// Kills returns the tracked player's kill count, or false when the player, their
// match_stats, or a numeric kills field is absent.
func (s Snapshot) Kills(steam64 string) (int, bool) {
	if steam64 == "" {
		return 0, false
	}
	k := s.player(steam64).Get("match_stats.kills")
	if !k.Exists() {
		return 0, false
	}
	v, ok := intValue(k)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func (s Snapshot) player(steam64 string) gjson.Result {
	return s.raw.Get("allplayers." + steam64)
}

// intValue coerces a JSON number or numeric string to int64.
func intValue(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		return int64(r.Num), true
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// floatValue coerces a JSON number or numeric string to float64.
func floatValue(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// BuildSynthetic assembles a payload equivalent to a finished match for the given player,
// used by the admin inject command. The timestamp always becomes the provider timestamp so
// synthetic matches dedup on the precise path.
func BuildSynthetic(steam64 string, kills int, mapName string, ts time.Time, extra map[string]float64) []byte {
	matchStats := map[string]any{"kills": kills}
	for k, v := range extra {
		if k == "kills" {
			continue
		}
		matchStats[k] = v
	}
	payload := map[string]any{
		"provider": map[string]any{"timestamp": ts.Unix()},
		"map":      map[string]any{"name": mapName, "phase": PhaseGameOver},
		"allplayers": map[string]any{
			steam64: map[string]any{
				"name":        "Anton",
				"team":        "T",
				"match_stats": matchStats,
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}
