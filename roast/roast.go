// Package roast selects a post-match commentary line from one of three severity tiers.
// Tier assignment is deterministic; the line within a tier is chosen uniformly at random.
package roast

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
)

// Tier is one of the three severity buckets.
type Tier string

const (
	TierHarsh    Tier = "BRUTAL"
	TierModerate Tier = "MEDIUM"
	TierLight    Tier = "MILD"
)

//go:embed strings.json
var defaultStrings []byte

// Selector holds the message pools. Construct with New, Default, or LoadFile.
type Selector struct {
	pools map[Tier][]string
}

// New builds a Selector and fails fast if any tier pool is empty.
func New(pools map[Tier][]string) (*Selector, error) {
	for _, tier := range []Tier{TierHarsh, TierModerate, TierLight} {
		if len(pools[tier]) == 0 {
			return nil, fmt.Errorf("roast pool %s is empty", tier)
		}
	}
	return &Selector{pools: pools}, nil
}

// Default returns a Selector backed by the embedded strings.json.
func Default() (*Selector, error) {
	return parse(defaultStrings)
}

// LoadFile reads pools from a strings.json on disk.
func LoadFile(path string) (*Selector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strings file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Selector, error) {
	var raw map[Tier][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse strings file: %w", err)
	}
	return New(raw)
}

// TierForKills maps a kill count to a tier: <=3 harsh, 4-8 moderate, >8 light.
func TierForKills(kills int) Tier {
	switch {
	case kills <= 3:
		return TierHarsh
	case kills <= 8:
		return TierModerate
	default:
		return TierLight
	}
}

// TierForRating maps a Leetify rating to a tier. Cut points differ from the kills
// variant: >1.5 light, (-3.0, 1.5] moderate, <=-3.0 harsh.
func TierForRating(rating float64) Tier {
	switch {
	case rating > 1.5:
		return TierLight
	case rating > -3.0:
		return TierModerate
	default:
		return TierHarsh
	}
}

// Pick returns a uniformly random line from the tier's pool.
func (s *Selector) Pick(tier Tier) string {
	pool, ok := s.pools[tier]
	if !ok || len(pool) == 0 {
		// Unreachable for selectors built via New; guard against a zero Selector.
		return ""
	}
	return pool[rand.IntN(len(pool))]
}

// PickForKills selects a line for the kills-based tier.
func (s *Selector) PickForKills(kills int) string { return s.Pick(TierForKills(kills)) }

// PickForRating selects a line for the rating-based tier.
func (s *Selector) PickForRating(rating float64) string { return s.Pick(TierForRating(rating)) }
