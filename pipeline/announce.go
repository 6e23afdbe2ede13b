package pipeline

import (
	"fmt"
	"strings"

	"github.com/Catsarenotevil/AntonSlayer/gsi"
)

// Kind selects the rendering branch for a post-match message.
type Kind string

const (
	// KindLoss is the sub-5-kill embed: dark red, image, roast, stats field.
	KindLoss Kind = "loss"
	// KindDominance is the 20+ kill embed: gold, image, flourish, never a roast.
	KindDominance Kind = "dominance"
	// KindPlain is everything in between: a plain text message.
	KindPlain Kind = "plain"
)

// Announcement is the channel-agnostic description of a post-match message. The Discord
// layer turns it into an embed or plain text.
type Announcement struct {
	Kind      Kind
	Kills     int
	KillsMax  int
	Map       string
	Roast     string
	Stats     gsi.Stats
	StatsLine string
	Synthetic bool
}

// kindForKills picks the branch: under 5 kills a loss, over 20 a dominance, else plain.
func kindForKills(kills int) Kind {
	switch {
	case kills < 5:
		return KindLoss
	case kills > 20:
		return KindDominance
	default:
		return KindPlain
	}
}

// includeRoast reports whether the message carries a roast line. Kills at or under the
// configured threshold roast, and under 5 kills always roasts even if the threshold was
// lowered below that.
func includeRoast(kills, killsMax int) bool {
	return kills <= killsMax || kills < 5
}

// statsLineOrder fixes the rendering order of known stat keys.
var statsLineOrder = []struct {
	key    string
	label  string
	digits int
}{
	{gsi.StatDeaths, "Deaths", 0},
	{gsi.StatKD, "K/D", 2},
	{gsi.StatADR, "ADR", 1},
	{gsi.StatHSPercent, "HS%", 1},
	{gsi.StatScore, "Score", 0},
	{gsi.StatMVPs, "MVPs", 0},
}

// statsLine renders the known stats in a fixed order, skipping absent keys.
func statsLine(stats gsi.Stats) string {
	var parts []string
	for _, s := range statsLineOrder {
		v, ok := stats[s.key]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.*f", s.label, s.digits, v))
	}
	return strings.Join(parts, " | ")
}
