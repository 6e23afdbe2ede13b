// Package leetify fetches enriched match history from the Leetify public API and feeds
// it into the channel announcer and the api_matches table.
package leetify

import (
	"time"

	"github.com/Catsarenotevil/AntonSlayer/db"
)

// TeamScore is one side's final score.
type TeamScore struct {
	TeamNumber int `json:"team_number"`
	Score      int `json:"score"`
}

// PlayerStats is one player's row inside a match payload. Only the fields the bot
// renders or persists are mapped; the API returns many more.
type PlayerStats struct {
	Steam64ID         string  `json:"steam64_id"`
	Name              string  `json:"name"`
	InitialTeamNumber int     `json:"initial_team_number"`
	TotalKills        int     `json:"total_kills"`
	TotalDeaths       int     `json:"total_deaths"`
	TotalAssists      int     `json:"total_assists"`
	TotalHSKills      int     `json:"total_hs_kills"`
	KDRatio           float64 `json:"kd_ratio"`
	MVPs              int     `json:"mvps"`
	Score             int     `json:"score"`
	TotalDamage       int     `json:"total_damage"`
	DPR               float64 `json:"dpr"`
	RoundsCount       int     `json:"rounds_count"`
	RoundsSurvived    int     `json:"rounds_survived"`
	RoundsWon         int     `json:"rounds_won"`
	RoundsLost        int     `json:"rounds_lost"`
	Accuracy          float64 `json:"accuracy"`
	AccuracyHead      float64 `json:"accuracy_head"`
	SprayAccuracy     float64 `json:"spray_accuracy"`
	Preaim            float64 `json:"preaim"`
	ReactionTime      float64 `json:"reaction_time"`
	Multi2K           int     `json:"multi2k"`
	Multi3K           int     `json:"multi3k"`
	Multi4K           int     `json:"multi4k"`
	Multi5K           int     `json:"multi5k"`
	LeetifyRating     float64 `json:"leetify_rating"`
	CTLeetifyRating   float64 `json:"ct_leetify_rating"`
	TLeetifyRating    float64 `json:"t_leetify_rating"`
}

// Match is one entry of the /v3/profile/matches response.
type Match struct {
	ID                string        `json:"id"`
	FinishedAt        time.Time     `json:"finished_at"`
	DataSource        string        `json:"data_source"`
	DataSourceMatchID string        `json:"data_source_match_id"`
	MapName           string        `json:"map_name"`
	HasBannedPlayer   bool          `json:"has_banned_player"`
	TeamScores        []TeamScore   `json:"team_scores"`
	Stats             []PlayerStats `json:"stats"`
}

// Ranks holds the tracked player's current rank per ladder.
type Ranks struct {
	Premier int     `json:"premier"`
	Faceit  int     `json:"faceit"`
	Leetify float64 `json:"leetify"`
}

// Profile is the /v3/profile response.
type Profile struct {
	Name    string  `json:"name"`
	Winrate float64 `json:"winrate"`
	Ranks   Ranks   `json:"ranks"`
}

// StatsFor returns the stats row for steam64, falling back to the first row when the
// tracked player is not in the payload.
func (m *Match) StatsFor(steam64 string) *PlayerStats {
	for i := range m.Stats {
		if m.Stats[i].Steam64ID == steam64 {
			return &m.Stats[i]
		}
	}
	if len(m.Stats) > 0 {
		return &m.Stats[0]
	}
	return nil
}

// Outcome values for a match from one team's point of view.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeTie  = "tie"
)

// Outcome resolves the match result for the side that started as initialTeam. Returns
// the outcome plus own and best enemy score. Unknown when the team scores are missing.
func (m *Match) Outcome(initialTeam int) (outcome string, own, enemy int, ok bool) {
	scores := map[int]int{}
	for _, ts := range m.TeamScores {
		scores[ts.TeamNumber] = ts.Score
	}
	own, ok = scores[initialTeam]
	if !ok || len(scores) < 2 {
		return "", 0, 0, false
	}
	first := true
	for team, score := range scores {
		if team == initialTeam {
			continue
		}
		if first || score > enemy {
			enemy = score
		}
		first = false
	}
	switch {
	case own > enemy:
		outcome = OutcomeWin
	case own < enemy:
		outcome = OutcomeLoss
	default:
		outcome = OutcomeTie
	}
	return outcome, own, enemy, true
}

// Row flattens one player's stats into an api_matches row.
func (m *Match) Row(p PlayerStats) db.APIMatch {
	row := db.APIMatch{
		MatchID:           m.ID,
		Steam64ID:         p.Steam64ID,
		FinishedAt:        m.FinishedAt,
		DataSource:        m.DataSource,
		DataSourceMatchID: m.DataSourceMatchID,
		MapName:           m.MapName,
		HasBannedPlayer:   m.HasBannedPlayer,
		InitialTeamNumber: p.InitialTeamNumber,
		Name:              p.Name,
		TotalKills:        p.TotalKills,
		TotalDeaths:       p.TotalDeaths,
		TotalAssists:      p.TotalAssists,
		TotalHSKills:      p.TotalHSKills,
		KDRatio:           p.KDRatio,
		MVPs:              p.MVPs,
		Score:             p.Score,
		TotalDamage:       p.TotalDamage,
		DPR:               p.DPR,
		RoundsCount:       p.RoundsCount,
		RoundsSurvived:    p.RoundsSurvived,
		RoundsWon:         p.RoundsWon,
		RoundsLost:        p.RoundsLost,
		Accuracy:          p.Accuracy,
		AccuracyHead:      p.AccuracyHead,
		SprayAccuracy:     p.SprayAccuracy,
		Preaim:            p.Preaim,
		ReactionTime:      p.ReactionTime,
		Multi2K:           p.Multi2K,
		Multi3K:           p.Multi3K,
		Multi4K:           p.Multi4K,
		Multi5K:           p.Multi5K,
		LeetifyRating:     p.LeetifyRating,
		CTLeetifyRating:   p.CTLeetifyRating,
		TLeetifyRating:    p.TLeetifyRating,
	}
	if outcome, own, enemy, ok := m.Outcome(p.InitialTeamNumber); ok {
		row.TeamScore = own
		row.EnemyTeamScore = enemy
		win := outcome == OutcomeWin
		row.Win = &win
	}
	return row
}
