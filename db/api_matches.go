package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const lastAPIMatchKey = "leetify_last_match_id"

// APIMatch is one row of enriched match history fetched from the stats API. Keyed by
// (match_id, steam64_id) so several tracked players can share a table.
type APIMatch struct {
	MatchID           string
	Steam64ID         string
	FinishedAt        time.Time
	DataSource        string
	DataSourceMatchID string
	MapName           string
	HasBannedPlayer   bool
	InitialTeamNumber int
	TeamScore         int
	EnemyTeamScore    int
	Win               *bool
	Name              string
	TotalKills        int
	TotalDeaths       int
	TotalAssists      int
	TotalHSKills      int
	KDRatio           float64
	MVPs              int
	Score             int
	TotalDamage       int
	DPR               float64
	RoundsCount       int
	RoundsSurvived    int
	RoundsWon         int
	RoundsLost        int
	Accuracy          float64
	AccuracyHead      float64
	SprayAccuracy     float64
	Preaim            float64
	ReactionTime      float64
	Multi2K           int
	Multi3K           int
	Multi4K           int
	Multi5K           int
	LeetifyRating     float64
	CTLeetifyRating   float64
	TLeetifyRating    float64
}

// UpsertAPIMatch inserts or refreshes an API match row.
func UpsertAPIMatch(ctx context.Context, dbx *sql.DB, m APIMatch) error {
	var win sql.NullBool
	if m.Win != nil {
		win = sql.NullBool{Bool: *m.Win, Valid: true}
	}
	_, err := dbx.ExecContext(ctx, `INSERT INTO api_matches (
			match_id, steam64_id, finished_at, data_source, data_source_match_id, map_name,
			has_banned_player, initial_team_number, team_score, enemy_team_score, win, name,
			total_kills, total_deaths, total_assists, total_hs_kills, kd_ratio, mvps, score,
			total_damage, dpr, rounds_count, rounds_survived, rounds_won, rounds_lost,
			accuracy, accuracy_head, spray_accuracy, preaim, reaction_time,
			multi2k, multi3k, multi4k, multi5k,
			leetify_rating, ct_leetify_rating, t_leetify_rating
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37)
		ON CONFLICT (match_id, steam64_id) DO UPDATE SET
			finished_at=EXCLUDED.finished_at, map_name=EXCLUDED.map_name,
			team_score=EXCLUDED.team_score, enemy_team_score=EXCLUDED.enemy_team_score,
			win=EXCLUDED.win, total_kills=EXCLUDED.total_kills, total_deaths=EXCLUDED.total_deaths,
			kd_ratio=EXCLUDED.kd_ratio, leetify_rating=EXCLUDED.leetify_rating`,
		m.MatchID, m.Steam64ID, m.FinishedAt.UTC(), m.DataSource, m.DataSourceMatchID, m.MapName,
		m.HasBannedPlayer, m.InitialTeamNumber, m.TeamScore, m.EnemyTeamScore, win, m.Name,
		m.TotalKills, m.TotalDeaths, m.TotalAssists, m.TotalHSKills, m.KDRatio, m.MVPs, m.Score,
		m.TotalDamage, m.DPR, m.RoundsCount, m.RoundsSurvived, m.RoundsWon, m.RoundsLost,
		m.Accuracy, m.AccuracyHead, m.SprayAccuracy, m.Preaim, m.ReactionTime,
		m.Multi2K, m.Multi3K, m.Multi4K, m.Multi5K,
		m.LeetifyRating, m.CTLeetifyRating, m.TLeetifyRating)
	if err != nil {
		return fmt.Errorf("upsert api match %s: %w", m.MatchID, err)
	}
	return nil
}

// LastAPIMatchID returns the most recently announced API match id, or empty string.
func LastAPIMatchID(ctx context.Context, dbx *sql.DB) (string, error) {
	return GetKV(ctx, dbx, lastAPIMatchKey)
}

// SetLastAPIMatchID records the most recently announced API match id.
func SetLastAPIMatchID(ctx context.Context, dbx *sql.DB, id string) error {
	return SetKV(ctx, dbx, lastAPIMatchKey, id)
}

// MapSummary is the per-map aggregate used by the stats command.
type MapSummary struct {
	MapName   string
	Games     int
	Wins      int
	Losses    int
	AvgKills  float64
	AvgDeaths float64
	AvgRating float64
}

// normalizedMapExpr mirrors report.NormalizeMap in SQL (lowercase, dashes to
// underscores, leading de_ stripped) so filtering matches however the API spells a map.
const normalizedMapExpr = `regexp_replace(replace(lower(map_name), '-', '_'), '^de_', '')`

// MapSummaries aggregates API match history per map for one player, most-played first.
// When mapName is non-empty only that map is returned; the caller passes it already
// normalized and rows are grouped on the same normalized form.
func MapSummaries(ctx context.Context, dbx *sql.DB, steam64, mapName string) ([]MapSummary, error) {
	q := `SELECT ` + normalizedMapExpr + ` AS norm_map, COUNT(*),
			COUNT(*) FILTER (WHERE win IS TRUE),
			COUNT(*) FILTER (WHERE win IS FALSE),
			COALESCE(AVG(total_kills), 0),
			COALESCE(AVG(total_deaths), 0),
			COALESCE(AVG(leetify_rating), 0)
		FROM api_matches WHERE steam64_id=$1`
	args := []any{steam64}
	if mapName != "" {
		q += ` AND ` + normalizedMapExpr + `=$2`
		args = append(args, mapName)
	}
	q += ` GROUP BY norm_map ORDER BY COUNT(*) DESC, norm_map ASC`
	rows, err := dbx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query map summaries: %w", err)
	}
	defer rows.Close()
	var out []MapSummary
	for rows.Next() {
		var s MapSummary
		var name sql.NullString
		if err := rows.Scan(&name, &s.Games, &s.Wins, &s.Losses, &s.AvgKills, &s.AvgDeaths, &s.AvgRating); err != nil {
			return nil, err
		}
		s.MapName = name.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// KnownMaps lists distinct map names seen in API history, for command autocomplete.
func KnownMaps(ctx context.Context, dbx *sql.DB, steam64 string) ([]string, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT DISTINCT map_name FROM api_matches
		WHERE steam64_id=$1 AND map_name IS NOT NULL AND map_name <> '' ORDER BY map_name`, steam64)
	if err != nil {
		return nil, fmt.Errorf("query known maps: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
