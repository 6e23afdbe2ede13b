package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Match is one recorded game for the tracked player.
type Match struct {
	ID     int64
	TS     time.Time
	Kills  int
	Source string
	Map    string
	Stats  map[string]float64
	Sig    string
}

// InsertMatch records a match keyed by its payload signature. Returns false without
// error when a row with the same signature already exists.
func InsertMatch(ctx context.Context, dbx *sql.DB, m Match) (bool, error) {
	var mapName sql.NullString
	if m.Map != "" {
		mapName = sql.NullString{String: m.Map, Valid: true}
	}
	var statsJSON sql.NullString
	if len(m.Stats) > 0 {
		b, err := json.Marshal(m.Stats)
		if err != nil {
			return false, fmt.Errorf("marshal stats: %w", err)
		}
		statsJSON = sql.NullString{String: string(b), Valid: true}
	}
	res, err := dbx.ExecContext(ctx, `INSERT INTO matches (ts, kills, source, map, stats_json, sig)
		VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (sig) DO NOTHING`,
		m.TS.UTC(), m.Kills, m.Source, mapName, statsJSON, m.Sig)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SigExists reports whether a match with the given signature is already recorded.
func SigExists(ctx context.Context, dbx *sql.DB, sig string) (bool, error) {
	var one int
	err := dbx.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE sig=$1`, sig).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MatchesSince returns matches with ts >= since, oldest first.
func MatchesSince(ctx context.Context, dbx *sql.DB, since time.Time) ([]Match, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT id, ts, kills, source, map, stats_json, sig
		FROM matches WHERE ts >= $1 ORDER BY ts ASC, id ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// RecentMatches returns the newest n matches, newest first.
func RecentMatches(ctx context.Context, dbx *sql.DB, n int) ([]Match, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT id, ts, kills, source, map, stats_json, sig
		FROM matches ORDER BY ts DESC, id DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]Match, error) {
	var out []Match
	for rows.Next() {
		var (
			m         Match
			mapName   sql.NullString
			statsJSON sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.TS, &m.Kills, &m.Source, &mapName, &statsJSON, &m.Sig); err != nil {
			return nil, err
		}
		m.Map = mapName.String
		if statsJSON.Valid && statsJSON.String != "" {
			if err := json.Unmarshal([]byte(statsJSON.String), &m.Stats); err != nil {
				return nil, fmt.Errorf("decode stats for match %d: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMatches returns the total number of recorded matches.
func CountMatches(ctx context.Context, dbx *sql.DB) (int, error) {
	var n int
	err := dbx.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n)
	return n, err
}

// ClearMatches deletes all recorded matches and returns how many were removed.
func ClearMatches(ctx context.Context, dbx *sql.DB) (int64, error) {
	res, err := dbx.ExecContext(ctx, `DELETE FROM matches`)
	if err != nil {
		return 0, fmt.Errorf("clear matches: %w", err)
	}
	return res.RowsAffected()
}
