package db

import (
	"context"
	"database/sql"
	"time"
)

// Store bundles the package-level query helpers behind one value so consumers can take
// a narrow interface instead of *sql.DB.
type Store struct {
	DB *sql.DB
}

func NewStore(dbx *sql.DB) *Store { return &Store{DB: dbx} }

func (s *Store) InsertMatch(ctx context.Context, m Match) (bool, error) {
	return InsertMatch(ctx, s.DB, m)
}

func (s *Store) SigExists(ctx context.Context, sig string) (bool, error) {
	return SigExists(ctx, s.DB, sig)
}

func (s *Store) MatchesSince(ctx context.Context, since time.Time) ([]Match, error) {
	return MatchesSince(ctx, s.DB, since)
}

func (s *Store) RecentMatches(ctx context.Context, n int) ([]Match, error) {
	return RecentMatches(ctx, s.DB, n)
}

func (s *Store) CountMatches(ctx context.Context) (int, error) {
	return CountMatches(ctx, s.DB)
}

func (s *Store) ClearMatches(ctx context.Context) (int64, error) {
	return ClearMatches(ctx, s.DB)
}

func (s *Store) UpsertAPIMatch(ctx context.Context, m APIMatch) error {
	return UpsertAPIMatch(ctx, s.DB, m)
}

func (s *Store) LastAPIMatchID(ctx context.Context) (string, error) {
	return LastAPIMatchID(ctx, s.DB)
}

func (s *Store) SetLastAPIMatchID(ctx context.Context, id string) error {
	return SetLastAPIMatchID(ctx, s.DB, id)
}

func (s *Store) MapSummaries(ctx context.Context, steam64, mapName string) ([]MapSummary, error) {
	return MapSummaries(ctx, s.DB, steam64, mapName)
}

func (s *Store) KnownMaps(ctx context.Context, steam64 string) ([]string, error) {
	return KnownMaps(ctx, s.DB, steam64)
}

func (s *Store) GetKV(ctx context.Context, key string) (string, error) {
	return GetKV(ctx, s.DB, key)
}

func (s *Store) SetKV(ctx context.Context, key, value string) error {
	return SetKV(ctx, s.DB, key, value)
}
