package leetify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/telemetry"
)

// Store is the slice of persistence the poller needs. *db.Store satisfies it.
type Store interface {
	UpsertAPIMatch(ctx context.Context, m db.APIMatch) error
	LastAPIMatchID(ctx context.Context) (string, error)
	SetLastAPIMatchID(ctx context.Context, id string) error
	SetKV(ctx context.Context, key, value string) error
}

// Announcer posts the API-sourced post-match analysis. Implemented by the Discord layer.
type Announcer interface {
	AnnounceAPIMatch(ctx context.Context, m Match, stats PlayerStats, profile *Profile) error
}

// Poller periodically fetches recent matches, persists every player row, and announces
// the newest match exactly once.
type Poller struct {
	client   *Client
	store    Store
	announce Announcer
	steam64  string
	interval time.Duration
}

// NewPoller builds a Poller. The announcer may be nil for headless runs; persistence
// still happens.
func NewPoller(client *Client, store Store, announcer Announcer, steam64 string, interval time.Duration) *Poller {
	telemetry.Init()
	return &Poller{client: client, store: store, announce: announcer, steam64: steam64, interval: interval}
}

// StartPollJob runs the poll loop until ctx is cancelled. An immediate cycle runs at
// boot so a match finished while the bot was down posts without waiting an interval.
func (p *Poller) StartPollJob(ctx context.Context) {
	slog.Info("leetify poll job starting",
		slog.Duration("interval", p.interval), slog.String("steam64", p.steam64))
	if err := p.PollOnce(ctx); err != nil {
		slog.Warn("leetify poll", slog.Any("err", err))
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("leetify poll job stopped")
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				slog.Warn("leetify poll", slog.Any("err", err))
			}
		}
	}
}

// PollOnce runs a single poll cycle.
func (p *Poller) PollOnce(ctx context.Context) error {
	if telemetry.APIPollCycles != nil {
		telemetry.APIPollCycles.Inc()
	}
	var err error
	telemetry.TimeFunc(telemetry.APIPollDuration, func() {
		err = p.pollOnce(ctx)
	})
	return err
}

func (p *Poller) pollOnce(ctx context.Context) error {
	// Heartbeat for the status endpoint.
	_ = p.store.SetKV(ctx, "job_leetify_poll_last", time.Now().UTC().Format(time.RFC3339))

	matches, err := p.client.RecentMatches(ctx, p.steam64)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		slog.Debug("leetify returned no matches")
		return nil
	}

	for _, m := range matches {
		for _, stats := range m.Stats {
			if err := p.store.UpsertAPIMatch(ctx, m.Row(stats)); err != nil {
				return err
			}
			if telemetry.APIMatchesUpserted != nil {
				telemetry.APIMatchesUpserted.Inc()
			}
		}
	}

	latest := matches[0]
	lastID, err := p.store.LastAPIMatchID(ctx)
	if err != nil {
		return err
	}
	if latest.ID == lastID {
		return nil
	}
	stats := latest.StatsFor(p.steam64)
	if stats == nil {
		slog.Warn("latest match has no player stats", slog.String("match_id", latest.ID))
		return p.store.SetLastAPIMatchID(ctx, latest.ID)
	}

	if p.announce != nil {
		// Profile fetch failing postpones the announce to the next cycle rather than
		// posting a half-filled analysis.
		profile, err := p.client.Profile(ctx, p.steam64)
		if err != nil {
			slog.Warn("profile fetch failed, postponing announce", slog.Any("err", err))
			return nil
		}
		if err := p.announce.AnnounceAPIMatch(ctx, latest, *stats, profile); err != nil {
			if telemetry.AnnouncesFailed != nil {
				telemetry.AnnouncesFailed.Inc()
			}
			return err
		}
		if telemetry.AnnouncesSent != nil {
			telemetry.AnnouncesSent.Inc()
		}
	}
	slog.Info("api match announced", slog.String("match_id", latest.ID),
		slog.String("map", latest.MapName), slog.Float64("rating", stats.LeetifyRating))
	return p.store.SetLastAPIMatchID(ctx, latest.ID)
}
