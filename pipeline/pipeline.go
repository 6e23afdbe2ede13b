// Package pipeline turns game state snapshots into recorded matches and channel
// announcements. It owns the end-of-match detection, the settle delay, and the
// duplicate suppression that keeps one match from being posted twice.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/gsi"
	"github.com/Catsarenotevil/AntonSlayer/report"
	"github.com/Catsarenotevil/AntonSlayer/roast"
	"github.com/Catsarenotevil/AntonSlayer/telemetry"
)

// Match sources.
const (
	SourceGSI       = "gsi"
	SourceSynthetic = "fake"
)

// ErrKillsMaxRange is returned by SetKillsMax for values outside 0..50.
var ErrKillsMaxRange = fmt.Errorf("kills threshold must be between 0 and 50")

// Store persists match records. Implemented by the db package; mocked in tests.
type Store interface {
	InsertMatch(ctx context.Context, m db.Match) (bool, error)
	SigExists(ctx context.Context, sig string) (bool, error)
}

// Announcer delivers a post-match message. Implemented by the Discord layer.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

// AuditLog mirrors recorded matches to durable append-only storage.
type AuditLog interface {
	Append(v any) error
}

// Config carries the processor's tunables.
type Config struct {
	Steam64     string
	KillsMax    int
	SettleDelay time.Duration
}

// Processor is the match pipeline. One instance per tracked player.
type Processor struct {
	store    Store
	announce Announcer
	audit    AuditLog
	sel      *roast.Selector

	steam64     string
	settleDelay time.Duration

	mu          sync.Mutex
	killsMax    int
	lastPostSig string
	lastPhase   string
	locked      bool
	pending     *gsi.Snapshot
	settle      *time.Timer
}

// Result reports what a finalization did, for command feedback and tests.
type Result struct {
	Recorded     bool
	Announced    bool
	Duplicate    bool
	Aborted      bool
	Kills        int
	Announcement *Announcement
}

// New builds a Processor. The roast selector must be non-nil.
func New(cfg Config, store Store, announcer Announcer, audit AuditLog, sel *roast.Selector) *Processor {
	telemetry.Init()
	return &Processor{
		store:       store,
		announce:    announcer,
		audit:       audit,
		sel:         sel,
		steam64:     cfg.Steam64,
		settleDelay: cfg.SettleDelay,
		killsMax:    cfg.KillsMax,
	}
}

// HandleRaw parses a GSI payload body and feeds it to the pipeline. Returns an error
// only when the body is not valid JSON.
func (p *Processor) HandleRaw(ctx context.Context, body []byte) error {
	snap, err := gsi.ParseSnapshot(body)
	if err != nil {
		return err
	}
	if telemetry.SnapshotsReceived != nil {
		telemetry.SnapshotsReceived.Inc()
	}
	p.HandleSnapshot(ctx, snap)
	return nil
}

// HandleSnapshot runs end-of-match detection. The first gameover snapshot arms a settle
// timer and takes the posting lock; later gameover snapshots refresh the pending payload
// so the finalizer sees the most settled scoreboard. Any non-gameover phase releases the
// lock, which is what lets the next match post.
func (p *Processor) HandleSnapshot(ctx context.Context, snap gsi.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastPhase = snap.Phase()
	if p.lastPhase != gsi.PhaseGameOver {
		p.locked = false
		return
	}

	p.pending = &snap
	if p.locked {
		return
	}
	p.locked = true
	telemetry.LoggerWithCorr(ctx).Debug("gameover detected, settle timer armed",
		slog.Duration("settle_delay", p.settleDelay))
	p.settle = time.AfterFunc(p.settleDelay, p.finalizePending)
}

// finalizePending fires on the settle timer. It drains the pending snapshot and always
// releases the posting lock when done, success or not.
func (p *Processor) finalizePending() {
	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.locked = false
		p.mu.Unlock()
	}()

	if snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	telemetry.TimeFunc(telemetry.FinalizeDuration, func() {
		if _, err := p.Finalize(ctx, *snap, SourceGSI); err != nil {
			slog.Error("match finalize failed", slog.Any("error", err))
		}
	})
}

// Finalize records and announces one match-end snapshot. Kill count must be readable
// from the payload or the whole event is silently dropped; a partial post would be
// worse than none.
func (p *Processor) Finalize(ctx context.Context, snap gsi.Snapshot, source string) (Result, error) {
	log := telemetry.LoggerWithCorr(ctx)

	kills, ok := snap.Kills(p.steam64)
	if !ok {
		if telemetry.FinalizeAborts != nil {
			telemetry.FinalizeAborts.Inc()
		}
		log.Debug("kill count undetermined, dropping match-end event")
		return Result{Aborted: true}, nil
	}

	sig := snap.Signature()
	p.mu.Lock()
	lastSig := p.lastPostSig
	killsMax := p.killsMax
	p.mu.Unlock()

	if sig == lastSig {
		if telemetry.DuplicatesSkipped != nil {
			telemetry.DuplicatesSkipped.Inc()
		}
		return Result{Duplicate: true, Kills: kills}, nil
	}
	exists, err := p.store.SigExists(ctx, sig)
	if err != nil {
		return Result{}, fmt.Errorf("check signature: %w", err)
	}
	if exists {
		if telemetry.DuplicatesSkipped != nil {
			telemetry.DuplicatesSkipped.Inc()
		}
		p.setLastSig(sig)
		return Result{Duplicate: true, Kills: kills}, nil
	}

	ts, ok := snap.ProviderTime()
	if !ok {
		ts = time.Now().UTC()
	}
	m := db.Match{
		TS:     ts,
		Kills:  kills,
		Source: source,
		Map:    report.NormalizeMap(snap.MapName()),
		Stats:  snap.ExtractStats(p.steam64),
		Sig:    sig,
	}

	inserted, err := p.store.InsertMatch(ctx, m)
	if err != nil {
		return Result{}, fmt.Errorf("persist match: %w", err)
	}
	if !inserted {
		// Lost the race with another writer holding the same signature. Benign.
		if telemetry.DuplicatesSkipped != nil {
			telemetry.DuplicatesSkipped.Inc()
		}
		p.setLastSig(sig)
		return Result{Duplicate: true, Kills: kills}, nil
	}
	if telemetry.MatchesRecorded != nil {
		telemetry.MatchesRecorded.Inc()
	}
	telemetry.SetLastKills(kills)

	if p.audit != nil {
		if err := p.audit.Append(m); err != nil {
			log.Warn("audit log append failed", slog.Any("error", err))
		}
	}

	a := p.buildAnnouncement(kills, killsMax, m, source)
	p.setLastSig(sig)
	if err := p.announce.Announce(ctx, a); err != nil {
		if telemetry.AnnouncesFailed != nil {
			telemetry.AnnouncesFailed.Inc()
		}
		return Result{Recorded: true, Kills: kills, Announcement: &a}, fmt.Errorf("announce: %w", err)
	}
	if telemetry.AnnouncesSent != nil {
		telemetry.AnnouncesSent.Inc()
	}
	log.Info("match recorded and announced",
		slog.Int("kills", kills),
		slog.String("map", m.Map),
		slog.String("source", source),
		slog.String("branch", string(a.Kind)))
	return Result{Recorded: true, Announced: true, Kills: kills, Announcement: &a}, nil
}

func (p *Processor) buildAnnouncement(kills, killsMax int, m db.Match, source string) Announcement {
	kind := kindForKills(kills)
	line := ""
	switch kind {
	case KindLoss:
		line = p.sel.PickForKills(kills)
	case KindPlain:
		if includeRoast(kills, killsMax) {
			line = p.sel.PickForKills(kills)
		}
	case KindDominance:
		// Dominance posts are celebration only.
	}
	return Announcement{
		Kind:      kind,
		Kills:     kills,
		KillsMax:  killsMax,
		Map:       m.Map,
		Roast:     line,
		Stats:     m.Stats,
		StatsLine: statsLine(m.Stats),
		Synthetic: source == SourceSynthetic,
	}
}

// InjectSynthetic fabricates a match-end event and runs it through the full pipeline,
// dedup included. It bypasses the settle timer and the posting lock; real traffic and
// injected traffic never contend. A zero `at` stamps the event with the current time.
func (p *Processor) InjectSynthetic(ctx context.Context, kills int, mapName string, at time.Time, extra map[string]float64) (Result, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	raw := gsi.BuildSynthetic(p.steam64, kills, mapName, at, extra)
	snap, err := gsi.ParseSnapshot(raw)
	if err != nil {
		return Result{}, fmt.Errorf("build synthetic payload: %w", err)
	}
	return p.Finalize(ctx, snap, SourceSynthetic)
}

func (p *Processor) setLastSig(sig string) {
	p.mu.Lock()
	p.lastPostSig = sig
	p.mu.Unlock()
}

// SetKillsMax updates the roast threshold. Bounds match the config validation.
func (p *Processor) SetKillsMax(n int) error {
	if n < 0 || n > 50 {
		return ErrKillsMaxRange
	}
	p.mu.Lock()
	p.killsMax = n
	p.mu.Unlock()
	return nil
}

// KillsMax returns the current roast threshold.
func (p *Processor) KillsMax() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killsMax
}

// Status is a point-in-time view of the pipeline for the status command and endpoint.
type Status struct {
	PostingLocked bool          `json:"posting_locked"`
	LastPostSig   string        `json:"last_post_sig"`
	LastPhase     string        `json:"last_phase"`
	KillsMax      int           `json:"kills_max"`
	SettleDelay   time.Duration `json:"settle_delay"`
}

// Status reports current pipeline state.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		PostingLocked: p.locked,
		LastPostSig:   p.lastPostSig,
		LastPhase:     p.lastPhase,
		KillsMax:      p.killsMax,
		SettleDelay:   p.settleDelay,
	}
}

// ResetState forgets the last posted signature and releases the posting lock. Used after
// history is cleared so the next match posts cleanly.
func (p *Processor) ResetState() {
	p.mu.Lock()
	p.lastPostSig = ""
	p.lastPhase = ""
	p.locked = false
	p.pending = nil
	p.mu.Unlock()
}

// Close stops any armed settle timer. Call on shutdown.
func (p *Processor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settle != nil {
		p.settle.Stop()
		p.settle = nil
	}
}
