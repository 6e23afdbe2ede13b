package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/gsi"
	"github.com/Catsarenotevil/AntonSlayer/roast"
)

const steamID = "76561198000000001"

type fakeStore struct {
	mu        sync.Mutex
	sigs      map[string]bool
	inserted  []db.Match
	insertErr error
}

func newFakeStore() *fakeStore { return &fakeStore{sigs: map[string]bool{}} }

func (s *fakeStore) InsertMatch(_ context.Context, m db.Match) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if s.sigs[m.Sig] {
		return false, nil
	}
	s.sigs[m.Sig] = true
	s.inserted = append(s.inserted, m)
	return true, nil
}

func (s *fakeStore) SigExists(_ context.Context, sig string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sigs[sig], nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type fakeAnnouncer struct {
	mu   sync.Mutex
	sent []Announcement
	err  error
}

func (a *fakeAnnouncer) Announce(_ context.Context, ann Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.sent = append(a.sent, ann)
	return nil
}

func (a *fakeAnnouncer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sent)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []any
}

func (f *fakeAudit) Append(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, v)
	return nil
}

func newProcessor(t *testing.T, killsMax int, settle time.Duration) (*Processor, *fakeStore, *fakeAnnouncer, *fakeAudit) {
	t.Helper()
	sel, err := roast.Default()
	if err != nil {
		t.Fatal(err)
	}
	store := newFakeStore()
	ann := &fakeAnnouncer{}
	audit := &fakeAudit{}
	p := New(Config{Steam64: steamID, KillsMax: killsMax, SettleDelay: settle}, store, ann, audit, sel)
	t.Cleanup(p.Close)
	return p, store, ann, audit
}

func snapWithKills(t *testing.T, kills int, ts time.Time) gsi.Snapshot {
	t.Helper()
	snap, err := gsi.ParseSnapshot(gsi.BuildSynthetic(steamID, kills, "de_dust2", ts, map[string]float64{"deaths": 10}))
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestFinalizeRecordsAndAnnounces(t *testing.T) {
	p, store, ann, audit := newProcessor(t, 12, time.Millisecond)
	ts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	res, err := p.Finalize(context.Background(), snapWithKills(t, 10, ts), SourceGSI)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !res.Recorded || !res.Announced || res.Kills != 10 {
		t.Fatalf("Result = %+v", res)
	}
	if store.count() != 1 {
		t.Errorf("inserted = %d, want 1", store.count())
	}
	m := store.inserted[0]
	if m.Kills != 10 || m.Source != SourceGSI || m.Map != "dust2" || !m.TS.Equal(ts) {
		t.Errorf("stored match = %+v", m)
	}
	if ann.count() != 1 {
		t.Fatalf("announced = %d, want 1", ann.count())
	}
	a := ann.sent[0]
	if a.Kind != KindPlain || a.Roast == "" {
		t.Errorf("announcement = %+v; 10 kills under threshold 12 should be plain with roast", a)
	}
	if len(audit.entries) != 1 {
		t.Errorf("audit entries = %d, want 1", len(audit.entries))
	}
}

func TestFinalizeAbortsWhenKillsUndetermined(t *testing.T) {
	p, store, ann, _ := newProcessor(t, 12, time.Millisecond)
	snap, err := gsi.ParseSnapshot([]byte(`{"map":{"phase":"gameover","name":"de_nuke","round":20}}`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Finalize(context.Background(), snap, SourceGSI)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !res.Aborted || res.Recorded {
		t.Errorf("Result = %+v, want silent abort", res)
	}
	if store.count() != 0 || ann.count() != 0 {
		t.Error("aborted finalize must not persist or announce")
	}
}

func TestFinalizeDuplicateSuppression(t *testing.T) {
	p, store, ann, _ := newProcessor(t, 12, time.Millisecond)
	ts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	snap := snapWithKills(t, 10, ts)

	if _, err := p.Finalize(context.Background(), snap, SourceGSI); err != nil {
		t.Fatal(err)
	}
	// Same signature again: in-memory fast path.
	res, err := p.Finalize(context.Background(), snap, SourceGSI)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Duplicate {
		t.Errorf("Result = %+v, want duplicate", res)
	}
	// Forget the in-memory sig; the store still knows it.
	p.ResetState()
	res, err = p.Finalize(context.Background(), snap, SourceGSI)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Duplicate {
		t.Errorf("Result after reset = %+v, want duplicate via store", res)
	}
	if store.count() != 1 || ann.count() != 1 {
		t.Errorf("store=%d announces=%d, want 1/1", store.count(), ann.count())
	}
}

func TestBranchSelection(t *testing.T) {
	cases := []struct {
		kills     int
		killsMax  int
		wantKind  Kind
		wantRoast bool
	}{
		{3, 12, KindLoss, true},
		{4, 0, KindLoss, true}, // under 5 kills roasts even with threshold 0
		{5, 12, KindPlain, true},
		{10, 12, KindPlain, true},
		{12, 12, KindPlain, true},
		{13, 12, KindPlain, false},
		{10, 8, KindPlain, false},
		{20, 25, KindPlain, true},
		{21, 12, KindDominance, false},
		{25, 50, KindDominance, false}, // dominance never roasts, threshold be damned
	}
	base := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	for i, c := range cases {
		p, _, ann, _ := newProcessor(t, c.killsMax, time.Millisecond)
		res, err := p.Finalize(context.Background(), snapWithKills(t, c.kills, base.Add(time.Duration(i)*time.Minute)), SourceGSI)
		if err != nil {
			t.Fatalf("kills=%d: %v", c.kills, err)
		}
		if !res.Recorded {
			t.Fatalf("kills=%d not recorded: %+v", c.kills, res)
		}
		a := ann.sent[0]
		if a.Kind != c.wantKind {
			t.Errorf("kills=%d max=%d: kind=%s, want %s", c.kills, c.killsMax, a.Kind, c.wantKind)
		}
		if (a.Roast != "") != c.wantRoast {
			t.Errorf("kills=%d max=%d: roast=%q, wantRoast=%v", c.kills, c.killsMax, a.Roast, c.wantRoast)
		}
	}
}

func TestAnnounceFailureStillRecords(t *testing.T) {
	p, store, ann, _ := newProcessor(t, 12, time.Millisecond)
	ann.err = errors.New("discord down")
	ts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	res, err := p.Finalize(context.Background(), snapWithKills(t, 10, ts), SourceGSI)
	if err == nil {
		t.Fatal("expected announce error")
	}
	if !res.Recorded || res.Announced {
		t.Errorf("Result = %+v, want recorded but not announced", res)
	}
	if store.count() != 1 {
		t.Errorf("match must persist even when the announce fails")
	}
	// The signature is remembered; a retry of the same payload is a duplicate, not a
	// second post.
	ann.err = nil
	res, err = p.Finalize(context.Background(), snapWithKills(t, 10, ts), SourceGSI)
	if err != nil || !res.Duplicate {
		t.Errorf("retry = %+v, %v", res, err)
	}
}

func TestHandleSnapshotSettlesAndPostsOnce(t *testing.T) {
	p, store, ann, _ := newProcessor(t, 12, 20*time.Millisecond)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	// A burst of gameover snapshots for the same match.
	for i := 0; i < 5; i++ {
		p.HandleSnapshot(ctx, snapWithKills(t, 10, ts))
	}
	if !p.Status().PostingLocked {
		t.Fatal("posting lock should be held while the settle timer is armed")
	}

	waitFor(t, func() bool { return ann.count() == 1 })
	waitFor(t, func() bool { return !p.Status().PostingLocked })
	if store.count() != 1 {
		t.Errorf("stored = %d, want 1", store.count())
	}

	// Next round starts (non-gameover), then a new match ends.
	p.HandleSnapshot(ctx, mustSnap(t, `{"map":{"phase":"live","name":"de_dust2","round":1}}`))
	p.HandleSnapshot(ctx, snapWithKills(t, 22, ts.Add(time.Hour)))
	waitFor(t, func() bool { return ann.count() == 2 })
	if ann.sent[1].Kind != KindDominance {
		t.Errorf("second announcement = %+v", ann.sent[1])
	}
}

func TestStatusTracksLastPhase(t *testing.T) {
	p, _, _, _ := newProcessor(t, 12, time.Hour)
	ctx := context.Background()

	if got := p.Status().LastPhase; got != "" {
		t.Fatalf("initial phase = %q, want empty", got)
	}
	p.HandleSnapshot(ctx, mustSnap(t, `{"map":{"phase":"live","name":"de_dust2","round":1}}`))
	if got := p.Status().LastPhase; got != "live" {
		t.Errorf("phase = %q, want live", got)
	}
	p.HandleSnapshot(ctx, snapWithKills(t, 10, time.Now()))
	if got := p.Status().LastPhase; got != gsi.PhaseGameOver {
		t.Errorf("phase = %q, want %q", got, gsi.PhaseGameOver)
	}
	p.ResetState()
	if got := p.Status().LastPhase; got != "" {
		t.Errorf("phase after reset = %q, want empty", got)
	}
}

func TestHandleRawRejectsBadJSON(t *testing.T) {
	p, _, _, _ := newProcessor(t, 12, time.Millisecond)
	if err := p.HandleRaw(context.Background(), []byte("{nope")); err == nil {
		t.Fatal("expected parse error")
	}
	if err := p.HandleRaw(context.Background(), []byte(`{"map":{"phase":"live"}}`)); err != nil {
		t.Fatalf("valid payload: %v", err)
	}
}

func TestInjectSynthetic(t *testing.T) {
	p, store, ann, _ := newProcessor(t, 12, time.Hour) // long settle proves injection bypasses it
	res, err := p.InjectSynthetic(context.Background(), 4, "de_inferno", time.Time{}, map[string]float64{"deaths": 16})
	if err != nil {
		t.Fatalf("InjectSynthetic: %v", err)
	}
	if !res.Recorded || !res.Announced {
		t.Fatalf("Result = %+v", res)
	}
	if store.inserted[0].Source != SourceSynthetic {
		t.Errorf("source = %q", store.inserted[0].Source)
	}
	a := ann.sent[0]
	if !a.Synthetic || a.Kind != KindLoss || a.Roast == "" {
		t.Errorf("announcement = %+v", a)
	}
	if a.Map != "inferno" {
		t.Errorf("map = %q, want normalized inferno", a.Map)
	}
}

func TestSetKillsMaxBounds(t *testing.T) {
	p, _, _, _ := newProcessor(t, 12, time.Millisecond)
	if err := p.SetKillsMax(0); err != nil {
		t.Errorf("SetKillsMax(0): %v", err)
	}
	if err := p.SetKillsMax(50); err != nil {
		t.Errorf("SetKillsMax(50): %v", err)
	}
	if p.KillsMax() != 50 {
		t.Errorf("KillsMax = %d", p.KillsMax())
	}
	if err := p.SetKillsMax(-1); !errors.Is(err, ErrKillsMaxRange) {
		t.Errorf("SetKillsMax(-1) = %v", err)
	}
	if err := p.SetKillsMax(51); !errors.Is(err, ErrKillsMaxRange) {
		t.Errorf("SetKillsMax(51) = %v", err)
	}
	if p.KillsMax() != 50 {
		t.Error("rejected values must not change the threshold")
	}
}

func TestStatsLine(t *testing.T) {
	got := statsLine(gsi.Stats{
		gsi.StatDeaths: 12, gsi.StatKD: 0.83, gsi.StatADR: 63.4, gsi.StatHSPercent: 40,
	})
	want := "Deaths 12 | K/D 0.83 | ADR 63.4 | HS% 40.0"
	if got != want {
		t.Errorf("statsLine = %q, want %q", got, want)
	}
	if statsLine(nil) != "" {
		t.Errorf("empty stats should render empty line")
	}
}

func mustSnap(t *testing.T, data string) gsi.Snapshot {
	t.Helper()
	snap, err := gsi.ParseSnapshot([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
