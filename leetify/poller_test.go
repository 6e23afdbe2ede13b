package leetify_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/leetify"
	"github.com/Catsarenotevil/AntonSlayer/testutil"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]db.APIMatch // keyed match_id|steam64
	lastID  string
	kv      map[string]string
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]db.APIMatch{}, kv: map[string]string{}}
}

func (s *memStore) UpsertAPIMatch(_ context.Context, m db.APIMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[m.MatchID+"|"+m.Steam64ID] = m
	return nil
}

func (s *memStore) LastAPIMatchID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID, nil
}

func (s *memStore) SetLastAPIMatchID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID = id
	return nil
}

func (s *memStore) SetKV(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

type memAnnouncer struct {
	mu    sync.Mutex
	calls []string
}

func (a *memAnnouncer) AnnounceAPIMatch(_ context.Context, m leetify.Match, _ leetify.PlayerStats, _ *leetify.Profile) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, m.ID)
	return nil
}

func TestPollOnceAnnouncesNewestOnce(t *testing.T) {
	srv := testutil.NewMockLeetifyServer(t)
	srv.MockMatchesResponse([]map[string]interface{}{
		sampleMatch("m-new", -4.0),
		sampleMatch("m-old", 0.5),
	})
	srv.MockProfileResponse(map[string]interface{}{
		"winrate": 0.5,
		"ranks":   map[string]interface{}{"premier": 10000, "faceit": 5, "leetify": 0.1},
	})

	store := newMemStore()
	ann := &memAnnouncer{}
	p := leetify.NewPoller(leetify.NewClient("tok", srv.URL), store, ann, steamID, time.Minute)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	// Every player row of every match is persisted.
	if len(store.rows) != 4 {
		t.Errorf("rows = %d, want 4", len(store.rows))
	}
	if len(ann.calls) != 1 || ann.calls[0] != "m-new" {
		t.Errorf("announces = %v, want just m-new", ann.calls)
	}
	if store.lastID != "m-new" {
		t.Errorf("lastID = %q", store.lastID)
	}
	if store.kv["job_leetify_poll_last"] == "" {
		t.Error("heartbeat kv not written")
	}

	// Second cycle with the same newest match stays quiet.
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(ann.calls) != 1 {
		t.Errorf("announces after repeat = %v", ann.calls)
	}
}

func TestPollOncePostponesWhenProfileDown(t *testing.T) {
	srv := testutil.NewMockLeetifyServer(t)
	srv.MockMatchesResponse([]map[string]interface{}{sampleMatch("m-1", 1.0)})
	srv.MockErrorResponse("/v3/profile", http.StatusInternalServerError)

	store := newMemStore()
	ann := &memAnnouncer{}
	p := leetify.NewPoller(leetify.NewClient("tok", srv.URL), store, ann, steamID, time.Minute)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(ann.calls) != 0 {
		t.Errorf("announced despite profile failure: %v", ann.calls)
	}
	if store.lastID != "" {
		t.Error("lastID must stay unset so the next cycle retries the announce")
	}

	// Profile recovers; the match announces on the next cycle.
	srv.MockProfileResponse(map[string]interface{}{"winrate": 0.4, "ranks": map[string]interface{}{}})
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(ann.calls) != 1 || store.lastID != "m-1" {
		t.Errorf("announces = %v, lastID = %q", ann.calls, store.lastID)
	}
}

func TestPollOnceEmptyHistory(t *testing.T) {
	srv := testutil.NewMockLeetifyServer(t)
	srv.MockMatchesResponse(nil)
	store := newMemStore()
	p := leetify.NewPoller(leetify.NewClient("tok", srv.URL), store, &memAnnouncer{}, steamID, time.Minute)
	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(store.rows) != 0 || store.lastID != "" {
		t.Errorf("store mutated on empty history: %+v", store.rows)
	}
}

func TestStartPollJobStopsOnCancel(t *testing.T) {
	srv := testutil.NewMockLeetifyServer(t)
	srv.MockMatchesResponse(nil)
	p := leetify.NewPoller(leetify.NewClient("tok", srv.URL), newMemStore(), nil, steamID, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.StartPollJob(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poll job did not stop on cancel")
	}
}
