package roast

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTierForKills(t *testing.T) {
	cases := []struct {
		kills int
		want  Tier
	}{
		{0, TierHarsh}, {3, TierHarsh},
		{4, TierModerate}, {8, TierModerate},
		{9, TierLight}, {30, TierLight},
	}
	for _, c := range cases {
		if got := TierForKills(c.kills); got != c.want {
			t.Errorf("TierForKills(%d) = %s, want %s", c.kills, got, c.want)
		}
	}
}

func TestTierForRating(t *testing.T) {
	cases := []struct {
		rating float64
		want   Tier
	}{
		{2.0, TierLight}, {1.51, TierLight},
		{1.5, TierModerate}, {0, TierModerate}, {-2.99, TierModerate},
		{-3.0, TierHarsh}, {-7.5, TierHarsh},
	}
	for _, c := range cases {
		if got := TierForRating(c.rating); got != c.want {
			t.Errorf("TierForRating(%v) = %s, want %s", c.rating, got, c.want)
		}
	}
}

func TestDefaultPoolsNonEmpty(t *testing.T) {
	sel, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	for _, tier := range []Tier{TierHarsh, TierModerate, TierLight} {
		if sel.Pick(tier) == "" {
			t.Errorf("Pick(%s) returned empty line", tier)
		}
	}
}

func TestNewFailsFastOnEmptyTier(t *testing.T) {
	_, err := New(map[Tier][]string{
		TierHarsh:    {"a"},
		TierModerate: {},
		TierLight:    {"c"},
	})
	if err == nil {
		t.Fatal("expected error for empty moderate pool")
	}
}

func TestPickStaysWithinTierPool(t *testing.T) {
	sel, err := New(map[Tier][]string{
		TierHarsh:    {"h1", "h2"},
		TierModerate: {"m1"},
		TierLight:    {"l1"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 50; i++ {
		got := sel.PickForKills(2)
		if got != "h1" && got != "h2" {
			t.Fatalf("PickForKills(2) = %q, outside harsh pool", got)
		}
	}
	if got := sel.PickForKills(12); got != "l1" {
		t.Errorf("PickForKills(12) = %q, want l1", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strings.json")
	if err := os.WriteFile(path, []byte(`{"BRUTAL":["x"],"MEDIUM":["y"],"MILD":["z"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	sel, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := sel.Pick(TierLight); got != "z" {
		t.Errorf("Pick = %q, want z", got)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"BRUTAL":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for empty pools")
	}
}
