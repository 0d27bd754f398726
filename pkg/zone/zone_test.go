package zone

import (
	"slices"
	"testing"
)

func TestPriority(t *testing.T) {
	score := Priority([]string{"europe", "us", "*", "asia"})

	tests := []struct {
		zone string
		want int
	}{
		{"europe-west4-a", 0},
		{"europe-north1-b", 0},
		{"us-central1-a", 1},
		{"us-east1-c", 1},
		{"australia-southeast1-a", 2},
		{"southamerica-east1-b", 2},
		{"asia-east1-a", 3},
		{"asia-northeast1-b", 3},
	}

	for _, tt := range tests {
		if got := score(tt.zone); got != tt.want {
			t.Errorf("score(%q) = %d, want %d", tt.zone, got, tt.want)
		}
	}
}

func TestPriority_NoWildcard(t *testing.T) {
	score := Priority([]string{"europe", "us"})

	if got := score("europe-west4-a"); got != 0 {
		t.Errorf("score(europe-west4-a) = %d, want 0", got)
	}
	if got := score("asia-east1-a"); got != 2 {
		t.Errorf("score(asia-east1-a) = %d, want 2 (past end of list)", got)
	}
}

func TestRank(t *testing.T) {
	zones := []string{
		"asia-east1-a",
		"us-central1-a",
		"australia-southeast1-a",
		"europe-west4-a",
	}

	got := Rank(zones, []string{"europe", "us", "*", "asia"})
	want := []string{
		"europe-west4-a",
		"us-central1-a",
		"australia-southeast1-a",
		"asia-east1-a",
	}

	if !slices.Equal(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	zones := []string{
		"us-east1-b",
		"us-central1-a",
		"us-west1-a",
	}

	got := Rank(zones, []string{"us"})
	if !slices.Equal(got, zones) {
		t.Errorf("Rank() = %v, want input order %v preserved", got, zones)
	}
}

func TestRank_Idempotent(t *testing.T) {
	zones := []string{
		"asia-east1-a",
		"europe-west4-a",
		"us-central1-a",
		"australia-southeast1-a",
		"europe-west1-b",
	}

	once := Rank(zones, DefaultOrder)
	twice := Rank(once, DefaultOrder)

	if !slices.Equal(once, twice) {
		t.Errorf("Rank(Rank(zones)) = %v, want %v", twice, once)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	zones := []string{"asia-east1-a", "europe-west4-a"}
	orig := slices.Clone(zones)

	Rank(zones, DefaultOrder)
	if !slices.Equal(zones, orig) {
		t.Errorf("Rank mutated its input: %v", zones)
	}
}

func TestRank_EmptyOrderUsesDefault(t *testing.T) {
	zones := []string{"asia-east1-a", "europe-west4-a"}

	got := Rank(zones, nil)
	want := []string{"europe-west4-a", "asia-east1-a"}

	if !slices.Equal(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
}
