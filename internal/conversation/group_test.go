package conversation

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

func TestMergeOrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		var confirmed, pending []types.Message
		nc, np := rng.Intn(20), rng.Intn(5)
		for i := 0; i < nc; i++ {
			confirmed = append(confirmed, msg("c"+string(rune('a'+i)), "x", "c", testEpoch.Add(time.Duration(rng.Intn(600))*time.Second)))
		}
		for i := 0; i < np; i++ {
			p := msg("p"+string(rune('a'+i)), "me", "p", testEpoch.Add(time.Duration(rng.Intn(600))*time.Second))
			p.Status = types.StatusSending
			pending = append(pending, p)
		}

		merged := Merge(confirmed, pending)
		if len(merged) != len(confirmed)+len(pending) {
			t.Fatalf("round %d: expected %d entries, got %d", round, len(confirmed)+len(pending), len(merged))
		}
		seen := make(map[string]bool)
		for i, m := range merged {
			if seen[m.ID] {
				t.Fatalf("round %d: duplicate %s", round, m.ID)
			}
			seen[m.ID] = true
			if i > 0 && m.CreatedAt.Before(merged[i-1].CreatedAt) {
				t.Fatalf("round %d: merged view not sorted at %d", round, i)
			}
		}
	}
}

func TestMergeStableOnTies(t *testing.T) {
	a := msg("a", "x", "a", testEpoch)
	b := msg("b", "x", "b", testEpoch)
	p := msg("p", "me", "p", testEpoch)
	p.Status = types.StatusSending

	equalIDs(t, Merge([]types.Message{a, b}, []types.Message{p}), "a", "b", "p")
}

func TestGroupDateSeparators(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	confirmed := []types.Message{
		msg("m1", "a", "one", day1),
		msg("m2", "a", "two", day1.Add(time.Minute)),
		msg("m3", "a", "three", day1.Add(3*time.Hour)),
	}

	groups := Group(confirmed, nil, GroupOptions{Location: time.UTC})
	var kinds []string
	separators := 0
	for _, g := range groups {
		if g.Kind == types.GroupDateSeparator {
			separators++
			kinds = append(kinds, "date")
			continue
		}
		kinds = append(kinds, g.Message.ID)
	}
	if separators != 2 {
		t.Fatalf("expected 2 date separators, got %d (%v)", separators, kinds)
	}
	want := []string{"date", "m1", "m2", "date", "m3"}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	if !groups[4].FirstInCluster || !groups[2].LastInCluster {
		t.Fatalf("day change must split clusters")
	}
}

func TestGroupDateUsesLocation(t *testing.T) {
	tz := time.FixedZone("UTC+3", 3*60*60)
	// 20:00 and 21:30 UTC fall on different days at UTC+3.
	confirmed := []types.Message{
		msg("m1", "a", "x", time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)),
		msg("m2", "a", "y", time.Date(2024, 3, 1, 21, 30, 0, 0, time.UTC)),
	}
	if n := countSeparators(Group(confirmed, nil, GroupOptions{Location: time.UTC})); n != 1 {
		t.Fatalf("expected 1 separator in UTC, got %d", n)
	}
	if n := countSeparators(Group(confirmed, nil, GroupOptions{Location: tz})); n != 2 {
		t.Fatalf("expected 2 separators in UTC+3, got %d", n)
	}
}

func countSeparators(groups []types.Group) int {
	n := 0
	for _, g := range groups {
		if g.Kind == types.GroupDateSeparator {
			n++
		}
	}
	return n
}

func TestGroupClusters(t *testing.T) {
	t0 := testEpoch
	confirmed := []types.Message{
		msg("m1", "a", "1", t0),
		msg("m2", "a", "2", t0.Add(time.Minute)),
		msg("m3", "b", "3", t0.Add(2*time.Minute)),
		msg("m4", "b", "4", t0.Add(8*time.Minute)),
	}
	pending := []types.Message{msg("p1", "b", "5", t0.Add(9*time.Minute))}
	pending[0].Status = types.StatusSending

	groups := Group(confirmed, pending, GroupOptions{Location: time.UTC, SelfID: "b"})
	type flags struct{ first, last, avatar bool }
	want := map[string]flags{
		"m1": {first: true, last: false, avatar: true},
		"m2": {first: false, last: true, avatar: false},
		"m3": {first: true, last: true, avatar: false},
		"m4": {first: true, last: false, avatar: false},
		"p1": {first: false, last: true, avatar: false},
	}
	for _, g := range groups {
		if g.Kind != types.GroupMessage {
			continue
		}
		got := flags{g.FirstInCluster, g.LastInCluster, g.ShowAvatar}
		if got != want[g.Message.ID] {
			t.Errorf("%s: got %+v want %+v", g.Message.ID, got, want[g.Message.ID])
		}
	}
}

func TestGroupDeterministic(t *testing.T) {
	t0 := testEpoch
	confirmed := []types.Message{
		msg("m1", "a", "1", t0),
		msg("m2", "b", "2", t0),
		msg("m3", "a", "3", t0.Add(26*time.Hour)),
	}
	opts := GroupOptions{Location: time.UTC}
	if !reflect.DeepEqual(Group(confirmed, nil, opts), Group(confirmed, nil, opts)) {
		t.Fatalf("group output differs between calls")
	}
	if Group(nil, nil, opts) != nil {
		t.Fatalf("expected nil groups for empty input")
	}
}
