package engine

import (
	"math/rand"
	"testing"
	"time"
)

type stubCatalog struct{}

func (stubCatalog) HasMap(name MapName) bool { return name == MapWinter || name == MapGrass }

func (stubCatalog) SpawnPoints(name MapName, team Team) []Vec3 {
	if team == TeamRed {
		return []Vec3{{-10, 1, 0}, {-12, 1, 2}}
	}
	return []Vec3{{10, 1, 0}, {12, 1, 2}}
}

func (stubCatalog) HasWeapon(name string) bool {
	switch name {
	case "AK-47", "Shotgun", "Sniper", "SMG":
		return true
	}
	return false
}

func newTestRegistry(t *testing.T, mutate ...func(*Rules)) *Registry {
	t.Helper()
	rules := DefaultRules()
	for _, m := range mutate {
		m(&rules)
	}
	r := NewRegistry(rules, stubCatalog{}, rand.New(rand.NewSource(1)))
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return r
}

func mustJoin(t *testing.T, r *Registry, connID, name, code string) JoinResult {
	t.Helper()
	res, _, err := r.Join(connID, name, code)
	if err != nil {
		t.Fatalf("join %s: %v", connID, err)
	}
	return res
}

func eventsOf(fx Effects, kind EventKind) []Outbound {
	var out []Outbound
	for _, ev := range fx.Events {
		if ev.Payload.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

func containsEvent(events []Outbound, kind EventKind) bool {
	for _, event := range events {
		if event.Payload.Kind() == kind {
			return true
		}
	}
	return false
}

// checkRoomInvariants verifies the membership bookkeeping of every room.
func checkRoomInvariants(t *testing.T, r *Registry) {
	t.Helper()
	for _, room := range r.Rooms() {
		if len(room.Members) == 0 {
			t.Fatalf("room %s is empty but still registered", room.ID)
		}
		if len(room.Members) > r.rules.Capacity {
			t.Fatalf("room %s over capacity: %d", room.ID, len(room.Members))
		}
		if got := len(room.Teams[TeamRed]) + len(room.Teams[TeamBlue]); got != len(room.Members) {
			t.Fatalf("room %s: team sizes %d != members %d", room.ID, got, len(room.Members))
		}
		if len(room.Scores) != len(room.Members) {
			t.Fatalf("room %s: %d scores for %d members", room.ID, len(room.Scores), len(room.Members))
		}
		for _, id := range room.Members {
			p, ok := r.players[id]
			if !ok || p.RoomID != room.ID {
				t.Fatalf("room %s: member %s has no matching player record", room.ID, id)
			}
		}
	}
}
