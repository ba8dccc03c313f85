package engine

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"
	"time"
)

// Registry is the single owner of room and player records. It is not safe
// for concurrent use: one event loop drives every mutation.
type Registry struct {
	rules   Rules
	catalog Catalog
	rng     *rand.Rand
	now     func() time.Time

	rooms   map[string]*Room
	order   []string // room ids in creation order
	players map[string]*Player
	epoch   uint64
}

func NewRegistry(rules Rules, catalog Catalog, rng *rand.Rand) *Registry {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{
		rules:   rules,
		catalog: catalog,
		rng:     rng,
		now:     time.Now,
		rooms:   make(map[string]*Room),
		players: make(map[string]*Player),
	}
}

func (r *Registry) Rules() Rules { return r.rules }

// CreateRoom returns the room with the given id, creating it on first use.
// An existing room is returned untouched.
func (r *Registry) CreateRoom(id string, mapName MapName) *Room {
	if room, ok := r.rooms[id]; ok {
		return room
	}
	if mapName == "" || (r.catalog != nil && !r.catalog.HasMap(mapName)) {
		mapName = r.rules.DefaultMap
	}

	r.epoch++
	room := &Room{
		ID:            id,
		MapName:       mapName,
		TimeRemaining: r.rules.MatchDuration,
		Active:        true,
		Members:       []string{},
		Teams:         map[Team][]string{TeamRed: {}, TeamBlue: {}},
		Scores:        map[string]Score{},
		epoch:         r.epoch,
	}
	r.rooms[id] = room
	r.order = append(r.order, id)
	return room
}

// OpenRoom is CreateRoom for callers that create rooms nobody has joined
// yet. It reports whether the room is new and refuses to go past
// Rules.MaxIdleRooms rooms without members.
func (r *Registry) OpenRoom(id string, mapName MapName) (*Room, bool, error) {
	if room, ok := r.rooms[id]; ok {
		return room, false, nil
	}
	if limit := r.rules.MaxIdleRooms; limit > 0 && r.idleRooms() >= limit {
		return nil, false, fmt.Errorf("open %s: %w", id, ErrTooManyRooms)
	}
	return r.CreateRoom(id, mapName), true, nil
}

func (r *Registry) idleRooms() int {
	n := 0
	for _, room := range r.rooms {
		if len(room.Members) == 0 {
			n++
		}
	}
	return n
}

func (r *Registry) Room(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Registry) RemoveRoom(id string) {
	if _, ok := r.rooms[id]; !ok {
		return
	}
	delete(r.rooms, id)
	r.order = slices.DeleteFunc(r.order, func(x string) bool { return x == id })
}

// Rooms returns every room in creation order.
func (r *Registry) Rooms() []*Room {
	out := make([]*Room, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rooms[id])
	}
	return out
}

// JoinableRooms returns active rooms below capacity, oldest first.
func (r *Registry) JoinableRooms() []*Room {
	var out []*Room
	for _, id := range r.order {
		room := r.rooms[id]
		if room.Active && len(room.Members) < r.rules.Capacity {
			out = append(out, room)
		}
	}
	return out
}

func (r *Registry) Player(id string) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// Players returns every player record ordered by room, then join order.
func (r *Registry) Players() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, room := range r.Rooms() {
		for _, id := range room.Members {
			if p, ok := r.players[id]; ok {
				out = append(out, p)
			}
		}
	}
	return out
}

func (r *Registry) Snapshot(id string) (RoomSnapshot, bool) {
	room, ok := r.rooms[id]
	if !ok {
		return RoomSnapshot{}, false
	}
	return room.snapshot(), true
}

func (r *Registry) newRoomID() string {
	base := fmt.Sprintf("game_%d", r.now().UnixMilli())
	id := base
	for n := 2; r.rooms[id] != nil; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (room *Room) snapshot() RoomSnapshot {
	return RoomSnapshot{
		ID:            room.ID,
		MapName:       room.MapName,
		TimeRemaining: room.TimeRemaining,
		Active:        room.Active,
		Players:       slices.Clone(room.Members),
		Teams:         copyTeams(room.Teams),
		Scores:        maps.Clone(room.Scores),
	}
}

func (room *Room) others(except string) []string {
	out := make([]string, 0, len(room.Members))
	for _, id := range room.Members {
		if id != except {
			out = append(out, id)
		}
	}
	return out
}

func (room *Room) everyone() []string {
	return slices.Clone(room.Members)
}

func (room *Room) removeMember(id string, team Team) {
	room.Members = removeID(room.Members, id)
	room.Teams[team] = removeID(room.Teams[team], id)
	delete(room.Scores, id)
}

func (p *Player) summary() PlayerSummary {
	return PlayerSummary{
		ID:       p.ID,
		Name:     p.Name,
		Team:     p.Team,
		Position: p.Position,
		Rotation: p.Rotation,
		Health:   p.Health,
		Weapon:   p.Weapon,
	}
}
