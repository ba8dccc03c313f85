package engine

import (
	"errors"
	"math"
	"time"
)

var ErrProtocol = errors.New("protocol error")
var ErrUnknownRoomReference = errors.New("connection is not in a room")
var ErrRoomFull = errors.New("room is full")
var ErrCrossRoomReference = errors.New("attacker and target are in different rooms")
var ErrTooManyRooms = errors.New("too many empty rooms")

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Teams in tie-break order: red is assigned first when both sides are even.
var Teams = []Team{TeamRed, TeamBlue}

type MapName string

const (
	MapWinter MapName = "winter"
	MapGrass  MapName = "grass"
)

type Vec3 [3]float64

func (v Vec3) finite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

const MaxHealth = 100

// Catalog is the static game content the engine consults: which maps exist,
// where each team spawns on them and which weapons can be fired.
type Catalog interface {
	HasMap(name MapName) bool
	SpawnPoints(name MapName, team Team) []Vec3
	HasWeapon(name string) bool
}

type Rules struct {
	Capacity        int
	MatchDuration   int // seconds
	RespawnDelay    time.Duration
	Intermission    time.Duration
	TimeUpdateEvery int // seconds
	DefaultMap      MapName
	Rotation        []MapName
	DefaultWeapon   string
	MaxNameLength   int
	// MaxIdleRooms caps how many rooms without members OpenRoom will allow.
	// Zero means no cap.
	MaxIdleRooms int
	// IdleRoomTTL is how many ticks a room may stay without members before
	// Tick removes it. Zero keeps empty rooms forever.
	IdleRoomTTL int
}

func DefaultRules() Rules {
	return Rules{
		Capacity:        10,
		MatchDuration:   600,
		RespawnDelay:    3000 * time.Millisecond,
		Intermission:    10000 * time.Millisecond,
		TimeUpdateEvery: 5,
		DefaultMap:      MapWinter,
		Rotation:        []MapName{MapWinter, MapGrass},
		DefaultWeapon:   "AK-47",
		MaxNameLength:   24,
		MaxIdleRooms:    100,
		IdleRoomTTL:     300,
	}
}

type Score struct {
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`
}

type Room struct {
	ID            string
	MapName       MapName
	TimeRemaining int
	Active        bool
	Members       []string
	Teams         map[Team][]string
	Scores        map[string]Score

	epoch uint64
	idle  int // consecutive ticks without members
}

type Player struct {
	ID         string
	Name       string
	RoomID     string
	Team       Team
	Position   Vec3
	Rotation   Vec3
	Health     int
	Weapon     string
	Respawning bool

	life uint64
}

type Outcome string

const (
	OutcomeIgnored Outcome = "ignored"
	OutcomeDamaged Outcome = "damaged"
	OutcomeKilled  Outcome = "killed"
)
