package engine

import "time"

/*
	Inbound (client -> server)        Outbound (server -> clients)
	JoinGame       -> Join            GameJoined (joiner) + PlayerJoined (room minus joiner)
	UpdatePosition -> ApplyMove       PlayerMoved (room minus sender)
	PlayerShoot    -> ApplyShot       PlayerShot (room minus sender)
	PlayerHit      -> ApplyHit        PlayerDamaged (target) | PlayerKilled (room) -> later PlayerRespawn (target)
	disconnect     -> Leave           PlayerLeft (room minus leaver)
	clock          -> Tick            TimeUpdate | GameEnded (room) -> later NewGame (room)
*/

type Inbound interface{ isInbound() }

type JoinGame struct {
	PlayerName string `json:"playerName"`
	InviteCode string `json:"inviteCode,omitempty"`
}

type UpdatePosition struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
}

type PlayerShoot struct {
	WeaponType string `json:"weaponType"`
	Position   Vec3   `json:"position"`
	Direction  Vec3   `json:"direction"`
}

type PlayerHit struct {
	TargetID string `json:"targetId"`
	Damage   int    `json:"damage"`
}

func (JoinGame) isInbound()       {}
func (UpdatePosition) isInbound() {}
func (PlayerShoot) isInbound()    {}
func (PlayerHit) isInbound()      {}

type EventKind string

const (
	EvtGameJoined    EventKind = "game_joined"
	EvtPlayerJoined  EventKind = "player_joined"
	EvtPlayerLeft    EventKind = "player_left"
	EvtPlayerMoved   EventKind = "player_moved"
	EvtPlayerShot    EventKind = "player_shot"
	EvtPlayerDamaged EventKind = "player_damaged"
	EvtPlayerKilled  EventKind = "player_killed"
	EvtPlayerRespawn EventKind = "player_respawn"
	EvtTimeUpdate    EventKind = "time_update"
	EvtGameEnded     EventKind = "game_ended"
	EvtNewGame       EventKind = "new_game"
	EvtJoinRejected  EventKind = "join_rejected"
)

// Payload is an outbound event body. Kind names the event on the wire.
type Payload interface{ Kind() EventKind }

type PlayerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Team     Team   `json:"team"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
	Health   int    `json:"health"`
	Weapon   string `json:"weapon"`
}

type RoomSnapshot struct {
	ID            string            `json:"id"`
	MapName       MapName           `json:"mapName"`
	TimeRemaining int               `json:"timeRemaining"`
	Active        bool              `json:"active"`
	Players       []string          `json:"players"`
	Teams         map[Team][]string `json:"teams"`
	Scores        map[string]Score  `json:"scores"`
}

type GameJoined struct {
	GameID  string          `json:"gameId"`
	Team    Team            `json:"team"`
	Players []PlayerSummary `json:"players"`
	Game    RoomSnapshot    `json:"game"`
}

type PlayerJoined struct {
	PlayerSummary
}

type PlayerLeft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerMoved struct {
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
}

type PlayerShot struct {
	ID         string `json:"id"`
	WeaponType string `json:"weaponType"`
	Position   Vec3   `json:"position"`
	Direction  Vec3   `json:"direction"`
}

type PlayerDamaged struct {
	AttackerID string `json:"attackerId"`
	Damage     int    `json:"damage"`
	Health     int    `json:"health"`
}

type PlayerKilled struct {
	KillerID   string `json:"killerId"`
	TargetID   string `json:"targetId"`
	KillerName string `json:"killerName"`
	TargetName string `json:"targetName"`
	Weapon     string `json:"weapon"`
}

type PlayerRespawn struct {
	Position Vec3 `json:"position"`
	Health   int  `json:"health"`
}

type TimeUpdate struct {
	TimeRemaining int `json:"timeRemaining"`
}

type GameEnded struct {
	Scores map[string]Score  `json:"scores"`
	Teams  map[Team][]string `json:"teams"`
}

type NewGame struct {
	MapName MapName          `json:"mapName"`
	Scores  map[string]Score `json:"scores"`
}

type JoinRejected struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
}

func (GameJoined) Kind() EventKind    { return EvtGameJoined }
func (PlayerJoined) Kind() EventKind  { return EvtPlayerJoined }
func (PlayerLeft) Kind() EventKind    { return EvtPlayerLeft }
func (PlayerMoved) Kind() EventKind   { return EvtPlayerMoved }
func (PlayerShot) Kind() EventKind    { return EvtPlayerShot }
func (PlayerDamaged) Kind() EventKind { return EvtPlayerDamaged }
func (PlayerKilled) Kind() EventKind  { return EvtPlayerKilled }
func (PlayerRespawn) Kind() EventKind { return EvtPlayerRespawn }
func (TimeUpdate) Kind() EventKind    { return EvtTimeUpdate }
func (GameEnded) Kind() EventKind     { return EvtGameEnded }
func (NewGame) Kind() EventKind       { return EvtNewGame }
func (JoinRejected) Kind() EventKind  { return EvtJoinRejected }

// Outbound is one event addressed to a set of connections.
type Outbound struct {
	To      []string
	Payload Payload
}

type TaskKind string

const (
	TaskRespawn    TaskKind = "respawn"
	TaskMatchReset TaskKind = "match_reset"
)

type TaskKey struct {
	Kind     TaskKind
	RoomID   string
	PlayerID string
}

// Task is deferred work. It carries identifiers and a generation number
// only; the registry re-validates both when the task fires.
type Task struct {
	Key   TaskKey
	Gen   uint64
	Delay time.Duration
}

type PlayerResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Team   Team   `json:"team"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

type MatchSummary struct {
	RoomID  string         `json:"roomId"`
	MapName MapName        `json:"mapName"`
	EndedAt time.Time      `json:"endedAt"`
	Players []PlayerResult `json:"players"`
}

// Effects collects everything a mutation wants done outside the registry.
type Effects struct {
	Events   []Outbound
	Tasks    []Task
	Cancels  []TaskKey
	Finished []MatchSummary
}

func (fx *Effects) emit(to []string, p Payload) {
	if len(to) == 0 {
		return
	}
	fx.Events = append(fx.Events, Outbound{To: to, Payload: p})
}

func (fx *Effects) schedule(t Task) {
	fx.Tasks = append(fx.Tasks, t)
}

func (fx *Effects) cancel(k TaskKey) {
	fx.Cancels = append(fx.Cancels, k)
}

func (fx *Effects) Merge(other Effects) {
	fx.Events = append(fx.Events, other.Events...)
	fx.Tasks = append(fx.Tasks, other.Tasks...)
	fx.Cancels = append(fx.Cancels, other.Cancels...)
	fx.Finished = append(fx.Finished, other.Finished...)
}

func (fx Effects) Empty() bool {
	return len(fx.Events) == 0 && len(fx.Tasks) == 0 && len(fx.Cancels) == 0 && len(fx.Finished) == 0
}
