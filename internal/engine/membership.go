package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type JoinResult struct {
	RoomID string
	Team   Team
}

// Join places a connection into a room. An explicit invite code selects (or
// creates) that room; otherwise the oldest joinable room is used, and a new
// room is opened when none has space. A connection already seated elsewhere
// leaves its old room first.
func (r *Registry) Join(connID, name, inviteCode string) (JoinResult, Effects, error) {
	var fx Effects
	if connID == "" {
		return JoinResult{}, fx, fmt.Errorf("%w: empty connection id", ErrProtocol)
	}
	code := strings.TrimSpace(inviteCode)

	if code != "" {
		if room, ok := r.rooms[code]; ok {
			if p, seated := r.players[connID]; seated && p.RoomID == code {
				// Already a member: resend the hydration snapshot only.
				fx.emit([]string{connID}, r.gameJoined(room, p))
				return JoinResult{RoomID: code, Team: p.Team}, fx, nil
			}
			if len(room.Members) >= r.rules.Capacity {
				fx.emit([]string{connID}, JoinRejected{GameID: code, Reason: "room_full"})
				return JoinResult{}, fx, fmt.Errorf("join %s: %w", code, ErrRoomFull)
			}
		}
	}

	if _, seated := r.players[connID]; seated {
		fx.Merge(r.Leave(connID))
	}

	var room *Room
	if code != "" {
		room = r.CreateRoom(code, "")
	} else if open := r.JoinableRooms(); len(open) > 0 {
		room = open[0]
	} else {
		room = r.CreateRoom(r.newRoomID(), "")
	}

	team := pickTeam(room)
	p := &Player{
		ID:       connID,
		Name:     r.cleanName(name),
		RoomID:   room.ID,
		Team:     team,
		Position: Vec3{0, 1, 0},
		Health:   MaxHealth,
		Weapon:   r.rules.DefaultWeapon,
	}
	room.Members = append(room.Members, connID)
	room.Teams[team] = append(room.Teams[team], connID)
	room.Scores[connID] = Score{}
	r.players[connID] = p

	fx.emit([]string{connID}, r.gameJoined(room, p))
	fx.emit(room.others(connID), PlayerJoined{PlayerSummary: p.summary()})
	return JoinResult{RoomID: room.ID, Team: team}, fx, nil
}

// Leave removes a connection from its room. Calling it for an unknown or
// already removed connection does nothing.
func (r *Registry) Leave(connID string) Effects {
	var fx Effects
	p, ok := r.players[connID]
	if !ok {
		return fx
	}
	delete(r.players, connID)
	fx.cancel(respawnKey(p.RoomID, connID))

	room, ok := r.rooms[p.RoomID]
	if !ok {
		return fx
	}
	room.removeMember(connID, p.Team)
	if len(room.Members) == 0 {
		r.RemoveRoom(room.ID)
		fx.cancel(resetKey(room.ID))
		return fx
	}
	fx.emit(room.everyone(), PlayerLeft{ID: p.ID, Name: p.Name})
	return fx
}

// pickTeam chooses the smaller team; red wins a tie.
func pickTeam(room *Room) Team {
	if len(room.Teams[TeamRed]) <= len(room.Teams[TeamBlue]) {
		return TeamRed
	}
	return TeamBlue
}

func (r *Registry) gameJoined(room *Room, p *Player) GameJoined {
	roster := make([]PlayerSummary, 0, len(room.Members))
	for _, id := range room.Members {
		if member, ok := r.players[id]; ok {
			roster = append(roster, member.summary())
		}
	}
	return GameJoined{
		GameID:  room.ID,
		Team:    p.Team,
		Players: roster,
		Game:    room.snapshot(),
	}
}

func (r *Registry) cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player"
	}
	if limit := r.rules.MaxNameLength; limit > 0 && utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name
}
