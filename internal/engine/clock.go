package engine

import (
	"maps"
	"slices"
)

// Tick advances every active room's match clock by one second and removes
// rooms that have stayed empty for Rules.IdleRoomTTL ticks.
func (r *Registry) Tick() Effects {
	var fx Effects
	for _, id := range slices.Clone(r.order) {
		room := r.rooms[id]
		if len(room.Members) > 0 {
			room.idle = 0
		} else {
			room.idle++
			if ttl := r.rules.IdleRoomTTL; ttl > 0 && room.idle >= ttl {
				r.RemoveRoom(id)
				fx.cancel(resetKey(id))
				continue
			}
		}
		if !room.Active {
			continue
		}

		room.TimeRemaining--
		if room.TimeRemaining <= 0 {
			room.TimeRemaining = 0
			room.Active = false
			fx.emit(room.everyone(), GameEnded{
				Scores: maps.Clone(room.Scores),
				Teams:  copyTeams(room.Teams),
			})
			fx.Finished = append(fx.Finished, r.summary(room))
			fx.schedule(Task{
				Key:   resetKey(room.ID),
				Gen:   room.epoch,
				Delay: r.rules.Intermission,
			})
			continue
		}

		if every := r.rules.TimeUpdateEvery; every > 0 && room.TimeRemaining%every == 0 {
			fx.emit(room.everyone(), TimeUpdate{TimeRemaining: room.TimeRemaining})
		}
	}
	return fx
}

// FireMatchReset starts the next match in a room after the intermission.
// A room destroyed in the meantime, even if recreated under the same id, is
// left alone.
func (r *Registry) FireMatchReset(t Task) Effects {
	var fx Effects
	room, ok := r.rooms[t.Key.RoomID]
	if !ok || room.epoch != t.Gen || room.Active {
		return fx
	}

	room.MapName = NextMap(r.rules.Rotation, room.MapName)
	room.TimeRemaining = r.rules.MatchDuration
	for id := range room.Scores {
		room.Scores[id] = Score{}
	}
	room.Active = true

	fx.emit(room.everyone(), NewGame{MapName: room.MapName, Scores: maps.Clone(room.Scores)})
	return fx
}

// Fire dispatches a due task to its handler.
func (r *Registry) Fire(t Task) Effects {
	switch t.Key.Kind {
	case TaskRespawn:
		return r.FireRespawn(t)
	case TaskMatchReset:
		return r.FireMatchReset(t)
	default:
		return Effects{}
	}
}

func (r *Registry) summary(room *Room) MatchSummary {
	s := MatchSummary{
		RoomID:  room.ID,
		MapName: room.MapName,
		EndedAt: r.now(),
		Players: make([]PlayerResult, 0, len(room.Members)),
	}
	for _, id := range room.Members {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		score := room.Scores[id]
		s.Players = append(s.Players, PlayerResult{
			ID:     id,
			Name:   p.Name,
			Team:   p.Team,
			Kills:  score.Kills,
			Deaths: score.Deaths,
		})
	}
	return s
}
