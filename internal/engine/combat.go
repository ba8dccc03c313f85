package engine

import "fmt"

// ApplyHit resolves a client-reported hit. Hits are trusted: nothing checks
// range or line of sight, only that both players share a room.
func (r *Registry) ApplyHit(attackerID, targetID string, damage int) (Outcome, Effects, error) {
	var fx Effects

	attacker, ok := r.players[attackerID]
	if !ok {
		return OutcomeIgnored, fx, ErrUnknownRoomReference
	}
	room, ok := r.rooms[attacker.RoomID]
	if !ok {
		return OutcomeIgnored, fx, ErrUnknownRoomReference
	}
	target, ok := r.players[targetID]
	if !ok {
		// Target already left; late hits are expected.
		return OutcomeIgnored, fx, nil
	}
	if target.RoomID != attacker.RoomID {
		return OutcomeIgnored, fx, ErrCrossRoomReference
	}
	if attackerID == targetID {
		return OutcomeIgnored, fx, fmt.Errorf("%w: self hit", ErrProtocol)
	}
	if damage <= 0 {
		return OutcomeIgnored, fx, fmt.Errorf("%w: damage %d", ErrProtocol, damage)
	}
	if target.Respawning {
		return OutcomeIgnored, fx, nil
	}

	if target.Health-damage > 0 {
		target.Health -= damage
		fx.emit([]string{target.ID}, PlayerDamaged{
			AttackerID: attacker.ID,
			Damage:     damage,
			Health:     target.Health,
		})
		return OutcomeDamaged, fx, nil
	}

	target.Health = MaxHealth
	target.Respawning = true
	target.life++

	ks := room.Scores[attacker.ID]
	ks.Kills++
	room.Scores[attacker.ID] = ks
	ds := room.Scores[target.ID]
	ds.Deaths++
	room.Scores[target.ID] = ds

	fx.emit(room.everyone(), PlayerKilled{
		KillerID:   attacker.ID,
		TargetID:   target.ID,
		KillerName: attacker.Name,
		TargetName: target.Name,
		Weapon:     attacker.Weapon,
	})
	fx.schedule(Task{
		Key:   respawnKey(room.ID, target.ID),
		Gen:   target.life,
		Delay: r.rules.RespawnDelay,
	})
	return OutcomeKilled, fx, nil
}

// FireRespawn completes a respawn scheduled by ApplyHit. It does nothing if
// the player has left, moved rooms or died again since.
func (r *Registry) FireRespawn(t Task) Effects {
	var fx Effects
	p, ok := r.players[t.Key.PlayerID]
	if !ok || p.RoomID != t.Key.RoomID || p.life != t.Gen || !p.Respawning {
		return fx
	}
	room, ok := r.rooms[p.RoomID]
	if !ok {
		return fx
	}

	p.Position = r.spawnPoint(room.MapName, p.Team)
	p.Health = MaxHealth
	p.Respawning = false
	fx.emit([]string{p.ID}, PlayerRespawn{Position: p.Position, Health: p.Health})
	return fx
}

// ApplyShot relays a shot to the rest of the room and records the weapon as
// the shooter's equipped one.
func (r *Registry) ApplyShot(connID, weapon string, origin, direction Vec3) (Effects, error) {
	var fx Effects
	p, room, err := r.seated(connID)
	if err != nil {
		return fx, err
	}
	if r.catalog != nil && !r.catalog.HasWeapon(weapon) {
		return fx, fmt.Errorf("%w: unknown weapon %q", ErrProtocol, weapon)
	}
	if !origin.finite() || !direction.finite() {
		return fx, fmt.Errorf("%w: non-finite shot vector", ErrProtocol)
	}

	p.Weapon = weapon
	fx.emit(room.others(p.ID), PlayerShot{
		ID:         p.ID,
		WeaponType: weapon,
		Position:   origin,
		Direction:  direction,
	})
	return fx, nil
}

func (r *Registry) ApplyMove(connID string, position, rotation Vec3) (Effects, error) {
	var fx Effects
	p, room, err := r.seated(connID)
	if err != nil {
		return fx, err
	}
	if !position.finite() || !rotation.finite() {
		return fx, fmt.Errorf("%w: non-finite transform", ErrProtocol)
	}

	p.Position = position
	p.Rotation = rotation
	fx.emit(room.others(p.ID), PlayerMoved{ID: p.ID, Position: position, Rotation: rotation})
	return fx, nil
}

func (r *Registry) seated(connID string) (*Player, *Room, error) {
	p, ok := r.players[connID]
	if !ok {
		return nil, nil, ErrUnknownRoomReference
	}
	room, ok := r.rooms[p.RoomID]
	if !ok {
		return nil, nil, ErrUnknownRoomReference
	}
	return p, room, nil
}

func (r *Registry) spawnPoint(mapName MapName, team Team) Vec3 {
	var points []Vec3
	if r.catalog != nil {
		points = r.catalog.SpawnPoints(mapName, team)
	}
	if len(points) == 0 {
		return Vec3{0, 1, 0}
	}
	return points[r.rng.Intn(len(points))]
}
