// Package types is the wire protocol spoken on /ws.
//
// Every frame is an envelope {"type": string, "payload": object}. Text frames
// carry JSON; with ?codec=msgpack the same envelope is sent as a MessagePack
// map in binary frames. Field names are identical in both codecs.
//
// Client -> Server
//
//	join_game:       { playerName: string, inviteCode?: string }
//	update_position: { position: [x,y,z], rotation: [x,y,z] }
//	player_shoot:    { weaponType: string, position: [x,y,z], direction: [x,y,z] }
//	player_hit:      { targetId: string, damage: number } // rounded to an integer
//
// Server -> Client
//
//	game_joined:    { gameId, team, players: PlayerSummary[], game: RoomSnapshot }
//	player_joined:  PlayerSummary
//	player_left:    { id, name }
//	player_moved:   { id, position, rotation }
//	player_shot:    { id, weaponType, position, direction }
//	player_damaged: { attackerId, damage, health }
//	player_killed:  { killerId, targetId, killerName, targetName, weapon }
//	player_respawn: { position, health }
//	time_update:    { timeRemaining }
//	game_ended:     { scores: {id: {kills, deaths}}, teams: {red: id[], blue: id[]} }
//	new_game:       { mapName, scores }
//	join_rejected:  { gameId, reason }
//	error:          { message } // malformed frame; the connection stays open
//
// PlayerSummary is { id, name, team, position, rotation, health, weapon }.
// RoomSnapshot is { id, mapName, timeRemaining, active, players, teams, scores }.
package types
