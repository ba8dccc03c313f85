package engine

import "slices"

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(x string) bool { return x == id })
}

func copyTeams(teams map[Team][]string) map[Team][]string {
	out := make(map[Team][]string, len(teams))
	for team, ids := range teams {
		out[team] = slices.Clone(ids)
	}
	return out
}

func respawnKey(roomID, playerID string) TaskKey {
	return TaskKey{Kind: TaskRespawn, RoomID: roomID, PlayerID: playerID}
}

func resetKey(roomID string) TaskKey {
	return TaskKey{Kind: TaskMatchReset, RoomID: roomID}
}
