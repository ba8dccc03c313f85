package engine

import "slices"

// NextMap returns the map after current in the rotation, wrapping around.
// A map outside the rotation restarts it from the top.
func NextMap(rotation []MapName, current MapName) MapName {
	if len(rotation) == 0 {
		return current
	}
	i := slices.Index(rotation, current)
	return rotation[(i+1)%len(rotation)]
}
