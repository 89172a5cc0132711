package game

// NextTurn returns the player after currentUserID in active, wrapping to the
// start. active must already be ordered by join time with departed players
// removed. Returns "" when active is empty or currentUserID is not in it.
func NextTurn(active []string, currentUserID string) string {
	for i, id := range active {
		if id == currentUserID {
			return active[(i+1)%len(active)]
		}
	}
	return ""
}
