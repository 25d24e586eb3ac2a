package model

import "sort"

// LeaderboardEntry is one row of the contract's leaderboard.
type LeaderboardEntry struct {
	Address              string `json:"address"`
	BountiesCreated      int64  `json:"bountiesCreated"`
	BountiesApplied      int64  `json:"bountiesApplied"`
	ValidationsPerformed int64  `json:"validationsPerformed"`
	Score                int64  `json:"score"`
}

// SortByScore orders entries by score, highest first. Ties keep extraction order.
func SortByScore(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
