// Package workflow holds the pure decision logic of the inspection
// hierarchy: officer ranks, jurisdiction matching and the compliance state
// machine. Nothing in this package reads global or session state.
package workflow

import (
	"sort"

	"cwcinspect/models"
)

// RankTable orders the officer levels that take part in approvals.
// Levels absent from the table rank 0.
type RankTable map[models.Level]int

// DefaultRanks is SDO < EE < SE < CE.
var DefaultRanks = RankTable{
	models.LevelSDO: 1,
	models.LevelEE:  2,
	models.LevelSE:  3,
	models.LevelCE:  4,
}

// Rank returns the rank of level, or 0 for non-participating levels.
func (t RankTable) Rank(level models.Level) int {
	return t[level]
}

// Rank returns the rank of level in DefaultRanks.
func Rank(level models.Level) int {
	return DefaultRanks.Rank(level)
}

// SortByRank orders officers highest rank first. Officers of equal rank
// keep their relative order.
func SortByRank(officers []models.Officer) {
	sort.SliceStable(officers, func(i, j int) bool {
		return Rank(officers[i].Level) > Rank(officers[j].Level)
	})
}
