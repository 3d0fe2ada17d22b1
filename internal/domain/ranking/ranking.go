// Package ranking computes the dense-ranked top movies leaderboard from
// per-movie comment counts.
package ranking

import (
	"cmp"
	"slices"

	"github.com/okian/marquee/internal/domain/types"
)

// Count groups comments by movie, keeping only those inside w when w is set.
// The result is ordered by movie id so it is deterministic for a given input.
func Count(comments []types.Comment, w *types.Window) []types.MovieCount {
	byMovie := make(map[int64]int)
	for _, c := range comments {
		if w != nil && !w.Contains(c.CreatedAt) {
			continue
		}
		byMovie[c.MovieID]++
	}

	out := make([]types.MovieCount, 0, len(byMovie))
	for id, n := range byMovie {
		out = append(out, types.MovieCount{MovieID: id, Count: n})
	}
	slices.SortFunc(out, func(a, b types.MovieCount) int {
		return cmp.Compare(a.MovieID, b.MovieID)
	})
	return out
}

// Dense assigns dense ranks to counts.
//
// Movies are ordered by count descending; every distinct count takes the next
// rank starting at 1 and movies sharing a count share its rank. Entries with a
// zero (or negative) count are dropped. Within a rank entries are ordered by
// movie id ascending.
func Dense(counts []types.MovieCount) []types.LeaderboardEntry {
	rows := make([]types.MovieCount, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			rows = append(rows, c)
		}
	}
	slices.SortFunc(rows, func(a, b types.MovieCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.MovieID, b.MovieID)
	})

	out := make([]types.LeaderboardEntry, len(rows))
	rank := 0
	prev := -1
	for i, r := range rows {
		if r.Count != prev {
			rank++
			prev = r.Count
		}
		out[i] = types.LeaderboardEntry{MovieID: r.MovieID, TotalComments: r.Count, Rank: rank}
	}
	return out
}

// Leaderboard is Count followed by Dense.
func Leaderboard(comments []types.Comment, w *types.Window) []types.LeaderboardEntry {
	return Dense(Count(comments, w))
}
