package loadcheck

import (
	"fmt"
)

// VerifyDenseRanks checks that entries form a dense ranking: ranks start at
// 1, equal counts share a rank, each lower count takes the next rank, ties
// are ordered by movie id and no movie appears without comments.
func VerifyDenseRanks(entries []Entry) error {
	seen := make(map[int64]struct{}, len(entries))
	for i, e := range entries {
		if e.TotalComments <= 0 {
			return fmt.Errorf("%w: movie %d listed with %d comments", ErrRankOrder, e.MovieID, e.TotalComments)
		}
		if _, dup := seen[e.MovieID]; dup {
			return fmt.Errorf("%w: movie %d listed twice", ErrRankOrder, e.MovieID)
		}
		seen[e.MovieID] = struct{}{}

		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first rank is %d", ErrRankOrder, e.Rank)
			}
			continue
		}

		prev := entries[i-1]
		switch {
		case e.TotalComments > prev.TotalComments:
			return fmt.Errorf("%w: entry %d has more comments than entry %d", ErrRankOrder, i, i-1)
		case e.TotalComments == prev.TotalComments:
			if e.Rank != prev.Rank {
				return fmt.Errorf("%w: movies %d and %d tie at %d comments but rank %d and %d",
					ErrRankOrder, prev.MovieID, e.MovieID, e.TotalComments, prev.Rank, e.Rank)
			}
			if e.MovieID < prev.MovieID {
				return fmt.Errorf("%w: tied movies %d and %d out of id order", ErrRankOrder, prev.MovieID, e.MovieID)
			}
		default:
			if e.Rank != prev.Rank+1 {
				return fmt.Errorf("%w: rank jumps from %d to %d at entry %d", ErrRankOrder, prev.Rank, e.Rank, i)
			}
		}
	}
	return nil
}

// VerifyDeltas checks that every seeded movie gained exactly the accepted
// number of comments between two all-time leaderboards.
func VerifyDeltas(before, after []Entry, accepted map[int64]int) error {
	b, a := counts(before), counts(after)
	for id, want := range accepted {
		if got := a[id] - b[id]; got != want {
			return fmt.Errorf("%w: movie %d gained %d comments, %d were accepted", ErrCountMismatch, id, got, want)
		}
	}
	return nil
}

// VerifyAtLeast checks that every seeded movie has at least the accepted
// number of comments in a windowed leaderboard.
func VerifyAtLeast(window []Entry, accepted map[int64]int) error {
	w := counts(window)
	for id, want := range accepted {
		if want > 0 && w[id] < want {
			return fmt.Errorf("%w: movie %d has %d comments in the run window, %d were accepted",
				ErrCountMismatch, id, w[id], want)
		}
	}
	return nil
}

func counts(entries []Entry) map[int64]int {
	out := make(map[int64]int, len(entries))
	for _, e := range entries {
		out[e.MovieID] = e.TotalComments
	}
	return out
}
