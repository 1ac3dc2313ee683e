package calculator

import (
	"math/big"
	"sort"
)

// Item represents a single line on the bill, already reduced to its line total
// in minor units.
type Item struct {
	ID         int
	Amount     int64 // quantity × unit price, minor units
	AssignedTo []int // participant ids; empty means "everyone"
}

// CalculateSplit computes how much each participant owes, in minor units.
//
// Algorithm:
//   - An assigned item is divided equally among its assignees.
//   - An unassigned item is divided equally among all participants. With no
//     participants it is left out of the result.
//   - Raw shares are summed per participant as exact rationals, truncated to
//     whole minor units, and the leftover units are handed out one at a time
//     by largest fractional remainder, ties going to the lower participant id.
//
// The returned totals always sum to the total of every item that could be
// charged to someone. The result holds an entry for every participant.
func CalculateSplit(items []Item, participants []int) map[int]int64 {
	totals := make(map[int]int64, len(participants))
	if len(participants) == 0 {
		return totals
	}

	raw := make(map[int]*big.Rat, len(participants))
	for _, p := range participants {
		raw[p] = new(big.Rat)
		totals[p] = 0
	}

	var charged int64
	for _, item := range items {
		targets := item.AssignedTo
		if len(targets) == 0 {
			targets = participants
		}

		// Ids that are not participants cannot be charged; the bill model
		// guarantees this never happens.
		known := targets[:0:0]
		for _, p := range targets {
			if _, ok := raw[p]; ok {
				known = append(known, p)
			}
		}
		if len(known) == 0 {
			continue
		}

		share := big.NewRat(item.Amount, int64(len(known)))
		for _, p := range known {
			raw[p].Add(raw[p], share)
		}
		charged += item.Amount
	}

	type remainder struct {
		id   int
		frac *big.Rat
	}
	remainders := make([]remainder, 0, len(participants))

	var floored int64
	for _, p := range participants {
		r := raw[p]
		whole := new(big.Int).Quo(r.Num(), r.Denom())
		frac := new(big.Rat).Sub(r, new(big.Rat).SetInt(whole))

		totals[p] = whole.Int64()
		floored += totals[p]
		remainders = append(remainders, remainder{id: p, frac: frac})
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		if c := remainders[i].frac.Cmp(remainders[j].frac); c != 0 {
			return c > 0
		}
		return remainders[i].id < remainders[j].id
	})

	// The fractional parts sum to the leftover, and each is below one, so the
	// leftover is always smaller than the number of participants.
	leftover := charged - floored
	for i := 0; leftover > 0 && i < len(remainders); i++ {
		totals[remainders[i].id]++
		leftover--
	}

	return totals
}
