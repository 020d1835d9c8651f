package partition

import (
	"slices"
	"sort"
)

// Player is one roster entry with the score used for balancing.
type Player struct {
	ID     string
	Points int
}

type stateKey struct {
	sum   int
	count int
}

// Sorted returns a copy of players ordered by points descending, ties by id
// ascending. Every other function in this package works on this order.
func Sorted(players []Player) []Player {
	out := slices.Clone(players)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Excluded reports the player an odd roster leaves out of both teams: the
// last one in sorted order. ok is false for even rosters.
func Excluded(players []Player) (Player, bool) {
	if len(players)%2 == 0 {
		return Player{}, false
	}
	sorted := Sorted(players)
	return sorted[len(sorted)-1], true
}

// Partition splits players into two equal-sized teams whose point sums are as
// close as possible.
//
// An odd roster drops its last player in sorted order before splitting. The
// search is a subset-sum DP over (sum, count) states, holding one
// representative subset per state, so its state space is bounded by
// n * distinctSums * n/2. That is fine for the tens of players a single
// session holds and is not meant for large rosters.
//
// Ties are broken deterministically: when two subsets land on the same state
// the lexicographically smaller id tuple is kept, and among equally balanced
// half-size states the smaller id tuple becomes team A.
func Partition(players []Player) (teamA, teamB []string) {
	if len(players) == 0 {
		return []string{}, []string{}
	}

	sorted := Sorted(players)
	if len(sorted)%2 != 0 {
		sorted = sorted[:len(sorted)-1]
	}
	if len(sorted) == 0 {
		return []string{}, []string{}
	}

	teamSize := len(sorted) / 2
	total := 0
	for _, p := range sorted {
		total += p.Points
	}

	best, ok := search(sorted, teamSize, total)
	if !ok {
		return greedy(sorted, teamSize)
	}
	return split(sorted, best)
}

// search runs the DP and returns the indices (into sorted) of the chosen
// team A, or false when no half-size state was reached.
func search(sorted []Player, teamSize, total int) ([]int, bool) {
	dp := map[stateKey][]int{{0, 0}: {}}

	for i, p := range sorted {
		// Extend only the states that existed before this player.
		added := make(map[stateKey][]int)
		for k, subset := range dp {
			if k.count >= teamSize {
				continue
			}
			next := stateKey{sum: k.sum + p.Points, count: k.count + 1}
			cand := append(slices.Clone(subset), i)
			if cur, exists := added[next]; !exists || lessIDs(sorted, cand, cur) {
				added[next] = cand
			}
		}
		for k, subset := range added {
			if cur, exists := dp[k]; !exists || lessIDs(sorted, subset, cur) {
				dp[k] = subset
			}
		}
	}

	var (
		best     []int
		bestDist int
		found    bool
	)
	for k, subset := range dp {
		if k.count != teamSize {
			continue
		}
		dist := abs(2*k.sum - total)
		if !found || dist < bestDist || (dist == bestDist && lessIDs(sorted, subset, best)) {
			best, bestDist, found = subset, dist, true
		}
	}
	return best, found
}

// greedy assigns each next-highest player to the team with fewer members,
// ties going to the lower running total and then to team A.
func greedy(sorted []Player, teamSize int) (teamA, teamB []string) {
	teamA = make([]string, 0, teamSize)
	teamB = make([]string, 0, teamSize)
	sumA, sumB := 0, 0

	for _, p := range sorted {
		toA := len(teamA) < len(teamB) ||
			(len(teamA) == len(teamB) && sumA <= sumB)
		if toA {
			teamA = append(teamA, p.ID)
			sumA += p.Points
		} else {
			teamB = append(teamB, p.ID)
			sumB += p.Points
		}
	}
	return teamA, teamB
}

func split(sorted []Player, picked []int) (teamA, teamB []string) {
	inA := make(map[int]bool, len(picked))
	for _, i := range picked {
		inA[i] = true
	}
	teamA = make([]string, 0, len(picked))
	teamB = make([]string, 0, len(sorted)-len(picked))
	for i, p := range sorted {
		if inA[i] {
			teamA = append(teamA, p.ID)
		} else {
			teamB = append(teamB, p.ID)
		}
	}
	return teamA, teamB
}

// lessIDs compares two subsets by their ascending id tuples.
func lessIDs(sorted []Player, a, b []int) bool {
	return slices.Compare(idTuple(sorted, a), idTuple(sorted, b)) < 0
}

func idTuple(sorted []Player, subset []int) []string {
	ids := make([]string, len(subset))
	for i, idx := range subset {
		ids[i] = sorted[idx].ID
	}
	slices.Sort(ids)
	return ids
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
