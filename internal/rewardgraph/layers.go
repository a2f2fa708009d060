package rewardgraph

import (
	"fmt"
	"math"
)

// Differential is a pair of sibling nodes and the absolute difference of
// their rewards.
type Differential struct {
	Nodes [2]int
	Diff  float64
}

// siblingPair returns the first two children of node and their absolute
// reward difference, or false if node has fewer than two children or either
// child reward is missing.
func siblingPair(g Graph, r Rewards, node int) (a, b int, diff float64, ok bool) {
	if node < 0 || node >= len(g) || len(g[node]) < 2 {
		return 0, 0, 0, false
	}
	a, b = g[node][0], g[node][1]
	if a < 0 || b < 0 || a >= len(r) || b >= len(r) {
		return 0, 0, 0, false
	}
	if !r[a].Valid || !r[b].Valid {
		return 0, 0, 0, false
	}
	return a, b, math.Abs(r[b].Value - r[a].Value), true
}

// Layer1 finds the first masked-reward node (by id) that branches and
// returns its first two children, second child first, with their reward
// difference. It reports false when no masked node branches.
func Layer1(r Rewards, g Graph) (Differential, bool) {
	for node, reward := range r {
		if reward.Valid {
			continue
		}
		if a, b, diff, ok := siblingPair(g, r, node); ok {
			return Differential{Nodes: [2]int{b, a}, Diff: diff}, true
		}
	}
	return Differential{}, false
}

// Layer2 walks the states selected during play, in order, and returns the
// first two children of the first selected state that branches, with their
// reward difference. It reports false when no selected state branches.
func Layer2(selected []int, r Rewards, g Graph) (Differential, bool) {
	for _, node := range selected {
		if a, b, diff, ok := siblingPair(g, r, node); ok {
			return Differential{Nodes: [2]int{a, b}, Diff: diff}, true
		}
	}
	return Differential{}, false
}

// Connected partitions the nodes 0..len(g)-1 into those reachable from start
// (in depth-first preorder) and the rest (ascending).
func Connected(g Graph, start int) (connected, unconnected []int, err error) {
	seen := make([]bool, len(g))
	stack := []int{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node < 0 || node >= len(g) {
			return nil, nil, fmt.Errorf("%w: node %d (have %d nodes)", ErrNodeOutOfRange, node, len(g))
		}
		if seen[node] {
			continue
		}
		seen[node] = true
		connected = append(connected, node)

		children := g[node]
		for i := len(children) - 1; i >= 0; i-- {
			if c := children[i]; c < 0 || c >= len(g) || !seen[c] {
				stack = append(stack, c)
			}
		}
	}
	for node, ok := range seen {
		if !ok {
			unconnected = append(unconnected, node)
		}
	}
	return connected, unconnected, nil
}
