package rewardgraph

import (
	"fmt"
	"math"
)

type frame struct {
	node int
	sum  float64
	path []int
}

// walk calls leaf for every root-to-leaf path from start, in child order.
// sum excludes the start node's own reward. A path longer than the graph can
// hold without repeating a node is reported as ErrCycle.
func walk(g Graph, r Rewards, start int, leaf func(path []int, sum float64)) error {
	if start < 0 {
		return fmt.Errorf("%w: start %d", ErrNodeOutOfRange, start)
	}
	stack := []frame{{node: start, path: []int{start}}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if g.isLeaf(f.node) {
			leaf(f.path, f.sum)
			continue
		}
		if len(f.path) > len(g) {
			return fmt.Errorf("%w: path %v", ErrCycle, f.path)
		}
		children := g[f.node]
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			if c < 0 {
				return fmt.Errorf("%w: child %d of node %d", ErrNodeOutOfRange, c, f.node)
			}
			sum := f.sum
			if r != nil {
				v, err := r.At(c)
				if err != nil {
					return err
				}
				sum += v
			}
			path := make([]int, len(f.path)+1)
			copy(path, f.path)
			path[len(f.path)] = c
			stack = append(stack, frame{node: c, sum: sum, path: path})
		}
	}
	return nil
}

// Best returns the highest reward collectable on any path from start. The
// start node's reward is not counted.
func Best(g Graph, r Rewards, start int) (float64, error) {
	best := math.Inf(-1)
	err := walk(g, r, start, func(_ []int, sum float64) {
		if sum > best {
			best = sum
		}
	})
	if err != nil {
		return 0, err
	}
	return best, nil
}

// Average returns the mean reward of all paths other than the best one,
// expressed relative to the best: best - mean(others). It is the difficulty
// heuristic for a trial.
func Average(g Graph, r Rewards, start int) (float64, error) {
	var (
		total float64
		count int
		best  = math.Inf(-1)
	)
	err := walk(g, r, start, func(_ []int, sum float64) {
		total += sum
		count++
		if sum > best {
			best = sum
		}
	})
	if err != nil {
		return 0, err
	}
	if count < 2 {
		return 0, ErrSinglePath
	}
	return best - (total-best)/float64(count-1), nil
}

// Paths enumerates every root-to-leaf node sequence from start, including
// start itself.
func Paths(g Graph, start int) ([][]int, error) {
	var paths [][]int
	err := walk(g, nil, start, func(path []int, _ float64) {
		paths = append(paths, path)
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// PathRewards sums the rewards along each path. Masked rewards contribute
// nothing.
func PathRewards(paths [][]int, r Rewards) ([]float64, error) {
	out := make([]float64, len(paths))
	for i, path := range paths {
		for _, node := range path {
			v, err := r.At(node)
			if err != nil {
				return nil, err
			}
			out[i] += v
		}
	}
	return out, nil
}

// BestPath returns the first path with the highest path reward.
func BestPath(g Graph, r Rewards, start int) ([]int, error) {
	paths, err := Paths(g, start)
	if err != nil {
		return nil, err
	}
	rewards, err := PathRewards(paths, r)
	if err != nil {
		return nil, err
	}
	best := 0
	for i, v := range rewards {
		if v > rewards[best] {
			best = i
		}
	}
	return paths[best], nil
}
