// Package rewardgraph analyses the reward trees participants navigate: best
// and average achievable reward, path enumeration, trial categorisation and
// the reward differentials at each decision layer.
//
// All functions are pure. Traversals use explicit stacks.
package rewardgraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	ErrNodeOutOfRange = errors.New("node id out of range")
	ErrSinglePath     = errors.New("average reward undefined for a single path")
	ErrEmptyGraph     = errors.New("empty graph")
	ErrCycle          = errors.New("graph contains a cycle")
)

// Graph is an adjacency list indexed by node id. A node with no children, or
// an id past the end of the list, is a leaf.
type Graph [][]int

func (g Graph) isLeaf(node int) bool {
	return node >= len(g) || len(g[node]) == 0
}

// Reward is a node reward that may be masked. The zero value is unset.
type Reward struct {
	Value float64
	Valid bool
}

// R returns a set reward.
func R(v float64) Reward { return Reward{Value: v, Valid: true} }

// Unset is a masked reward.
var Unset = Reward{}

func (r Reward) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(r.Value, 'f', -1, 64)), nil
}

func (r *Reward) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Unset
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("reward: %w", err)
	}
	*r = R(v)
	return nil
}

// Rewards is a reward vector indexed by node id.
type Rewards []Reward

// Values builds a fully set reward vector.
func Values(vs ...float64) Rewards {
	out := make(Rewards, len(vs))
	for i, v := range vs {
		out[i] = R(v)
	}
	return out
}

// At returns the reward of node, treating a masked reward as zero.
func (r Rewards) At(node int) (float64, error) {
	if node < 0 || node >= len(r) {
		return 0, fmt.Errorf("%w: reward index %d (have %d)", ErrNodeOutOfRange, node, len(r))
	}
	return r[node].Value, nil
}

// Validate checks that start is a node of g and that g is acyclic.
func Validate(g Graph, start int) error {
	if len(g) == 0 {
		return ErrEmptyGraph
	}
	if start < 0 || start >= len(g) {
		return fmt.Errorf("%w: start %d (have %d nodes)", ErrNodeOutOfRange, start, len(g))
	}

	dg := simple.NewDirectedGraph()
	for id := range g {
		if dg.Node(int64(id)) == nil {
			dg.AddNode(simple.Node(id))
		}
	}
	for id, children := range g {
		for _, c := range children {
			if c < 0 {
				return fmt.Errorf("%w: child %d of node %d", ErrNodeOutOfRange, c, id)
			}
			if c == id {
				return fmt.Errorf("%w: self loop at node %d", ErrCycle, id)
			}
			dg.SetEdge(simple.Edge{F: simple.Node(id), T: simple.Node(c)})
		}
	}
	if _, err := topo.Sort(dg); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			return fmt.Errorf("%w: %d strongly connected component(s)", ErrCycle, len(cycles))
		}
		return err
	}
	return nil
}
