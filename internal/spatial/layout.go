// Package spatial maps continuous screen coordinates onto the discrete node
// ids of the task display.
package spatial

import (
	"errors"
	"fmt"
	"math"
)

// Unassigned is returned for points that fall outside every node region.
const Unassigned = -1

var (
	ErrTooFewNodes     = errors.New("layout needs at least 2 nodes")
	ErrCoincidentNodes = errors.New("layout contains coincident nodes")
)

// Point is a screen coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// DefaultLayout is the 11-node ring shown on the 1920x1080 task display.
// Index is the node id.
var DefaultLayout = []Point{
	{960.0, 162.0},
	{755.6377710017841, 222.00616458981358},
	{616.159105755992, 382.97312508528694},
	{585.8474949690074, 593.7950088673017},
	{674.3266608940903, 787.5373574313177},
	{853.5050935139395, 902.68834402628},
	{1066.4949064860602, 902.68834402628},
	{1245.6733391059095, 787.537357431318},
	{1334.1525050309926, 593.7950088673018},
	{1303.840894244008, 382.97312508528705},
	{1164.3622289982159, 222.00616458981352},
}

// Classifier assigns points to nodes. Each node owns a circle whose radius is
// half the distance to its nearest neighbour. This approximates a Voronoi
// partition: points between circles stay unassigned.
//
// A Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	nodes []Point
	radii []float64
}

// NewClassifier precomputes the region radii for layout.
func NewClassifier(layout []Point) (*Classifier, error) {
	if len(layout) < 2 {
		return nil, ErrTooFewNodes
	}
	nodes := make([]Point, len(layout))
	copy(nodes, layout)

	radii := make([]float64, len(nodes))
	for i, node := range nodes {
		nearest := math.Inf(1)
		for j, other := range nodes {
			if i == j {
				continue
			}
			if d := node.Distance(other); d < nearest {
				nearest = d
			}
		}
		if nearest == 0 {
			return nil, fmt.Errorf("%w: node %d", ErrCoincidentNodes, i)
		}
		radii[i] = nearest / 2
	}
	return &Classifier{nodes: nodes, radii: radii}, nil
}

// MustClassifier is NewClassifier for layouts known to be valid.
func MustClassifier(layout []Point) *Classifier {
	c, err := NewClassifier(layout)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the lowest node id whose region contains (x, y), or
// Unassigned.
func (c *Classifier) Classify(x, y float64) int {
	p := Point{X: x, Y: y}
	for i, node := range c.nodes {
		if node.Distance(p) <= c.radii[i] {
			return i
		}
	}
	return Unassigned
}

// Len returns the number of nodes in the layout.
func (c *Classifier) Len() int { return len(c.nodes) }

// Radius returns the region radius of node id.
func (c *Classifier) Radius(id int) float64 { return c.radii[id] }

// Nodes returns a copy of the layout.
func (c *Classifier) Nodes() []Point {
	out := make([]Point, len(c.nodes))
	copy(out, c.nodes)
	return out
}
