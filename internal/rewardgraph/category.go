package rewardgraph

// Trial type labels.
const (
	LabelBestSecond = "best_second"
	LabelBestMin    = "best_min"
	LabelBestAlone  = "best_alone"
	LabelBestThird  = "best_third"
	LabelUndefined  = "undefined"
)

// Category describes where the best path sits relative to the others.
// Depth is the decision layer (1 or 2) at which the best path separates; it
// is zero when the category is undefined.
type Category struct {
	Depth int
	Label string
}

// Defined reports whether the trial could be categorised.
func (c Category) Defined() bool { return c.Depth != 0 }

var undefined = Category{Label: LabelUndefined}

// sameSide reports whether two paths leave start through the same child.
func sameSide(a, b []int) bool {
	return len(a) > 1 && len(b) > 1 && a[1] == b[1]
}

func indexOf(vs []float64, v float64) int {
	for i, x := range vs {
		if x == v {
			return i
		}
	}
	return -1
}

// Categorize classifies a trial by the shape of its path-reward ranking.
// Only trees with exactly three or four leaves have a category; ties resolve
// to the first matching path.
func Categorize(g Graph, start int, r Rewards) (Category, error) {
	paths, err := Paths(g, start)
	if err != nil {
		return undefined, err
	}
	rewards, err := PathRewards(paths, r)
	if err != nil {
		return undefined, err
	}

	var depth int
	var otherwise string
	switch len(rewards) {
	case 3:
		depth, otherwise = 1, LabelBestAlone
	case 4:
		depth, otherwise = 2, LabelBestThird
	default:
		return undefined, nil
	}

	maxR, minR := rewards[0], rewards[0]
	for _, v := range rewards[1:] {
		maxR = max(maxR, v)
		minR = min(minR, v)
	}

	// The runner-up is the best value strictly below the maximum, so every
	// path tied for best is excluded.
	var second float64
	found := false
	for _, v := range rewards {
		if v == maxR {
			continue
		}
		if !found || v > second {
			second, found = v, true
		}
	}
	if !found {
		return undefined, nil
	}

	best := paths[indexOf(rewards, maxR)]
	switch {
	case sameSide(best, paths[indexOf(rewards, second)]):
		return Category{Depth: depth, Label: LabelBestSecond}, nil
	case sameSide(best, paths[indexOf(rewards, minR)]):
		return Category{Depth: depth, Label: LabelBestMin}, nil
	default:
		return Category{Depth: depth, Label: otherwise}, nil
	}
}
