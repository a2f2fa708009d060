package rewardgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fork has one branching child and one leaf child of the start node.
var fork = Graph{{1, 2}, {3, 4}, {}, {}, {}}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		g       Graph
		rewards Rewards
		want    Category
	}{
		{"star is defined", star, Values(0, 1, 2, 3), Category{1, LabelBestAlone}},
		{"three leaves best_second", fork, Values(0, 1, 0, 5, 3), Category{1, LabelBestSecond}},
		{"three leaves best_min", fork, Values(0, 1, 3, 5, -1), Category{1, LabelBestMin}},
		{"four leaves best_second", twoLayer, masked(1, 2, 5, 4, 3, 0), Category{2, LabelBestSecond}},
		{"four leaves best_min", twoLayer, masked(1, 2, 5, 1, 3, 0), Category{2, LabelBestMin}},
		{"four leaves best_third", twoLayer, masked(1, 1, 5, 2, 4, 0), Category{2, LabelBestThird}},
		{"two leaves", Graph{{1, 2}, {}, {}}, Values(0, 1, 2), Category{0, LabelUndefined}},
		{"all tied", star, Values(0, 1, 1, 1), Category{0, LabelUndefined}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Categorize(tt.g, 0, tt.rewards)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Depth != 0, got.Defined())
		})
	}
}

func TestCategorize_TiedBestUsesNextDistinctValue(t *testing.T) {
	// Paths: [0,1,3]=6 [0,1,4]=6 [0,2]=2. Both best paths are excluded from
	// the runner-up search, which leaves [0,2] on the other side.
	got, err := Categorize(fork, 0, Values(0, 1, 2, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, Category{1, LabelBestAlone}, got)
}

func TestCategorize_OutOfRange(t *testing.T) {
	_, err := Categorize(star, 0, Values(0, 1))
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
}
