package rewardgraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// star is a start node with three leaves.
var star = Graph{{1, 2, 3}, {}, {}, {}}

// twoLayer is a binary tree of depth two rooted at 0.
var twoLayer = Graph{{1, 2}, {3, 4}, {5, 6}, {}, {}, {}, {}}

func masked(vs ...float64) Rewards {
	return append(Rewards{Unset}, Values(vs...)...)
}

func TestBest_Star(t *testing.T) {
	best, err := Best(star, Values(0, 1, 2, 3), 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, best)
}

func TestBest_ExcludesStartReward(t *testing.T) {
	best, err := Best(star, Values(100, 1, 2, 3), 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, best)
}

func TestBest_TwoLayer(t *testing.T) {
	best, err := Best(twoLayer, masked(1, 2, 5, 1, 3, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, 6.0, best)
}

func TestBest_StartPastGraphIsLeaf(t *testing.T) {
	best, err := Best(Graph{{}}, Values(0, 0, 0), 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, best)
}

func TestBest_OutOfRange(t *testing.T) {
	_, err := Best(Graph{{1, 5}, {}}, Values(0, 1), 0)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)

	_, err = Best(Graph{{-1}}, Values(0), 0)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
}

func TestBest_CycleIsReported(t *testing.T) {
	_, err := Best(Graph{{1}, {0}}, Values(0, 1), 0)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestAverage(t *testing.T) {
	avg, err := Average(star, Values(0, 1, 2, 3), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, avg, 1e-12)

	avg, err = Average(twoLayer, masked(1, 2, 5, 1, 3, 0), 0)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 1e-12)
}

func TestAverage_SinglePath(t *testing.T) {
	_, err := Average(Graph{{1}, {}}, Values(0, 4), 0)
	assert.ErrorIs(t, err, ErrSinglePath)
}

func TestPaths(t *testing.T) {
	paths, err := Paths(star, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}}, paths)
	for _, p := range paths {
		assert.Len(t, p, 2)
	}

	paths, err = Paths(twoLayer, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 3}, {0, 1, 4}, {0, 2, 5}, {0, 2, 6}}, paths)
}

func TestPathRewards(t *testing.T) {
	got, err := PathRewards([][]int{{0, 1, 3}, {0, 2}}, masked(1, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 2}, got)

	_, err = PathRewards([][]int{{0, 9}}, Values(1, 2))
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
}

func TestBestPath_FirstOfTies(t *testing.T) {
	path, err := BestPath(star, Values(0, 3, 3, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, path)
}

func TestRewardJSON(t *testing.T) {
	var r Rewards
	require.NoError(t, json.Unmarshal([]byte(`[null, 1, 2.5, -3]`), &r))
	assert.Equal(t, Rewards{Unset, R(1), R(2.5), R(-3)}, r)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 1, 2.5, -3]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &r))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		g     Graph
		start int
		want  error
	}{
		{"tree", twoLayer, 0, nil},
		{"leaf past end", Graph{{1, 7}, {}}, 0, nil},
		{"empty", Graph{}, 0, ErrEmptyGraph},
		{"start out of range", star, 4, ErrNodeOutOfRange},
		{"negative child", Graph{{-2}}, 0, ErrNodeOutOfRange},
		{"self loop", Graph{{0}}, 0, ErrCycle},
		{"two cycle", Graph{{1}, {2}, {1}}, 0, ErrCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.g, tt.start)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
