package rewardgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayer1(t *testing.T) {
	d, ok := Layer1(masked(1, 2, 5, 1, 3, 0), twoLayer)
	require.True(t, ok)
	assert.Equal(t, Differential{Nodes: [2]int{2, 1}, Diff: 1}, d)
}

func TestLayer1_Missing(t *testing.T) {
	tests := []struct {
		name    string
		rewards Rewards
		g       Graph
	}{
		{"nothing masked", Values(0, 1, 2, 5, 1, 3, 0), twoLayer},
		{"masked leaf only", Rewards{R(0), R(1), R(2), R(5), Unset, R(3), R(0)}, twoLayer},
		{"masked node past graph", Rewards{R(0), R(1), Unset}, Graph{{1}}},
		{"masked children", Rewards{Unset, Unset, R(2), R(5), R(1), R(3), R(0)}, Graph{{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Layer1(tt.rewards, tt.g)
			assert.False(t, ok)
		})
	}
}

func TestLayer1_SkipsToNextMaskedBranch(t *testing.T) {
	// Node 0 is masked but has one child; node 1 is masked and branches.
	g := Graph{{1}, {2, 3}, {}, {}}
	d, ok := Layer1(Rewards{Unset, Unset, R(4), R(1)}, g)
	require.True(t, ok)
	assert.Equal(t, Differential{Nodes: [2]int{3, 2}, Diff: 3}, d)
}

func TestLayer2(t *testing.T) {
	r := masked(1, 2, 5, 1, 3, 0)

	d, ok := Layer2([]int{1}, r, twoLayer)
	require.True(t, ok)
	assert.Equal(t, Differential{Nodes: [2]int{3, 4}, Diff: 4}, d)

	// Leaves and out-of-range selections are passed over.
	d, ok = Layer2([]int{4, 99, -1, 2}, r, twoLayer)
	require.True(t, ok)
	assert.Equal(t, Differential{Nodes: [2]int{5, 6}, Diff: 3}, d)

	_, ok = Layer2([]int{3, 4}, r, twoLayer)
	assert.False(t, ok)

	_, ok = Layer2(nil, r, twoLayer)
	assert.False(t, ok)
}

func TestConnected(t *testing.T) {
	conn, rest, err := Connected(twoLayer, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 4, 2, 5, 6}, conn)
	assert.Empty(t, rest)

	conn, rest, err = Connected(Graph{{1}, {}, {3}, {}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, conn)
	assert.Equal(t, []int{2, 3}, rest)

	// Shared descendants are listed once.
	conn, _, err = Connected(Graph{{1, 2}, {2}, {}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, conn)
}

func TestConnected_OutOfRange(t *testing.T) {
	_, _, err := Connected(Graph{{3}, {}}, 0)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)

	_, _, err = Connected(Graph{{}}, 5)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
}
