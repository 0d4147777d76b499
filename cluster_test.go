package corcluster

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.05, cfg.Alpha)
	assert.Equal(t, 500, cfg.Replicates)
	assert.Equal(t, MaxFailures(0), cfg.Stop)
	assert.False(t, cfg.Metric)
	assert.False(t, cfg.Bonferroni)
	assert.Zero(t, cfg.Workers)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero Alpha", func(c *Config) { c.Alpha = 0 }},
		{"Alpha above 1", func(c *Config) { c.Alpha = 1.5 }},
		{"negative Replicates", func(c *Config) { c.Replicates = -1 }},
		{"negative MaxFailures", func(c *Config) { c.Stop = MaxFailures(-1) }},
		{"QuantileRule above 1", func(c *Config) { c.Stop = QuantileRule(1.2) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Replicates = 5
			cfg.Logger = quietLogger()
			tc.mutate(&cfg)
			_, err := Cluster(context.Background(), pairedData(), nil, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCluster_AlphaOneBuildsFullTree(t *testing.T) {
	data := blockData(300, 7, 11)
	cfg := DefaultConfig()
	cfg.Alpha = 1
	cfg.Replicates = 40
	cfg.Seed = 3
	cfg.Logger = quietLogger()

	res, err := Cluster(context.Background(), data, testLabels(7), cfg)
	require.NoError(t, err)

	assert.True(t, res.Complete)
	require.Len(t, res.Linkage, 6)
	assert.Nil(t, res.HaltPValues)
	require.NoError(t, res.Linkage.Validate(7))

	tree, err := res.Tree()
	require.NoError(t, err)
	assert.Equal(t, []int{tree.Root()}, tree.Roots())
	assert.ElementsMatch(t, testLabels(7), tree.LeafLabels(tree.Root()))
	assert.Equal(t, 7, res.Linkage[5].Size)
}

func TestCluster_PerfectPairThenHalt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Replicates = 60
	cfg.Seed = 1
	cfg.Logger = quietLogger()

	res, err := Cluster(context.Background(), pairedData(), []string{"w", "x", "y", "z"}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Linkage, 1)
	assert.Equal(t, 0, res.Linkage[0].Left)
	assert.Equal(t, 1, res.Linkage[0].Right)
	assert.InDelta(t, 1.0, res.Linkage[0].Value, 1e-12)
	assert.Equal(t, 2, res.Linkage[0].Size)
	assert.False(t, res.Complete)

	// {w,x} against y, z: all three remaining correlations are exactly 0.
	require.Len(t, res.HaltPValues, 2)
	for _, p := range res.HaltPValues {
		assert.InDelta(t, 0.5, p, 1e-12)
	}

	comps := res.Components()
	require.Len(t, comps, 3)
	assert.Equal(t, []string{"y"}, comps[0].Labels)
	assert.Equal(t, []string{"z"}, comps[1].Labels)
	assert.Equal(t, []string{"w", "x"}, comps[2].Labels)
	assert.Equal(t, Linkage{{Left: 0, Right: 1, Value: res.Linkage[0].Value, Size: 2}}, comps[2].Linkage)
}

func TestCluster_EqualCorrelationsHaltImmediately(t *testing.T) {
	log, hook := test.NewNullLogger()

	cfg := DefaultConfig()
	cfg.Replicates = 60
	cfg.Seed = 2
	cfg.Logger = log

	res, err := Cluster(context.Background(), equicorrelatedData(), nil, cfg)
	require.NoError(t, err)

	assert.Empty(t, res.Linkage)
	assert.False(t, res.Complete)
	assert.Equal(t, []string{"0", "1", "2"}, res.Labels)

	comps := res.Components()
	require.Len(t, comps, 3)
	for i, c := range comps {
		assert.Equal(t, []string{res.Labels[i]}, c.Labels)
		assert.Empty(t, c.Linkage)
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, 0, entry.Data["merges"])
}

func TestCluster_Deterministic(t *testing.T) {
	data := blockData(250, 6, 12)
	cfg := DefaultConfig()
	cfg.Replicates = 50
	cfg.Seed = 99
	cfg.Logger = quietLogger()

	cfg.Workers = 1
	a, err := Cluster(context.Background(), data, nil, cfg)
	require.NoError(t, err)

	cfg.Workers = 6
	b, err := Cluster(context.Background(), data, nil, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Linkage, b.Linkage)
	assert.Equal(t, a.HaltPValues, b.HaltPValues)

	// More workers than variables.
	cfg.Workers = 16
	c, err := Cluster(context.Background(), data, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Linkage, c.Linkage)
	assert.Equal(t, a.HaltPValues, c.HaltPValues)
}

func TestCluster_NoReplicatesNeverStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Replicates = 0
	cfg.Logger = quietLogger()

	res, err := Cluster(context.Background(), equicorrelatedData(), nil, cfg)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Linkage, 2)
}

func TestCluster_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Replicates = 2
	cfg.Logger = quietLogger()

	_, err := Cluster(ctx, nil, nil, cfg)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Cluster(ctx, [][]uint8{{1}, {0}}, nil, cfg)
	assert.ErrorIs(t, err, ErrTooFewVariables)

	_, err = Cluster(ctx, pairedData(), []string{"a", "b"}, cfg)
	assert.ErrorIs(t, err, ErrLabelMismatch)
}

func TestClusterTable_AlphaOne(t *testing.T) {
	ct, err := NewContingencyTable(pairedData())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Alpha = 1
	cfg.Replicates = 20
	cfg.Logger = quietLogger()

	res, err := ClusterTable(context.Background(), ct, nil, cfg)
	require.NoError(t, err)
	require.True(t, res.Complete)
	assert.Equal(t, 0, res.Linkage[0].Left)
	assert.Equal(t, 1, res.Linkage[0].Right)
	for _, m := range res.Linkage {
		assert.GreaterOrEqual(t, m.Value, 0.0)
	}
}

func TestClusterStack_AverageLinkage(t *testing.T) {
	// Pairs (0,1), (0,2), (1,2).
	stack := mat.NewDense(1, 3, []float64{0.9, 0.1, 0.3})
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()

	res, err := ClusterStack(stack, nil, cfg)
	require.NoError(t, err)

	// {0,1} becomes node 3; its linkage to 2 is the mean of 0.1 and 0.3.
	want := Linkage{
		{Left: 0, Right: 1, Value: 0.9, Size: 2},
		{Left: 3, Right: 2, Value: 0.2, Size: 3},
	}
	require.Len(t, res.Linkage, 2)
	for i := range want {
		assert.Equal(t, want[i].Left, res.Linkage[i].Left)
		assert.Equal(t, want[i].Right, res.Linkage[i].Right)
		assert.InDelta(t, want[i].Value, res.Linkage[i].Value, 1e-12)
		assert.Equal(t, want[i].Size, res.Linkage[i].Size)
	}

	// The input stack is left untouched.
	assert.Equal(t, []float64{0.9, 0.1, 0.3}, mat.Row(nil, 0, stack))
}

func TestClusterStack_Metric(t *testing.T) {
	stack := mat.NewDense(1, 3, []float64{0.9, 0.1, 0.3})
	cfg := DefaultConfig()
	cfg.Metric = true
	cfg.Logger = quietLogger()

	res, err := ClusterStack(stack, nil, cfg)
	require.NoError(t, err)

	require.Len(t, res.Linkage, 2)
	assert.True(t, res.Metric)
	assert.InDelta(t, MetricTransform(0.9), res.Linkage[0].Value, 1e-12)
	assert.InDelta(t, (MetricTransform(0.1)+MetricTransform(0.3))/2, res.Linkage[1].Value, 1e-12)
	assert.True(t, res.Linkage.IsMonotonic(true))
}

func TestClusterStack_WarnsOnNonMonotonic(t *testing.T) {
	log, hook := test.NewNullLogger()
	stack := mat.NewDense(1, 3, []float64{0.5, 0.5, 0.5})
	cfg := DefaultConfig()
	cfg.Logger = log

	res, err := ClusterStack(stack, nil, cfg)
	require.NoError(t, err)
	assert.True(t, res.Complete)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
}

func TestClusterStack_Bonferroni(t *testing.T) {
	// Candidate (0,1). Pair (0,2) has |est| = 0.1 and se = 0.1, so p ≈ 0.16:
	// significant at alpha = 0.3 but not at 0.3/3.
	stack := mat.NewDense(3, 3, []float64{
		0.5, 0.4, 0.0,
		0.5, 0.5, 0.0,
		0.5, 0.3, 0.0,
	})
	cfg := DefaultConfig()
	cfg.Alpha = 0.3
	cfg.Logger = quietLogger()

	res, err := ClusterStack(stack, nil, cfg)
	require.NoError(t, err)
	assert.True(t, res.Complete)

	cfg.Bonferroni = true
	res, err = ClusterStack(stack, nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Linkage)
	require.Len(t, res.HaltPValues, 2)
	assert.InDelta(t, 0.15865525393145707, res.HaltPValues[0], 1e-9)
	assert.Equal(t, 0.0, res.HaltPValues[1])
}

func TestClusterStack_StopRuleSeesLastMerge(t *testing.T) {
	stack := mat.NewDense(2, 3, []float64{
		0.9, 0.1, 0.3,
		0.8, 0.2, 0.3,
	})
	var calls [][]float64
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	cfg.Stop = StopFunc(func(p []float64, alpha float64) bool {
		calls = append(calls, p)
		return len(p) == 0
	})

	res, err := ClusterStack(stack, nil, cfg)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 2)
	assert.Empty(t, calls[1])

	require.Len(t, res.Linkage, 1)
	assert.False(t, res.Complete)
	assert.Empty(t, res.HaltPValues)

	// Without bootstrap rows the rule is never consulted.
	calls = nil
	res, err = ClusterStack(mat.NewDense(1, 3, []float64{0.9, 0.1, 0.3}), nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.True(t, res.Complete)
}

func TestClusterStack_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()

	_, err := ClusterStack(mat.NewDense(2, 4, nil), nil, cfg)
	assert.ErrorIs(t, err, ErrStackShape)

	_, err = ClusterStack(mat.NewDense(1, 3, nil), []string{"a"}, cfg)
	assert.ErrorIs(t, err, ErrLabelMismatch)
}

func TestCompactColumns(t *testing.T) {
	idx := NewFlatIndex(4)
	cols := make([][]float64, idx.Len())
	for k := range cols {
		cols[k] = []float64{float64(k)}
	}

	// Dropping slot 1 leaves pairs (0,2), (0,3), (2,3): old positions 1, 2, 5.
	got := compactColumns(cols, idx, 1)
	require.Len(t, got, 3)
	assert.Equal(t, [][]float64{{1}, {2}, {5}}, got)
}

func TestAgglomerate_UsesFirstIndexOnTies(t *testing.T) {
	cols := [][]float64{{0.5}, {0.5}, {0.5}}

	z, pvals := agglomerate(cols, 3, 0.05, MaxFailures(0), false, quietLogger())
	assert.Nil(t, pvals)
	require.Len(t, z, 2)
	assert.Equal(t, 0, z[0].Left)
	assert.Equal(t, 1, z[0].Right)
}
