package quantile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xtxerr/quantile"
	qtest "github.com/xtxerr/quantile/internal/testing"
)

func referenceTargets() []quantile.Target {
	return []quantile.Target{
		quantile.MustTarget(0.1, 0.0001),
		quantile.MustTarget(0.5, 0.01),
		quantile.MustTarget(0.9, 0.005),
		quantile.MustTarget(0.99, 0.0001),
	}
}

// Empirical bounds checked against the reference targets. Ranks 0.1 and 0.9
// are checked more loosely than they are tracked.
var referenceBounds = []struct {
	rank, err float64
}{
	{0.1, 0.001},
	{0.5, 0.01},
	{0.9, 0.05},
	{0.99, 0.0001},
}

func checkStream(t *testing.T, data []float64) {
	t.Helper()

	stream, err := quantile.New(referenceTargets())
	require.NoError(t, err)
	for _, x := range data {
		stream.Observe(x)
	}

	sorted := qtest.Sorted(data)
	for _, b := range referenceBounds {
		v, err := stream.Query(b.rank)
		require.NoError(t, err)
		qtest.AssertQuantileInError(t, sorted, b.rank, b.err, v)
	}
}

func TestIntegrationSimple(t *testing.T) {
	stream, err := quantile.New([]quantile.Target{
		quantile.MustTarget(0.5, 0.005),
		quantile.MustTarget(0.9, 0.005),
	})
	require.NoError(t, err)

	data := qtest.Sequence(1, 100)
	for _, x := range data {
		stream.Observe(x)
	}

	p50, err := stream.Query(0.5)
	require.NoError(t, err)
	p90, err := stream.Query(0.9)
	require.NoError(t, err)

	require.Equal(t, 50.0, p50)
	require.Equal(t, 90.0, p90)
	qtest.AssertQuantileInError(t, data, 0.5, 0.005, p50)
	qtest.AssertQuantileInError(t, data, 0.9, 0.005, p90)
}

func TestQuantilesUniformlyDistributed(t *testing.T) {
	checkStream(t, qtest.Uniform(1, 10000))
}

func TestQuantilesNormalDistribution(t *testing.T) {
	checkStream(t, qtest.Normal(1, 10000, 3, 1))
}

func TestRandomData(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	for seed := int64(2); seed < 50; seed++ {
		checkStream(t, qtest.Uniform(seed, 10000))
		checkStream(t, qtest.Normal(seed, 10000, 3, 1))
	}
}
