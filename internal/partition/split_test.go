package partition

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	letorerrors "github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/internal/grouping"
	testutil "github.com/gcbaptista/go-letor/internal/testing"
	"github.com/gcbaptista/go-letor/model"
)

func TestSplitOptions_Validate(t *testing.T) {
	tests := []struct {
		name       string
		test       float64
		validation float64
		wantErr    bool
	}{
		{name: "both zero", test: 0, validation: 0, wantErr: true},
		{name: "test is one", test: 1, validation: 0, wantErr: true},
		{name: "validation is one", test: 0, validation: 1, wantErr: true},
		{name: "sum above one", test: 0.6, validation: 0.5, wantErr: true},
		{name: "sum exactly one", test: 0.5, validation: 0.5, wantErr: true},
		{name: "negative test", test: -0.1, validation: 0.2, wantErr: true},
		{name: "NaN validation", test: 0.1, validation: math.NaN(), wantErr: true},
		{name: "test only", test: 0.2, validation: 0, wantErr: false},
		{name: "validation only", test: 0, validation: 0.3, wantErr: false},
		{name: "both", test: 0.1, validation: 0.1, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SplitOptions{TestFraction: tt.test, ValidationFraction: tt.validation}.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, letorerrors.ErrConfiguration))
		})
	}
}

func TestSplit_InvalidOptionsFailBeforeTouchingData(t *testing.T) {
	// A nil Groups would panic if the split tried to read it.
	_, err := SplitGroups(context.Background(), nil, SplitOptions{TestFraction: 0.6, ValidationFraction: 0.5}, NewRand(1))
	assert.True(t, errors.Is(err, letorerrors.ErrConfiguration))
}

// subsetOf maps every group ID to the name of the subset containing it and
// fails if a group shows up twice.
func subsetOf(t *testing.T, result model.SplitResult) map[uint64]model.SubsetName {
	t.Helper()
	owner := make(map[uint64]model.SubsetName)
	for _, s := range result.Subsets() {
		for _, g := range s.Groups {
			prev, dup := owner[g.ID]
			require.False(t, dup, "group %d in both %s and %s", g.ID, prev, s.Name)
			owner[g.ID] = s.Name
		}
	}
	return owner
}

func TestSplit_SampleDatasetGroupIntegrity(t *testing.T) {
	records := testutil.SampleRecords(t)

	for seed := uint64(0); seed < 50; seed++ {
		result, err := Split(context.Background(), records, SplitOptions{
			TestFraction:       0.1,
			ValidationFraction: 0.1,
			Seed:               seed,
		})
		require.NoError(t, err)

		owner := subsetOf(t, result)
		assert.Len(t, owner, 3, "seed %d", seed)
		for _, qid := range []uint64{1, 2, 3} {
			assert.Contains(t, owner, qid, "seed %d", seed)
		}

		total := 0
		for _, s := range result.Subsets() {
			for _, r := range s.Records() {
				assert.Equal(t, owner[r.GroupID], s.Name)
			}
			total += s.RecordCount()
		}
		assert.Equal(t, 25, total, "seed %d", seed)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	records := testutil.UniformGroups(200, 3)
	opts := SplitOptions{TestFraction: 0.2, ValidationFraction: 0.1, Seed: 42}

	first, err := Split(context.Background(), records, opts)
	require.NoError(t, err)
	second, err := Split(context.Background(), records, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Train.GroupIDs(), second.Train.GroupIDs())
	assert.Equal(t, first.Test.GroupIDs(), second.Test.GroupIDs())
	assert.Equal(t, first.Validation.GroupIDs(), second.Validation.GroupIDs())

	opts.Seed = 43
	other, err := Split(context.Background(), records, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.Train.GroupIDs(), other.Train.GroupIDs(), "different seeds should produce different splits")
}

func TestSplit_PreservesGroupOrder(t *testing.T) {
	records := testutil.UniformGroups(100, 2)
	result, err := Split(context.Background(), records, SplitOptions{TestFraction: 0.5, Seed: 7})
	require.NoError(t, err)

	for _, s := range result.Subsets() {
		ids := s.GroupIDs()
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i], "subset %s must keep first-seen order", s.Name)
		}
	}
}

func TestSplit_SingleFractionSubsets(t *testing.T) {
	records := testutil.UniformGroups(50, 2)

	testOnly, err := Split(context.Background(), records, SplitOptions{TestFraction: 0.3, Seed: 1})
	require.NoError(t, err)
	assert.NotNil(t, testOnly.Test)
	assert.Nil(t, testOnly.Validation)
	assert.Len(t, testOnly.Subsets(), 2)

	validationOnly, err := Split(context.Background(), records, SplitOptions{ValidationFraction: 0.3, Seed: 1})
	require.NoError(t, err)
	assert.Nil(t, validationOnly.Test)
	assert.NotNil(t, validationOnly.Validation)

	// Same seed, same single held-out probability: the held-out groups are identical.
	assert.Equal(t, testOnly.Test.GroupIDs(), validationOnly.Validation.GroupIDs())
}

func TestSplit_SingleGroupIsAllOrNothing(t *testing.T) {
	records := testutil.UniformGroups(1, 10)

	for seed := uint64(0); seed < 20; seed++ {
		result, err := Split(context.Background(), records, SplitOptions{TestFraction: 0.5, Seed: seed})
		require.NoError(t, err)

		trainCount := result.Train.RecordCount()
		testCount := result.Test.RecordCount()
		assert.True(t, (trainCount == 10 && testCount == 0) || (trainCount == 0 && testCount == 10),
			"seed %d: train=%d test=%d", seed, trainCount, testCount)
	}
}

func TestSplit_RealizedFractionsApproachNominal(t *testing.T) {
	const n = 10000
	records := testutil.UniformGroups(n, 1)

	result, err := Split(context.Background(), records, SplitOptions{TestFraction: 0.2, ValidationFraction: 0.1, Seed: 2024})
	require.NoError(t, err)

	assert.InDelta(t, 0.7, float64(len(result.Train.Groups))/n, 0.03)
	assert.InDelta(t, 0.2, float64(len(result.Test.Groups))/n, 0.03)
	assert.InDelta(t, 0.1, float64(len(result.Validation.Groups))/n, 0.03)
}

func TestSplitGroups_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups := grouping.GroupBy(testutil.UniformGroups(5, 1))
	_, err := SplitGroups(ctx, groups, SplitOptions{TestFraction: 0.5}, NewRand(1))
	assert.ErrorIs(t, err, context.Canceled)
}
