package partition

import (
	"context"
	"math/rand/v2"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/grouping"
	"github.com/gcbaptista/go-letor/model"
)

// FoldOptions configures a K-fold partition.
type FoldOptions struct {
	Folds int
	Seed  uint64
}

// Validate checks the fold count precondition.
func (o FoldOptions) Validate() error {
	return config.ValidateFoldCount(o.Folds)
}

// Fold groups records and partitions them with a generator seeded from opts.Seed.
func Fold(ctx context.Context, records []model.Record, opts FoldOptions) ([]model.Fold, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return FoldGroups(ctx, grouping.GroupBy(records), opts, NewRand(opts.Seed))
}

// AssignFolds returns, for each group in first-seen order, the index of
// the fold whose test set it belongs to. Groups are shuffled once and dealt
// round-robin, so fold sizes differ by at most one group. Group sizes are
// not weighted.
func AssignFolds(n, k int, rng *rand.Rand) []int {
	buckets := make([]int, n)
	for i, g := range rng.Perm(n) {
		buckets[g] = i % k
	}
	return buckets
}

// FoldGroups builds k train/test pairs. Fold i tests on the groups in
// bucket i and trains on every other group, both in first-seen order.
func FoldGroups(ctx context.Context, groups *grouping.Groups, opts FoldOptions, rng *rand.Rand) ([]model.Fold, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	all := groups.All()
	buckets := AssignFolds(len(all), opts.Folds, rng)

	folds := make([]model.Fold, opts.Folds)
	for i := range folds {
		folds[i] = model.Fold{
			Index: i,
			Train: model.Subset{Name: model.SubsetTrain},
			Test:  model.Subset{Name: model.SubsetTest},
		}
	}

	for gi, g := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for fi := range folds {
			if buckets[gi] == fi {
				folds[fi].Test.Groups = append(folds[fi].Test.Groups, g)
			} else {
				folds[fi].Train.Groups = append(folds[fi].Train.Groups, g)
			}
		}
	}

	return folds, nil
}
