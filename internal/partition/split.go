package partition

import (
	"context"
	"math/rand/v2"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/grouping"
	"github.com/gcbaptista/go-letor/model"
)

// SplitOptions configures a fractional split.
type SplitOptions struct {
	TestFraction       float64
	ValidationFraction float64
	Seed               uint64
}

// Validate checks the fraction preconditions. It never looks at data.
func (o SplitOptions) Validate() error {
	return config.ValidateSplitFractions(o.TestFraction, o.ValidationFraction)
}

// Split groups records and splits them with a generator seeded from opts.Seed.
func Split(ctx context.Context, records []model.Record, opts SplitOptions) (model.SplitResult, error) {
	if err := opts.Validate(); err != nil {
		return model.SplitResult{}, err
	}
	return SplitGroups(ctx, grouping.GroupBy(records), opts, NewRand(opts.Seed))
}

// SplitGroups assigns each group independently: held out with probability
// test+validation, otherwise train. When both fractions are positive a
// second draw sends a held-out group to validation with probability
// validation/(test+validation), else to test. The realized fractions are
// probabilistic per group, not exact counts.
func SplitGroups(ctx context.Context, groups *grouping.Groups, opts SplitOptions, rng *rand.Rand) (model.SplitResult, error) {
	if err := opts.Validate(); err != nil {
		return model.SplitResult{}, err
	}

	heldOut := opts.TestFraction + opts.ValidationFraction
	validationShare := opts.ValidationFraction / heldOut

	result := model.SplitResult{Train: model.Subset{Name: model.SubsetTrain}}
	if opts.TestFraction > 0 {
		result.Test = &model.Subset{Name: model.SubsetTest}
	}
	if opts.ValidationFraction > 0 {
		result.Validation = &model.Subset{Name: model.SubsetValidation}
	}

	for _, g := range groups.All() {
		if err := ctx.Err(); err != nil {
			return model.SplitResult{}, err
		}

		if rng.Float64() >= heldOut {
			result.Train.Groups = append(result.Train.Groups, g)
			continue
		}

		switch {
		case result.Test != nil && result.Validation != nil:
			if rng.Float64() < validationShare {
				result.Validation.Groups = append(result.Validation.Groups, g)
			} else {
				result.Test.Groups = append(result.Test.Groups, g)
			}
		case result.Test != nil:
			result.Test.Groups = append(result.Test.Groups, g)
		default:
			result.Validation.Groups = append(result.Validation.Groups, g)
		}
	}

	return result, nil
}
