package config

import (
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/gcbaptista/go-letor/internal/errors"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their yaml/json name so messages match what users typed.
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"yaml", "json"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return field.Name
		})
		structValidator = v
	})
	return structValidator
}

// validateStruct runs tag validation and converts failures into
// ConfigurationErrors, one per failing field.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return fmt.Errorf("validate settings: %w", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, errors.NewConfigurationError(fe.Field(), fieldValue(fe), describeTag(fe)))
	}
	return stderrors.Join(errs...)
}

func fieldValue(fe validator.FieldError) any {
	v := fe.Value()
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "numeric":
		return "must be numeric"
	case "len":
		return "must have length " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " element(s)"
	case "gte":
		return "must be >= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	default:
		return "failed '" + fe.Tag() + "' validation"
	}
}

// ValidateSplitFractions enforces 0 <= test < 1, 0 <= validation < 1,
// test+validation < 1, and at least one fraction above zero.
func ValidateSplitFractions(test, validation float64) error {
	if !inUnitInterval(test) {
		return errors.NewConfigurationError("test_fraction", test, "must satisfy 0 <= fraction < 1")
	}
	if !inUnitInterval(validation) {
		return errors.NewConfigurationError("validation_fraction", validation, "must satisfy 0 <= fraction < 1")
	}
	if test+validation >= 1 {
		return errors.NewConfigurationError("test_fraction+validation_fraction", test+validation, "sum must be less than 1")
	}
	if test == 0 && validation == 0 {
		return errors.NewConfigurationError("test_fraction,validation_fraction", nil, "at least one fraction must be greater than 0")
	}
	return nil
}

// ValidateFoldCount enforces k > 1.
func ValidateFoldCount(k int) error {
	if k <= 1 {
		return errors.NewConfigurationError("folds", k, "must be greater than 1")
	}
	return nil
}

func inUnitInterval(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f < 1
}
