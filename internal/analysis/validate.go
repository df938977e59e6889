package analysis

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFeatureVector is returned when a batch cannot be scored at all.
// Out of range values are accepted; only non-finite numbers are rejected.
var ErrInvalidFeatureVector = errors.New("invalid feature vector")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// NewFeatureVector builds a validated FeatureVector
func NewFeatureVector(temperature, pressure, processDuration, materialQuality, machineLoad float64) (FeatureVector, error) {
	fv := FeatureVector{
		Temperature:     temperature,
		Pressure:        pressure,
		ProcessDuration: processDuration,
		MaterialQuality: materialQuality,
		MachineLoad:     machineLoad,
	}
	if err := fv.Validate(); err != nil {
		return FeatureVector{}, err
	}
	return fv, nil
}

// Validate checks that every feature holds a finite number
func (fv FeatureVector) Validate() error {
	if err := validate.Struct(fv); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFeatureVector, err)
	}
	return nil
}

// FieldErrors flattens a validation failure into field -> message
func FieldErrors(err error) map[string]string {
	out := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			out["batch"] = err.Error()
		}
		return out
	}

	for _, fe := range verrs {
		switch fe.Tag() {
		case "finite":
			out[fe.Field()] = "must be a finite number"
		case "required":
			out[fe.Field()] = "is required"
		default:
			out[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return out
}

func errDimension(n int) error {
	return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidFeatureVector, len(Features), n)
}
