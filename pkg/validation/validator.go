package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-district/pkg/units"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Identifier limits
	MaxIDLength   = 100
	MaxConnectors = 50000

	idPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
)

func init() {
	validate = validator.New()

	// lengthunit accepts the supported model units, or empty for meters
	_ = validate.RegisterValidation("lengthunit", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || units.Unit(s).Valid()
	})

	// finite rejects NaN and infinities
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Float32 && f.Kind() != reflect.Float64 {
			return true
		}
		v := f.Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// ValidateStruct runs tag validation on any struct and returns the first
// failure in a user-friendly form.
func ValidateStruct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateID checks an entity identifier used in exported documents.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("identifier '%s' exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("identifier '%s' contains invalid characters (letters, digits, '_', '-', '.', ':' allowed)", id)
	}
	return nil
}

// ValidateConnectorCount bounds the size of a single network.
func ValidateConnectorCount(n int) error {
	if n < 1 {
		return fmt.Errorf("network must have at least 1 connector, got %d", n)
	}
	if n > MaxConnectors {
		return fmt.Errorf("network must not exceed %d connectors, got %d", MaxConnectors, n)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be >= %s", field, param)
		case "lte":
			return fmt.Errorf("%s: must be <= %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "lengthunit":
			return fmt.Errorf("%s: unknown length unit %q", field, e.Value())
		case "finite":
			return fmt.Errorf("%s: must be a finite number", field)
		case "dive":
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
