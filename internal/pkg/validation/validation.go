package validation

import (
	"errors"
	"reflect"
	"strings"

	"fundgate-backend/internal/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// zero decimals count as missing for "required"
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok || d.IsZero() {
			return nil
		}
		return d.String()
	}, decimal.Decimal{})
	return v
}

// Struct validates s by its `validate` tags. Missing required fields yield
// MISSING_FIELDS; any other tag failure yields INVALID_FIELDS.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("INVALID_INPUT", err.Error())
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("MISSING_FIELDS", "Missing required fields").
			With(map[string]interface{}{"fields": missing})
	}
	return apperr.Validation("INVALID_FIELDS", "Invalid field values").
		With(map[string]interface{}{"fields": invalid})
}
