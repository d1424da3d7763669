package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
	return instance
}

// Struct checks the `validate` tags of v and converts failures into an
// *errors.ValidationError keyed by json field name.
func Struct(v interface{}) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &appErr.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), reason(fe))
	}
	return verr
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "email", "url", "hostname", "hostname_port":
		return "is invalid"
	case "max":
		return "is too long (maximum is " + fe.Param() + ")"
	case "gt", "min":
		return "is too small"
	case "lte":
		return "is too big"
	default:
		return "is invalid"
	}
}
