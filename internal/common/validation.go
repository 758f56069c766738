package common

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return len(strings.Split(fl.Field().String(), " ")) == 2
	})
	v.RegisterValidation("pastyear", func(fl validator.FieldLevel) bool {
		year, err := strconv.Atoi(fl.Field().String())
		return err == nil && year <= time.Now().Year()
	})
	return v
}

// Validate checks the `validate` tags of s. Failures are reported per json field.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return NewAppError(http.StatusBadRequest, "Input validation error", fields, ErrValidation)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email"
	case "uuid", "uuid4":
		return "Invalid id"
	case "min":
		return fmt.Sprintf("%s must contain at least %s character(s)", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s character(s)", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "fullname":
		return "First and last names are required."
	case "pastyear":
		return fe.Field() + " cannot be greater than current year"
	case "len":
		return fmt.Sprintf("%s must contain %s character(s)", fe.Field(), fe.Param())
	case "alphanum":
		return fe.Field() + " must only contain letters and numbers"
	default:
		return "Invalid " + fe.Field()
	}
}
