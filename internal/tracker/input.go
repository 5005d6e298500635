package tracker

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/choreboss/internal/credential"
)

// PersonInput is everything needed to put a new person on the roster.
type PersonInput struct {
	FirstName string    `json:"first_name" validate:"required,max=100"`
	LastName  string    `json:"last_name" validate:"required,max=100"`
	Birthday  time.Time `json:"birthday" validate:"required"`
	PIN       string    `json:"pin" validate:"required,pin"`
	IsAdmin   bool      `json:"is_admin"`
}

// PersonUpdate replaces a person's identity fields. Sequence and PIN have
// their own operations.
type PersonUpdate struct {
	FirstName string    `json:"first_name" validate:"required,max=100"`
	LastName  string    `json:"last_name" validate:"required,max=100"`
	Birthday  time.Time `json:"birthday" validate:"required"`
	IsAdmin   bool      `json:"is_admin"`
}

type ChoreInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// ChoreUpdate replaces a chore's editable fields. A nil AssignedTo leaves
// the chore unassigned.
type ChoreUpdate struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	AssignedTo  *int64 `json:"assigned_to" validate:"omitnil,gt=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return credential.ValidatePIN(fl.Field().String()) == nil
	})
}

// validateInput runs struct tags and reports the first failure as a
// ValidationError.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), "is required")
	case "max":
		return invalid(fe.Field(), "must be at most %s characters", fe.Param())
	case "gt":
		return invalid(fe.Field(), "must be greater than %s", fe.Param())
	case "pin":
		return invalid(fe.Field(), "%s", credential.ErrInvalidPIN.Error())
	default:
		return invalid(fe.Field(), "failed %q check", fe.Tag())
	}
}
