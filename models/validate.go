package models

import (
	"errors"
	"fmt"
	"strings"

	"homematch/apperrors"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every request and model check.
var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("offertype", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == OfferTypeBuy || v == OfferTypeRent
	})
	_ = validate.RegisterValidation("listingstatus", func(fl validator.FieldLevel) bool {
		return IsListingStatus(fl.Field().String())
	})
	_ = validate.RegisterValidation("combinemode", func(fl validator.FieldLevel) bool {
		return CombineMode(fl.Field().String()).Valid()
	})
}

// Validate checks v against its `validate` tags and reports failures as a
// validation error naming every offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidation("invalid input: %v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return apperrors.NewValidation("invalid input: %s", strings.Join(msgs, "; "))
}
