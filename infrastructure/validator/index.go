package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterValidation("staffid", validateStaffID)
	validate.RegisterValidation("base64image", validateBase64Image)
}

func describe(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "staffid":
		return fmt.Errorf("%s must be 1-64 letters, digits, dashes or underscores", field)
	case "base64image":
		return fmt.Errorf("%s must be a base64 encoded image", field)
	case "min", "max", "gt", "lt", "gte", "lte":
		return fmt.Errorf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s failed %s validation", field, fe.Tag())
}

func validateStruct(payload interface{}) *[]error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &[]error{err}
	}
	errs := []error{}
	for _, fe := range fieldErrs {
		errs = append(errs, describe(fe))
	}
	return &errs
}

func validateField(value any, rules string) error {
	return validate.Var(value, rules)
}

type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

func (v *Validator) ValidateValue(value any, rules string) error {
	return validateField(value, rules)
}

var ValidatorInstance = Validator{}
