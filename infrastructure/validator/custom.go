package validator

import (
	"regexp"
	"strings"

	"fingerprint.gateman.io/application/utils"
	"github.com/go-playground/validator/v10"
)

var staffIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateStaffID(fl validator.FieldLevel) bool {
	return staffIDPattern.MatchString(fl.Field().String())
}

func validateBase64Image(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if strings.TrimSpace(value) == "" {
		return false
	}
	_, err := utils.DecodeBase64Image(value)
	return err == nil
}
