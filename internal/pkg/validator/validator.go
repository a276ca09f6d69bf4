package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Interaction type validation
	validate.RegisterValidation("interaction_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		validTypes := []string{"like", "dislike", "ping"}
		for _, v := range validTypes {
			if t == v {
				return true
			}
		}
		return false
	})

	// Report reason validation
	validate.RegisterValidation("report_reason", func(fl validator.FieldLevel) bool {
		reason := fl.Field().String()
		validReasons := []string{"spam", "harassment", "fake_profile", "inappropriate_content", "underage", "other"}
		for _, r := range validReasons {
			if reason == r {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "uuid":
			errors[field] = "Invalid identifier format"
		case "interaction_type":
			errors[field] = "Invalid interaction type. Must be: like, dislike, or ping"
		case "report_reason":
			errors[field] = "Invalid report reason"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
