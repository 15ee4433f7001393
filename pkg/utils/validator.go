package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents the structure of the validation error response.
type ErrorResponse struct {
	Errors []CError `json:"errors"`
}

// CError represents a single validation error.
type CError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// Validator is a struct that holds the validator instance from the go-playground/validator package
type Validator struct {
	validator *validator.Validate
}

// NewValidator is a function that returns a new instance of the Validator struct
func NewValidator() *Validator {
	v := validator.New()

	// Report fields by their json name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// Validate validates the input struct and returns JSON-friendly errors
// for client-side consumption.
func (v *Validator) Validate(str interface{}) *ErrorResponse {
	err := v.validator.Struct(str)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ErrorResponse{Errors: []CError{{Field: "", Msg: err.Error()}}}
	}
	response := ErrorResponse{Errors: make([]CError, 0, len(validationErrors))}
	for _, err := range validationErrors {
		field := err.Field()
		tag := err.Tag()
		message := getErrorMessage(field, tag, err.Param())
		response.Errors = append(response.Errors, CError{Field: field, Msg: message})
	}
	return &response
}

// getErrorMessage is a helper function that returns the error message based on the field and tag
func getErrorMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of the following values: %s", field, param)
	case "base64":
		return fmt.Sprintf("%s must be valid base64 data", field)
	default:
		return fmt.Sprintf("something wrong on %s; %s", field, tag)
	}
}
