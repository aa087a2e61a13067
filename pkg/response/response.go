// Package response defines the JSON envelope returned by the HTTP API and
// helpers for turning validation failures into response details.
package response

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Message: "Invalid request body.",
}

var InvalidURLResponse = Response{
	Status:  StatusError,
	Message: "The provided URL has an invalid format.",
}

var InvalidAliasResponse = Response{
	Status:  StatusError,
	Message: "Custom alias must be 3-20 letters, digits, hyphens or underscores.",
}

var AliasConflictResponse = Response{
	Status:  StatusError,
	Message: "The requested custom alias already exists.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Message: "The requested resource was not found.",
}

var URLExpiredResponse = Response{
	Status:  StatusError,
	Message: "The short URL has expired.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Message: "An internal server error occurred. Please try again later.",
}

// Response is the envelope for every JSON payload served by the API.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SuccessResponse builds a success envelope. At most the first data value
// is attached.
func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	var errs []validationError

	for _, e := range validationErrs {
		issue := "Invalid value."

		switch e.Tag() {
		case "required":
			issue = "This field is required."
		case "url":
			issue = "Invalid url."
		case "min":
			issue = fmt.Sprintf("Must be at least %s characters long.", e.Param())
		case "max":
			issue = fmt.Sprintf("Must be at most %s characters long.", e.Param())
		}

		errs = append(errs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: issue,
		})
	}

	return errs
}

// ValidationErrorResponse builds an error envelope carrying one detail entry
// per failed field.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Message: "The request contains invalid data.",
	}

	for _, e := range getValidationErrors(err) {
		resp.Details = append(resp.Details, e)
	}

	return resp
}
