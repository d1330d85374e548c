// Package apiresp writes the uniform JSON envelopes used by every API
// endpoint and decodes + validates request bodies.
package apiresp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// StatusError is the status field of every error envelope.
const StatusError = "error"

// Error kinds that are not library errors.
const (
	KindBadRequest   = "bad_request"
	KindValidation   = "validation"
	KindUnauthorized = "unauthorized"
	KindForbidden    = "forbidden"
	KindRateLimited  = "rate_limited"
	KindInternal     = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Kind   string `json:"kind"`
}

var validate = validator.New()

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, r *http.Request, status int, kind, msg string) {
	JSON(w, r, status, ErrorBody{Status: StatusError, Error: msg, Kind: kind})
}

// BadRequest writes a 400 with kind bad_request.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusBadRequest, KindBadRequest, msg)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusUnauthorized, KindUnauthorized, msg)
}

// Internal writes a generic 500. The cause is never exposed; log it first.
func Internal(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusInternalServerError, KindInternal, "internal error")
}

// DecodeAndValidate reads a JSON body into dst and runs the struct's
// `validate` tags. On failure it writes a 400 and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			BadRequest(w, r, "request body is required")
			return false
		}
		BadRequest(w, r, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			Error(w, r, http.StatusBadRequest, KindValidation, validationMessage(verrs))
			return false
		}
		BadRequest(w, r, err.Error())
		return false
	}
	return true
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		field := lowerFirst(err.Field())
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, err.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, err.Param()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be exactly %s characters", field, err.Param()))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("%s must contain only digits", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", field))
		}
	}
	return strings.Join(msgs, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
