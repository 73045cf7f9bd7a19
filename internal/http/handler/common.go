package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/quotation-api/internal/artifact"
	"github.com/straye-as/quotation-api/internal/domain"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fieldErrors := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fieldName := toJSONFieldName(fe.Field())
			fieldErrors[fieldName] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fieldErrors,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "uuid":
		return "Must be a valid UUID"
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// respondWithArtifactError classifies err and sends it as a structured error.
// Errors that are not *artifact.Error become 500 internal errors.
func respondWithArtifactError(w http.ResponseWriter, err error) {
	var ae *artifact.Error
	if !errors.As(err, &ae) {
		respondJSON(w, http.StatusInternalServerError, domain.APIError{
			Type:   domain.ErrorTypeInternal,
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
			Detail: "An unexpected error occurred",
			Cause:  err.Error(),
		})
		return
	}

	status := ae.Kind.HTTPStatus()
	body := domain.APIError{
		Type:        artifactErrorType(ae.Kind),
		Title:       http.StatusText(status),
		Status:      status,
		Detail:      artifactErrorDetail(ae.Kind),
		Filename:    ae.Filename,
		QuotationID: ae.QuotationID,
	}
	if ae.Err != nil {
		body.Cause = ae.Err.Error()
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	respondJSON(w, status, body)
}

func artifactErrorType(kind artifact.Kind) string {
	switch kind {
	case artifact.KindNotFound:
		return domain.ErrorTypeNotFound
	case artifact.KindBuildFailure:
		return domain.ErrorTypeBuildFailure
	case artifact.KindPersistFailure:
		return domain.ErrorTypePersistFailure
	case artifact.KindDependencyNotReady:
		return domain.ErrorTypeNotReady
	case artifact.KindTimeout:
		return domain.ErrorTypeTimeout
	default:
		return domain.ErrorTypeInternal
	}
}

func artifactErrorDetail(kind artifact.Kind) string {
	switch kind {
	case artifact.KindNotFound:
		return "No quotation document matches the requested file"
	case artifact.KindBuildFailure:
		return "The quotation document could not be generated"
	case artifact.KindPersistFailure:
		return "The quotation document could not be saved"
	case artifact.KindDependencyNotReady:
		return "The service is starting up, please retry shortly"
	case artifact.KindTimeout:
		return "The quotation document is still being generated, please retry shortly"
	default:
		return "An unexpected error occurred"
	}
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusServiceUnavailable:
		return domain.ErrorTypeNotReady
	default:
		return domain.ErrorTypeInternal
	}
}
