package domain

// APIError represents a standardized API error with HTTP status code.
// Success is always false and lets clients branch on a single field.
type APIError struct {
	Success     bool              `json:"success"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Status      int               `json:"status"`
	Detail      string            `json:"detail,omitempty"`
	Filename    string            `json:"filename,omitempty"`
	QuotationID string            `json:"quotationId,omitempty"`
	Cause       string            `json:"cause,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"uuid":     "Must be a valid UUID",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation      = "validation_error"
	ErrorTypeNotFound        = "not_found"
	ErrorTypeBadRequest      = "bad_request"
	ErrorTypeBuildFailure    = "build_failure"
	ErrorTypePersistFailure  = "persist_failure"
	ErrorTypeNotReady        = "dependency_not_ready"
	ErrorTypeTimeout         = "timeout"
	ErrorTypeTooManyRequests = "too_many_requests"
	ErrorTypeInternal        = "internal_error"
)
