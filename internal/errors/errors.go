package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeProcessing   ErrorType = "processing"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"

	// Diagnosis pipeline conditions. ContractMismatch and TransientInference
	// usually travel as reason codes on a degraded prediction rather than as
	// returned errors.
	ErrorTypeModelUnavailable   ErrorType = "model_unavailable"
	ErrorTypeContractMismatch   ErrorType = "contract_mismatch"
	ErrorTypeDegenerateImage    ErrorType = "degenerate_image"
	ErrorTypeLowConfidence      ErrorType = "low_confidence"
	ErrorTypeTransientInference ErrorType = "transient_inference"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying details.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newAppError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return newAppError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewModelUnavailableError reports that no classifier can be used. It halts the pipeline.
func NewModelUnavailableError(message string, cause error) *AppError {
	return newAppError(ErrorTypeModelUnavailable, http.StatusServiceUnavailable, message, cause)
}

// NewContractMismatchError reports a classifier whose declared tensors cannot be bound.
func NewContractMismatchError(message string, cause error) *AppError {
	return newAppError(ErrorTypeContractMismatch, http.StatusInternalServerError, message, cause)
}

// NewDegenerateImageError is only raised when quality enforcement is enabled.
func NewDegenerateImageError(message string, cause error) *AppError {
	return newAppError(ErrorTypeDegenerateImage, http.StatusUnprocessableEntity, message, cause)
}

// NewLowConfidenceError reports a prediction below the confidence floor.
func NewLowConfidenceError(message string, cause error) *AppError {
	return newAppError(ErrorTypeLowConfidence, http.StatusUnprocessableEntity, message, cause)
}

// NewTransientInferenceError wraps a failed classifier invocation.
func NewTransientInferenceError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTransientInference, http.StatusInternalServerError, message, cause)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
