package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeConflict   ErrorCode = "CONFLICT"
	ErrCodeDisabled   ErrorCode = "FEATURE_DISABLED"

	// File processing errors
	ErrCodeInvalidFile       ErrorCode = "INVALID_FILE"
	ErrCodeFileTooLarge      ErrorCode = "FILE_TOO_LARGE"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// Store errors
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeRecordNotFound   ErrorCode = "RECORD_NOT_FOUND"

	// Retraining and training errors
	ErrCodeMalformedFeedback   ErrorCode = "MALFORMED_FEEDBACK_RECORD"
	ErrCodeDataset             ErrorCode = "DATASET_ERROR"
	ErrCodeInsufficientColumns ErrorCode = "INSUFFICIENT_COLUMNS"
	ErrCodeTrainingFailure     ErrorCode = "TRAINING_FAILURE"
	ErrCodePersistenceFailure  ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeModelNotFound       ErrorCode = "MODEL_NOT_FOUND"

	// LLM errors
	ErrCodeLLMRequestFailed   ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMInvalidResponse ErrorCode = "LLM_INVALID_RESPONSE"

	// Queue errors
	ErrCodeQueueError ErrorCode = "QUEUE_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message, http.StatusInternalServerError)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message, http.StatusNotFound)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

func Disabled(feature string) *AppError {
	return New(ErrCodeDisabled,
		fmt.Sprintf("%s is not configured", feature),
		http.StatusServiceUnavailable)
}

// File processing errors

func InvalidFile(message string) *AppError {
	return New(ErrCodeInvalidFile, message, http.StatusBadRequest)
}

func FileTooLarge(maxSize int64) *AppError {
	return New(ErrCodeFileTooLarge,
		fmt.Sprintf("file size exceeds maximum allowed size of %d MB", maxSize),
		http.StatusBadRequest)
}

func UnsupportedFormat(format string) *AppError {
	return New(ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported file format: %s", format),
		http.StatusBadRequest)
}

// Store errors

func StoreUnavailable(err error) *AppError {
	return Wrap(err, ErrCodeStoreUnavailable, "store operation failed", http.StatusServiceUnavailable)
}

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound)
}

// Retraining and training errors

func MalformedFeedback(id uint, err error) *AppError {
	return Wrap(err, ErrCodeMalformedFeedback, "feedback input could not be decoded", http.StatusUnprocessableEntity).
		WithDetails("feedback_id", id)
}

func DatasetError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDataset, message, http.StatusUnprocessableEntity)
}

func InsufficientColumns(columns int) *AppError {
	return New(ErrCodeInsufficientColumns,
		"dataset must have at least one feature column and one target column",
		http.StatusUnprocessableEntity).WithDetails("columns", columns)
}

func TrainingFailure(err error) *AppError {
	return Wrap(err, ErrCodeTrainingFailure, "classifier fit failed", http.StatusInternalServerError)
}

func PersistenceFailure(what string, err error) *AppError {
	return Wrap(err, ErrCodePersistenceFailure,
		fmt.Sprintf("failed to persist %s", what),
		http.StatusInternalServerError)
}

func ModelNotFound(name string) *AppError {
	return New(ErrCodeModelNotFound,
		fmt.Sprintf("model %q not found", name),
		http.StatusNotFound)
}

// LLM errors

func LLMRequestFailed(err error) *AppError {
	return Wrap(err, ErrCodeLLMRequestFailed, "LLM request failed", http.StatusBadGateway)
}

func LLMInvalidResponse(message string) *AppError {
	return New(ErrCodeLLMInvalidResponse, message, http.StatusBadGateway)
}

// Queue errors

func QueueError(err error) *AppError {
	return Wrap(err, ErrCodeQueueError, "failed to enqueue task", http.StatusServiceUnavailable)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}
