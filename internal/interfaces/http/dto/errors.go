package dto

import "net/http"

// Error codes. Format: ERR_<CATEGORY>_<DESCRIPTION>

const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeLockTimeout         = "ERR_LOCK_TIMEOUT"

	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodeUnsupportedCarrier  = "ERR_UNSUPPORTED_CARRIER"
	ErrCodeConsistency         = "ERR_CONSISTENCY_VIOLATION"
	ErrCodeNoWarehouse         = "ERR_NO_WAREHOUSE"
	ErrCodeWorkflowRunning     = "ERR_WORKFLOW_RUNNING"
	ErrCodeChannelNotAvailable = "ERR_CHANNEL_NOT_AVAILABLE"
	ErrCodeChannelFailed       = "ERR_CHANNEL_FAILED"

	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLockTimeout:         http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeUnsupportedCarrier:  http.StatusUnprocessableEntity,
	ErrCodeConsistency:         http.StatusConflict,
	ErrCodeNoWarehouse:         http.StatusUnprocessableEntity,
	ErrCodeWorkflowRunning:     http.StatusConflict,
	ErrCodeChannelNotAvailable: http.StatusUnprocessableEntity,
	ErrCodeChannelFailed:       http.StatusBadGateway,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps shared.DomainError codes to API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":    ErrCodeInsufficientStock,
	"UNSUPPORTED_CARRIER":   ErrCodeUnsupportedCarrier,
	"CONSISTENCY_VIOLATION": ErrCodeConsistency,
	"LOCK_TIMEOUT":          ErrCodeLockTimeout,
	"NO_WAREHOUSE":          ErrCodeNoWarehouse,
	"INVALID_ORDER_KEY":     ErrCodeInvalidInput,
	"ORDER_NO_REQUIRED":     ErrCodeInvalidInput,
	"EMPTY_ORDER":           ErrCodeInvalidInput,
	"RAW_ROW_VARIANT":       ErrCodeInvalidInput,
	"INVALID_WORKFLOW":      ErrCodeValidation,
	"WORKFLOW_RUNNING":      ErrCodeWorkflowRunning,
}

// NormalizeErrorCode converts a domain code to the API format; unknown codes pass through
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
