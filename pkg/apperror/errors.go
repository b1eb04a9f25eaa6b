package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code.
// Reason is a stable machine-readable code the terminal UI switches on.
type AppError struct {
	Code    int          `json:"code"`
	Reason  string       `json:"reason,omitempty"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches errors carrying the same reason, so a detailed error built with
// WithMessage still satisfies errors.Is against its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return t.Reason != "" && e.Reason == t.Reason
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Reason: e.Reason, Message: message, Errors: e.Errors}
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Reason: "NotFound", Message: "Resource not found"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Reason: "Unauthorized", Message: "Unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Reason: "Forbidden", Message: "Forbidden"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Reason: "BadRequest", Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Reason: "Internal", Message: "Internal server error"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Reason: "Conflict", Message: "Resource already exists"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Reason: "InvalidToken", Message: "Invalid token"}
)

// Validation errors. They are surfaced to the cashier immediately and never
// retried automatically: the current input has to change.
var (
	ErrInvalidProduct         = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidProduct", Message: "Product is inactive or incomplete"}
	ErrInvalidQuantity        = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidQuantity", Message: "Quantity must be at least 1"}
	ErrQuantityExceeded       = &AppError{Code: http.StatusUnprocessableEntity, Reason: "QuantityExceeded", Message: "Quantity exceeds the allowed maximum"}
	ErrInvalidDiscount        = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidDiscount", Message: "Discount value is out of range"}
	ErrEmptyCart              = &AppError{Code: http.StatusUnprocessableEntity, Reason: "EmptyCart", Message: "Cart is empty"}
	ErrInsufficientAmount     = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InsufficientAmount", Message: "Amount tendered is less than the total"}
	ErrInvalidInstallmentPlan = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidInstallmentPlan", Message: "Installment plan is not allowed"}
	ErrMissingCardType        = &AppError{Code: http.StatusUnprocessableEntity, Reason: "MissingCardType", Message: "Card type must be selected"}
	ErrMissingCustomer        = &AppError{Code: http.StatusUnprocessableEntity, Reason: "MissingCustomer", Message: "A customer is required for this document"}
	ErrPromotionNotEligible   = &AppError{Code: http.StatusUnprocessableEntity, Reason: "PromotionNotEligible", Message: "Cart does not qualify for this promotion"}
	ErrInsufficientFunds      = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InsufficientFunds", Message: "Cash drawer balance is insufficient"}
	ErrInvalidPaymentMethod   = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidPaymentMethod", Message: "Unknown payment method"}
	ErrInvalidAmount          = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidAmount", Message: "Amount must be greater than zero"}
	ErrInvalidDocumentType    = &AppError{Code: http.StatusUnprocessableEntity, Reason: "InvalidDocumentType", Message: "Fiscal document type must be nfce or nfe"}
)

// State errors: the operation is valid but not in the current state.
var (
	ErrUnsavedCart         = &AppError{Code: http.StatusConflict, Reason: "UnsavedCart", Message: "Active cart has items; confirm overwrite to recover"}
	ErrHeldCartNotFound    = &AppError{Code: http.StatusNotFound, Reason: "HeldCartNotFound", Message: "Held cart not found"}
	ErrInvalidPaymentState = &AppError{Code: http.StatusConflict, Reason: "InvalidPaymentState", Message: "Operation not allowed in the current payment state"}
	ErrPaymentNotOpen      = &AppError{Code: http.StatusConflict, Reason: "PaymentNotOpen", Message: "No payment flow is open"}
	ErrSessionNotOpen      = &AppError{Code: http.StatusConflict, Reason: "SessionNotOpen", Message: "Terminal has no open session"}
	ErrSessionAlreadyOpen  = &AppError{Code: http.StatusConflict, Reason: "SessionAlreadyOpen", Message: "Terminal already has an open session"}
	ErrEmissionInProgress  = &AppError{Code: http.StatusConflict, Reason: "EmissionInProgress", Message: "Fiscal emission is already in progress"}
	ErrEmissionNotRetry    = &AppError{Code: http.StatusConflict, Reason: "EmissionNotRetryable", Message: "Only failed fiscal emissions can be retried"}
	ErrPrintJobNotFailed   = &AppError{Code: http.StatusConflict, Reason: "PrintJobNotFailed", Message: "Only failed print jobs can be retried"}
)

// Transient device errors returned synchronously (TEF authorization happens
// before the sale exists, so it can still be reported to the caller).
var (
	ErrTEFUnavailable  = &AppError{Code: http.StatusServiceUnavailable, Reason: "TEFUnavailable", Message: "Card terminal is not available"}
	ErrPaymentDeclined = &AppError{Code: http.StatusPaymentRequired, Reason: "PaymentDeclined", Message: "Card payment was declined"}
	ErrUnknownDevice   = &AppError{Code: http.StatusBadRequest, Reason: "UnknownDevice", Message: "Unknown print device"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  "ValidationFailed",
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Reason:  "NotFound",
		Message: resource + " not found",
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Reason:  "BadRequest",
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Reason:  "Internal",
		Message: err.Error(),
	}
}
