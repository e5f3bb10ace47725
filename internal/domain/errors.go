package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"        // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized"   // Authentication required
	EFORBIDDEN    = "forbidden"      // Permission or entitlement denied
	ENOTFOUND     = "not_found"      // Resource not found
	ECONFLICT     = "conflict"       // Resource conflict (e.g., duplicate)
	EPAYMENT      = "payment"        // Not enough credits
	EQUOTA        = "quota_exceeded" // Monthly quota used up
	ERATELIMIT    = "rate_limited"   // Too many requests
	EINTERNAL     = "internal"       // Internal server error
)

// RejectReason is the machine-readable reason a spend was rejected.
// Rejections are expected outcomes; callers branch on them and never retry.
type RejectReason string

const (
	RejectInsufficientFunds  RejectReason = "insufficient_funds"
	RejectQuotaExceeded      RejectReason = "quota_exceeded"
	RejectFeatureNotIncluded RejectReason = "feature_not_included"
	RejectTierInsufficient   RejectReason = "tier_insufficient"
)

// Error represents an application error with structured information.
type Error struct {
	Code    string       // Machine-readable error code
	Op      string       // Operation that failed (e.g., "credit.attempt_spend")
	Message string       // Human-readable message
	Reason  RejectReason // Set only for business-rule rejections
	Err     error        // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		// For internal errors, return generic message
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// RejectionReason returns the rejection reason carried by err, or "" when err
// is not a business-rule rejection.
func RejectionReason(err error) RejectReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsRejection reports whether err is one of the expected spend rejections.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// InsufficientFunds creates a rejection for a debit larger than the balance.
func InsufficientFunds(op string, cost, balance int64) *Error {
	return &Error{
		Code:    EPAYMENT,
		Op:      op,
		Reason:  RejectInsufficientFunds,
		Message: fmt.Sprintf("This action costs %s but the balance is %s.", FormatCredits(cost), FormatCredits(balance)),
	}
}

// QuotaExceeded creates a rejection for an exhausted monthly AI quota.
func QuotaExceeded(op string, used, limit int) *Error {
	return &Error{
		Code:    EQUOTA,
		Op:      op,
		Reason:  RejectQuotaExceeded,
		Message: fmt.Sprintf("Monthly AI generation limit reached (%d of %d used).", used, limit),
	}
}

// FeatureNotIncluded creates a rejection for a tier whose AI cap is zero.
func FeatureNotIncluded(op, tier string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Reason:  RejectFeatureNotIncluded,
		Message: fmt.Sprintf("AI generation is not included in the %q plan.", tier),
	}
}

// TierInsufficient creates a rejection for an account below the required tier.
func TierInsufficient(op, tier, required string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Reason:  RejectTierInsufficient,
		Message: fmt.Sprintf("This action requires the %q plan or higher (current plan %q).", required, tier),
	}
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}
