package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest          ErrorCode = "bad_request"
	errCodeNotFound            ErrorCode = "not_found"
	errCodeValidationFailed    ErrorCode = "validation_failed"
	errCodeUnauthorized        ErrorCode = "unauthorized"
	errCodeForbidden           ErrorCode = "forbidden"
	errCodeNotForSale          ErrorCode = "not_for_sale"
	errCodeInsufficientPayment ErrorCode = "insufficient_payment"
	errCodeNothingToWithdraw   ErrorCode = "nothing_to_withdraw"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps market errors onto HTTP statuses. Anything not
// recognized is treated as an internal failure.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Caller is not permitted to perform this operation")
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Asset not found")
	case errors.Is(err, domain.ErrNotForSale):
		respondWithError(c, http.StatusConflict, errCodeNotForSale, "Asset is not for sale")
	case errors.Is(err, domain.ErrInsufficientPayment):
		respondWithError(c, http.StatusPaymentRequired, errCodeInsufficientPayment, "Payment does not cover the listed price")
	case errors.Is(err, domain.ErrNothingToWithdraw):
		respondWithError(c, http.StatusConflict, errCodeNothingToWithdraw, "No escrowed funds to withdraw")
	case errors.Is(err, domain.ErrInvariantViolation):
		respondInternalError(c, err, "Market state is inconsistent")
	default:
		respondInternalError(c, err, "Operation failed")
	}
}
