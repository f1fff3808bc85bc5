package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/gateway"
	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	"github.com/craftbase/paylane/internal/locker"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return http.StatusBadGateway, errorPayload{
			Type:    "payment_failed",
			Message: "payment processor rejected the charge",
		}
	}

	switch {
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, locker.ErrLockWait):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "resource_busy",
			Message: "resource is locked by another settlement, retry shortly",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, projectdomain.ErrInvalidInvoicingMethod),
		errors.Is(err, projectdomain.ErrInvalidBudget),
		errors.Is(err, projectdomain.ErrInvalidCurrency),
		errors.Is(err, projectdomain.ErrInvalidParties),
		errors.Is(err, projectdomain.ErrInvalidTitle),
		errors.Is(err, projectdomain.ErrMissingMilestones),
		errors.Is(err, taskdomain.ErrMissingRejectReason),
		errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrMissingCurrency),
		errors.Is(err, invoicedomain.ErrMethodMismatch):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrNotAuthorized),
		errors.Is(err, taskdomain.ErrNotTaskFreelancer),
		errors.Is(err, taskdomain.ErrNotTaskCommissioner):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	var transitionErr *taskdomain.StateTransitionError
	if errors.As(err, &transitionErr) {
		return true
	}
	switch {
	case errors.Is(err, invoicedomain.ErrAlreadyPaid),
		errors.Is(err, invoicedomain.ErrInvoiceNotPayable),
		errors.Is(err, invoicedomain.ErrProjectMismatch),
		errors.Is(err, invoicedomain.ErrTasksIncomplete),
		errors.Is(err, invoicedomain.ErrUpfrontAlreadyInvoiced),
		errors.Is(err, invoicedomain.ErrTaskNotApproved),
		errors.Is(err, invoicedomain.ErrTaskAlreadyInvoiced),
		errors.Is(err, invoicedomain.ErrNothingToInvoice),
		errors.Is(err, invoicedomain.ErrInvoicesOutstanding),
		errors.Is(err, walletdomain.ErrInsufficientFunds),
		errors.Is(err, walletdomain.ErrInsufficientPending),
		errors.Is(err, walletdomain.ErrCurrencyMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, projectdomain.ErrProjectNotFound),
		errors.Is(err, taskdomain.ErrTaskNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, walletdomain.ErrWalletNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
