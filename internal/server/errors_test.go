package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/craftbase/paylane/internal/gateway"
	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	"github.com/craftbase/paylane/internal/locker"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
)

func TestMapErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		errType string
	}{
		{"validation", projectdomain.ErrInvalidBudget, http.StatusBadRequest, "validation_error"},
		{"reject reason", taskdomain.ErrMissingRejectReason, http.StatusBadRequest, "validation_error"},
		{"forbidden commissioner", invoicedomain.ErrNotAuthorized, http.StatusForbidden, "forbidden"},
		{"forbidden freelancer", taskdomain.ErrNotTaskFreelancer, http.StatusForbidden, "forbidden"},
		{"already paid", invoicedomain.ErrAlreadyPaid, http.StatusConflict, "conflict"},
		{"not payable", invoicedomain.ErrInvoiceNotPayable, http.StatusConflict, "conflict"},
		{"tasks incomplete", invoicedomain.ErrTasksIncomplete, http.StatusConflict, "conflict"},
		{"unsettled invoices", invoicedomain.ErrInvoicesOutstanding, http.StatusConflict, "conflict"},
		{"overdrawn wallet", walletdomain.ErrInsufficientFunds, http.StatusConflict, "conflict"},
		{"bad transition", &taskdomain.StateTransitionError{Op: "approve", From: taskdomain.StatusOngoing}, http.StatusConflict, "conflict"},
		{"invoice missing", invoicedomain.ErrInvoiceNotFound, http.StatusNotFound, "not_found"},
		{"project missing", projectdomain.ErrProjectNotFound, http.StatusNotFound, "not_found"},
		{"gateway failure", &gateway.Error{Provider: "simulated", Err: errors.New("declined")}, http.StatusBadGateway, "payment_failed"},
		{"lock contention", locker.ErrLockWait, http.StatusServiceUnavailable, "resource_busy"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.errType, payload.Type)
		})
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, invoicedomain.ErrAlreadyPaid)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "conflict")
}
