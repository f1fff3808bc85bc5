package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
)

// actorHeader identifies the caller until a real auth layer fronts this
// service.
const actorHeader = "X-User-ID"

func parseSnowflake(raw string) (snowflake.ID, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return snowflake.ID(v), true
}

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, ok := parseSnowflake(c.Param(name))
	if !ok {
		AbortWithError(c, newValidationError(name, "invalid_id", "must be a numeric id"))
		return 0, false
	}
	return id, true
}

func actorID(c *gin.Context) (snowflake.ID, bool) {
	id, ok := parseSnowflake(c.GetHeader(actorHeader))
	if !ok {
		AbortWithError(c, newValidationError("actor", "missing_actor", "X-User-ID header is required"))
		return 0, false
	}
	return id, true
}

// Projects.

func (s *Server) createProject(c *gin.Context) {
	var req projectdomain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	project, err := s.projectSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := s.projectSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) projectEligibility(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := s.invoiceSvc.Eligibility(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) createUpfrontInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.CreateUpfrontInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) createFinalInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.CreateFinalInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// createTaskInvoice bills one approved task. The billing protocol comes from
// the project, not the request.
func (s *Server) createTaskInvoice(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}

	project, err := s.projectSvc.GetByID(c.Request.Context(), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var inv *invoicedomain.Invoice
	switch project.InvoicingMethod {
	case projectdomain.InvoicingMilestone:
		inv, err = s.invoiceSvc.CreateMilestoneInvoice(c.Request.Context(), projectID, taskID)
	default:
		inv, err = s.invoiceSvc.CreateManualInvoice(c.Request.Context(), projectID, taskID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// Tasks.

func (s *Server) getTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := s.taskSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if task == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) submitTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	task, err := s.taskSvc.Submit(c.Request.Context(), id, actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) approveTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	task, err := s.taskSvc.Approve(c.Request.Context(), id, actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) rejectTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	task, err := s.taskSvc.Reject(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Invoices.

func (s *Server) listInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if raw := c.Query("project_id"); raw != "" {
		id, ok := parseSnowflake(raw)
		if !ok {
			AbortWithError(c, newValidationError("project_id", "invalid_id", "must be a numeric id"))
			return
		}
		req.ProjectID = &id
	}
	req.Status = invoicedomain.Status(c.Query("status"))

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) invoiceTransactions(c *gin.Context) {
	records, err := s.invoiceSvc.Transactions(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": records})
}

func (s *Server) triggerInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.Trigger(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) executeInvoice(c *gin.Context) {
	var req struct {
		CommissionerID *snowflake.ID `json:"commissionerId"`
		AllowSent      bool          `json:"allowSent"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	// The payer names itself in the body; system callers (retries, back
	// office) fall back to the identity header.
	var commissioner snowflake.ID
	if req.CommissionerID != nil {
		commissioner = *req.CommissionerID
	} else {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		commissioner = actor
	}

	inv, err := s.invoiceSvc.Execute(c.Request.Context(), c.Param("invoiceNumber"), commissioner, invoicedomain.ExecuteOptions{
		AllowSent: req.AllowSent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// Wallets.

func (s *Server) getWallet(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	wallet, err := s.walletSvc.GetByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) walletEntries(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	entries, err := s.walletSvc.Entries(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type withdrawalRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (s *Server) requestWithdrawal(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Reference == "" {
		req.Reference = s.genID.Generate().String()
	}

	wallet, err := s.walletSvc.RequestWithdrawal(c.Request.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) completeWithdrawal(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Reference == "" {
		AbortWithError(c, newValidationError("reference", "missing_reference", "reference is required"))
		return
	}

	wallet, err := s.walletSvc.CompleteWithdrawal(c.Request.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}
