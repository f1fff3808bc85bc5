package eligibility_test

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	"github.com/craftbase/paylane/internal/invoice/eligibility"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
)

func sentInvoice(projectID snowflake.ID) *invoicedomain.Invoice {
	return &invoicedomain.Invoice{
		ID:              snowflake.ID(1001),
		InvoiceNumber:   "INV-1001",
		ProjectID:       projectID,
		FreelancerID:    snowflake.ID(11),
		CommissionerID:  snowflake.ID(32),
		TotalAmount:     decimal.NewFromInt(500),
		Currency:        "USD",
		Status:          invoicedomain.StatusSent,
		Type:            invoicedomain.TypeMilestone,
		MilestoneNumber: 1,
	}
}

func ongoingProject(id snowflake.ID) *projectdomain.Project {
	return &projectdomain.Project{
		ID:              id,
		CommissionerID:  snowflake.ID(32),
		FreelancerID:    snowflake.ID(11),
		Status:          projectdomain.StatusOngoing,
		InvoicingMethod: projectdomain.InvoicingMilestone,
	}
}

func TestTriggerNilInvoice(t *testing.T) {
	d := eligibility.CanTriggerPayment(nil, ongoingProject(7), nil)
	require.False(t, d.OK)
	assert.Equal(t, eligibility.CodeInvoiceNotFound, d.Code)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrInvoiceNotFound)
}

func TestTriggerNilProject(t *testing.T) {
	d := eligibility.CanTriggerPayment(sentInvoice(7), nil, nil)
	require.False(t, d.OK)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrProjectMismatch)
}

func TestTriggerAlreadyPaidWinsOverStatus(t *testing.T) {
	inv := sentInvoice(7)
	inv.Status = invoicedomain.StatusPaid
	d := eligibility.CanTriggerPayment(inv, ongoingProject(7), nil)
	require.False(t, d.OK)
	assert.Equal(t, eligibility.CodeAlreadyPaid, d.Code)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrAlreadyPaid)
}

func TestTriggerRequiresSent(t *testing.T) {
	for _, status := range []invoicedomain.Status{
		invoicedomain.StatusDraft,
		invoicedomain.StatusProcessing,
		invoicedomain.StatusFailed,
	} {
		inv := sentInvoice(7)
		inv.Status = status
		d := eligibility.CanTriggerPayment(inv, ongoingProject(7), nil)
		require.False(t, d.OK, "status %s", status)
		assert.ErrorIs(t, d.Err, invoicedomain.ErrInvoiceNotPayable)
	}
}

func TestTriggerProjectMismatch(t *testing.T) {
	d := eligibility.CanTriggerPayment(sentInvoice(7), ongoingProject(8), nil)
	require.False(t, d.OK)
	assert.Equal(t, eligibility.CodeProjectMismatch, d.Code)
}

func TestTriggerMilestoneIgnoresOtherTasks(t *testing.T) {
	tasks := []taskdomain.Task{
		{ID: 1, Status: taskdomain.StatusApproved},
		{ID: 2, Status: taskdomain.StatusOngoing},
	}
	d := eligibility.CanTriggerPayment(sentInvoice(7), ongoingProject(7), tasks)
	assert.True(t, d.OK)
}

func TestTriggerFinalRequiresAllApproved(t *testing.T) {
	inv := sentInvoice(7)
	inv.Type = invoicedomain.TypeCompletionFinal
	inv.MilestoneNumber = invoicedomain.FinalMilestoneNumber

	tasks := []taskdomain.Task{
		{ID: 1, Status: taskdomain.StatusApproved},
		{ID: 2, Status: taskdomain.StatusInReview},
	}
	d := eligibility.CanTriggerPayment(inv, ongoingProject(7), tasks)
	require.False(t, d.OK)
	assert.Equal(t, eligibility.CodeTasksIncomplete, d.Code)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrTasksIncomplete)

	tasks[1].Status = taskdomain.StatusApproved
	d = eligibility.CanTriggerPayment(inv, ongoingProject(7), tasks)
	assert.True(t, d.OK)
}

func TestExecuteWrongCommissioner(t *testing.T) {
	inv := sentInvoice(7)
	inv.Status = invoicedomain.StatusProcessing

	d := eligibility.CanExecutePayment(inv, snowflake.ID(99), invoicedomain.ExecuteOptions{})
	require.False(t, d.OK)
	assert.Equal(t, eligibility.CodeNotAuthorized, d.Code)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrNotAuthorized)

	d = eligibility.CanExecutePayment(inv, snowflake.ID(32), invoicedomain.ExecuteOptions{})
	assert.True(t, d.OK)
}

func TestExecuteAuthorizationBeforeState(t *testing.T) {
	inv := sentInvoice(7)
	inv.Status = invoicedomain.StatusPaid

	d := eligibility.CanExecutePayment(inv, snowflake.ID(99), invoicedomain.ExecuteOptions{})
	require.False(t, d.OK)
	assert.Equal(t, eligibility.CodeNotAuthorized, d.Code)
}

func TestExecuteAlreadyPaid(t *testing.T) {
	inv := sentInvoice(7)
	inv.Status = invoicedomain.StatusPaid
	d := eligibility.CanExecutePayment(inv, snowflake.ID(32), invoicedomain.ExecuteOptions{})
	require.False(t, d.OK)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrAlreadyPaid)
}

func TestExecuteSentNeedsAllowSent(t *testing.T) {
	inv := sentInvoice(7)

	d := eligibility.CanExecutePayment(inv, snowflake.ID(32), invoicedomain.ExecuteOptions{})
	require.False(t, d.OK)
	assert.ErrorIs(t, d.Err, invoicedomain.ErrInvoiceNotPayable)

	d = eligibility.CanExecutePayment(inv, snowflake.ID(32), invoicedomain.ExecuteOptions{AllowSent: true})
	assert.True(t, d.OK)
}
