package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/config"
	"github.com/craftbase/paylane/internal/events"
	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	projectrepo "github.com/craftbase/paylane/internal/project/repository"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
	taskrepo "github.com/craftbase/paylane/internal/task/repository"
)

type noopEmitter struct{}

func (noopEmitter) Emit(ctx context.Context, event events.Event) {}

// invoiceStub records upfront invoice requests and stubs out the rest of the
// settlement surface.
type invoiceStub struct {
	upfrontCalls []snowflake.ID
}

func (s *invoiceStub) Trigger(ctx context.Context, invoiceNumber string) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceStub) Execute(ctx context.Context, invoiceNumber string, commissionerID snowflake.ID, opts invoicedomain.ExecuteOptions) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceStub) Eligibility(ctx context.Context, projectID snowflake.ID) (*invoicedomain.EligibilityReport, error) {
	return nil, nil
}

func (s *invoiceStub) CreateUpfrontInvoice(ctx context.Context, projectID snowflake.ID) (*invoicedomain.Invoice, error) {
	s.upfrontCalls = append(s.upfrontCalls, projectID)
	return &invoicedomain.Invoice{ProjectID: projectID}, nil
}

func (s *invoiceStub) CreateMilestoneInvoice(ctx context.Context, projectID, taskID snowflake.ID) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceStub) CreateManualInvoice(ctx context.Context, projectID, taskID snowflake.ID) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceStub) CreateFinalInvoice(ctx context.Context, projectID snowflake.ID) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceStub) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	return invoicedomain.ListInvoiceResponse{}, nil
}

func (s *invoiceStub) GetByNumber(ctx context.Context, invoiceNumber string) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceStub) Transactions(ctx context.Context, invoiceNumber string) ([]invoicedomain.TransactionRecord, error) {
	return nil, nil
}

func setupProjectService(t *testing.T) (*Service, *invoiceStub, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&projectdomain.Project{}, &taskdomain.Task{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	stub := &invoiceStub{}
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     projectrepo.Provide(),
		Tasks:    taskrepo.Provide(),
		Invoices: stub,
		Emitter:  noopEmitter{},
		Policy:   config.NewStaticSettlementPolicyHolder(config.DefaultSettlementPolicy()),
	}).(*Service)

	return svc, stub, db
}

func validRequest(method projectdomain.InvoicingMethod) projectdomain.CreateProjectRequest {
	return projectdomain.CreateProjectRequest{
		CommissionerID:  snowflake.ID(32),
		FreelancerID:    snowflake.ID(11),
		Title:           "marketing site",
		InvoicingMethod: method,
		Currency:        "usd",
		TotalBudget:     decimal.NewFromInt(4000),
		Milestones: []projectdomain.MilestoneSpec{
			{Title: "wireframes", Amount: decimal.NewFromInt(1500)},
			{Title: "build", Amount: decimal.NewFromInt(2500)},
		},
	}
}

func TestCreateMilestoneProject(t *testing.T) {
	svc, stub, db := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, validRequest(projectdomain.InvoicingMilestone))
	require.NoError(t, err)

	assert.Equal(t, projectdomain.StatusOngoing, project.Status)
	assert.Equal(t, "USD", project.Currency)
	assert.Equal(t, 2, project.TaskCount)
	assert.Empty(t, stub.upfrontCalls, "milestone projects carry no upfront invoice")

	var tasks []taskdomain.Task
	require.NoError(t, db.Order("order_index asc").Find(&tasks, "project_id = ?", project.ID).Error)
	require.Len(t, tasks, 2)
	assert.Equal(t, 1, tasks[0].OrderIndex)
	assert.True(t, tasks[0].AgreedAmount.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, taskdomain.StatusOngoing, tasks[0].Status)
	assert.Equal(t, project.FreelancerID, tasks[0].FreelancerID)
}

func TestCreateCompletionProjectRequestsUpfront(t *testing.T) {
	svc, stub, db := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, validRequest(projectdomain.InvoicingCompletion))
	require.NoError(t, err)

	require.Len(t, stub.upfrontCalls, 1)
	assert.Equal(t, project.ID, stub.upfrontCalls[0])

	var tasks []taskdomain.Task
	require.NoError(t, db.Find(&tasks, "project_id = ?", project.ID).Error)
	for _, task := range tasks {
		assert.True(t, task.AgreedAmount.IsZero(), "completion tasks derive amounts from the budget")
	}
}

func TestCreateAbsorbsDuplicateInWindow(t *testing.T) {
	svc, stub, _ := setupProjectService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validRequest(projectdomain.InvoicingCompletion))
	require.NoError(t, err)

	second, err := svc.Create(ctx, validRequest(projectdomain.InvoicingCompletion))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, stub.upfrontCalls, 1, "duplicate does not generate a second upfront invoice")

	other := validRequest(projectdomain.InvoicingCompletion)
	other.Title = "different engagement"
	third, err := svc.Create(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := setupProjectService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*projectdomain.CreateProjectRequest)
		wantErr error
	}{
		{"bad method", func(r *projectdomain.CreateProjectRequest) { r.InvoicingMethod = "retainer" }, projectdomain.ErrInvalidInvoicingMethod},
		{"same parties", func(r *projectdomain.CreateProjectRequest) { r.FreelancerID = r.CommissionerID }, projectdomain.ErrInvalidParties},
		{"missing freelancer", func(r *projectdomain.CreateProjectRequest) { r.FreelancerID = 0 }, projectdomain.ErrInvalidParties},
		{"blank title", func(r *projectdomain.CreateProjectRequest) { r.Title = "  " }, projectdomain.ErrInvalidTitle},
		{"zero budget", func(r *projectdomain.CreateProjectRequest) { r.TotalBudget = decimal.Zero }, projectdomain.ErrInvalidBudget},
		{"no currency", func(r *projectdomain.CreateProjectRequest) { r.Currency = "" }, projectdomain.ErrInvalidCurrency},
		{"no milestones", func(r *projectdomain.CreateProjectRequest) { r.Milestones = nil }, projectdomain.ErrMissingMilestones},
		{"zero milestone amount", func(r *projectdomain.CreateProjectRequest) { r.Milestones[0].Amount = decimal.Zero }, projectdomain.ErrInvalidBudget},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(projectdomain.InvoicingMilestone)
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _ := setupProjectService(t)

	_, err := svc.GetByID(context.Background(), snowflake.ID(424242))
	assert.ErrorIs(t, err, projectdomain.ErrProjectNotFound)
}
