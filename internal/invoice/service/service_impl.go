package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/config"
	"github.com/craftbase/paylane/internal/events"
	"github.com/craftbase/paylane/internal/gateway"
	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	"github.com/craftbase/paylane/internal/invoice/eligibility"
	"github.com/craftbase/paylane/internal/invoice/pricing"
	"github.com/craftbase/paylane/internal/locker"
	obsmetrics "github.com/craftbase/paylane/internal/observability/metrics"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
	"github.com/craftbase/paylane/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     invoicedomain.Repository
	Txns     invoicedomain.TransactionRepository
	Projects projectdomain.Repository
	Tasks    taskdomain.Repository
	Wallets  walletdomain.Service
	Gateway  gateway.Processor
	Locker   locker.KeyedLocker
	Emitter  events.Emitter
	Policy   *config.SettlementPolicyHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     invoicedomain.Repository
	txns     invoicedomain.TransactionRepository
	projects projectdomain.Repository
	tasks    taskdomain.Repository
	wallets  walletdomain.Service
	gateway  gateway.Processor
	locker   locker.KeyedLocker
	emitter  events.Emitter
	policy   *config.SettlementPolicyHolder
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		txns:     p.Txns,
		projects: p.Projects,
		tasks:    p.Tasks,
		wallets:  p.Wallets,
		gateway:  p.Gateway,
		locker:   p.Locker,
		emitter:  p.Emitter,
		policy:   p.Policy,
		metrics:  p.Metrics,
	}
}

func (s *Service) rates() pricing.Rates {
	p := s.policy.Get()
	return pricing.Rates{
		UpfrontShare:      p.UpfrontShareDec(),
		MilestoneFeeRate:  p.MilestoneFeeRateDec(),
		CompletionFeeRate: p.CompletionFeeRateDec(),
	}
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, locker.ErrLockWait) {
			s.metrics.RecordLockTimeout()
		}
		return nil, err
	}
	return release, nil
}

// Trigger moves a sent invoice into processing and writes the audit record
// that anchors the settlement. The whole check-then-write sequence runs under
// the invoice lock so concurrent triggers serialize; the loser of the race
// finds the invoice already processing and fails its eligibility gate.
func (s *Service) Trigger(ctx context.Context, invoiceNumber string) (*invoicedomain.Invoice, error) {
	release, err := s.lock(ctx, "invoice:"+invoiceNumber)
	if err != nil {
		return nil, err
	}
	defer release()

	inv, err := s.repo.FindByNumber(ctx, s.db, invoiceNumber)
	if err != nil {
		return nil, err
	}

	var (
		project *projectdomain.Project
		tasks   []taskdomain.Task
	)
	if inv != nil {
		project, err = s.projects.FindByID(ctx, s.db, inv.ProjectID)
		if err != nil {
			return nil, err
		}
		if project != nil && inv.IsFinal() {
			tasks, err = s.tasks.FindByProject(ctx, s.db, inv.ProjectID)
			if err != nil {
				return nil, err
			}
		}
	}

	decision := eligibility.CanTriggerPayment(inv, project, tasks)
	if !decision.OK {
		s.metrics.RecordSettlement("trigger", decision.Code)
		return nil, decision.Err
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.MarkProcessing(ctx, tx, invoiceNumber); err != nil {
			return err
		}
		_, err := s.txns.Upsert(ctx, tx, s.auditRecord(inv, invoicedomain.StatusProcessing, now))
		return err
	})
	if err != nil {
		return nil, err
	}

	inv.Status = invoicedomain.StatusProcessing
	inv.UpdatedAt = now

	s.metrics.RecordSettlement("trigger", "ok")
	s.emitter.Emit(ctx, events.Event{
		Type:     events.EventInvoiceProcessing,
		ActorID:  inv.CommissionerID.String(),
		TargetID: inv.InvoiceNumber,
		Context: map[string]any{
			"project_id": inv.ProjectID.String(),
			"amount":     inv.TotalAmount.String(),
		},
	})

	return inv, nil
}

// Execute charges the commissioner and settles the invoice. A gateway failure
// leaves the invoice in processing so the call can simply be retried; the
// deterministic transaction id guarantees the retry lands on the same audit
// record instead of opening a second one.
func (s *Service) Execute(ctx context.Context, invoiceNumber string, commissionerID snowflake.ID, opts invoicedomain.ExecuteOptions) (*invoicedomain.Invoice, error) {
	release, err := s.lock(ctx, "invoice:"+invoiceNumber)
	if err != nil {
		return nil, err
	}
	defer release()

	inv, err := s.repo.FindByNumber(ctx, s.db, invoiceNumber)
	if err != nil {
		return nil, err
	}

	decision := eligibility.CanExecutePayment(inv, commissionerID, opts)
	if !decision.OK {
		s.metrics.RecordSettlement("execute", decision.Code)
		return nil, decision.Err
	}

	// Non-strict path: the invoice skipped Trigger, so promote it and write
	// the audit record before touching the gateway.
	if inv.Status == invoicedomain.StatusSent {
		now := time.Now().UTC()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.MarkProcessing(ctx, tx, invoiceNumber); err != nil {
				return err
			}
			_, err := s.txns.Upsert(ctx, tx, s.auditRecord(inv, invoicedomain.StatusProcessing, now))
			return err
		})
		if err != nil {
			return nil, err
		}
		inv.Status = invoicedomain.StatusProcessing
	}

	rates := s.rates()
	fee := pricing.PlatformFee(inv.TotalAmount, inv.Type, rates)
	net := pricing.NetAmount(inv.TotalAmount, inv.Type, rates)

	receipt, err := s.gateway.ProcessPayment(ctx, gateway.Charge{
		InvoiceNumber:  inv.InvoiceNumber,
		ProjectID:      inv.ProjectID.String(),
		CommissionerID: inv.CommissionerID.String(),
		FreelancerID:   inv.FreelancerID.String(),
		Amount:         inv.TotalAmount,
		Currency:       inv.Currency,
	})
	if err != nil {
		s.metrics.RecordSettlement("execute", "gateway_error")
		s.log.Warn("gateway rejected charge, invoice left processing",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err),
		)
		return nil, err
	}

	now := time.Now().UTC()
	details := invoicedomain.PaymentDetails{
		ProcessorTransactionID: receipt.ProcessorTransactionID,
		Provider:               receipt.Provider,
		PlatformFee:            fee,
		NetAmount:              net,
		PaidAt:                 now,
	}

	var projectCompleted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.MarkPaid(ctx, tx, invoiceNumber, details); err != nil {
			return err
		}
		if err := s.txns.UpdateStatus(ctx, tx, invoicedomain.DeriveTransactionID(invoiceNumber), invoicedomain.StatusPaid, now); err != nil {
			return err
		}
		completed, err := s.settleProject(ctx, tx, inv)
		if err != nil {
			return err
		}
		projectCompleted = completed
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The charge is committed; a wallet failure here must not unwind it.
	// The ledger is reconciled from the invoice record instead.
	if _, err := s.wallets.Credit(ctx, inv.FreelancerID, net, inv.Currency, inv.InvoiceNumber); err != nil {
		s.metrics.RecordReconciliationWarning()
		s.log.Error("wallet credit failed after settlement, reconciliation required",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("freelancer_id", inv.FreelancerID.String()),
			zap.String("net_amount", net.String()),
			zap.Error(err),
		)
	}

	inv.Status = invoicedomain.StatusPaid
	inv.PaidAt = &now
	inv.ProcessorTransactionID = receipt.ProcessorTransactionID
	inv.Provider = receipt.Provider
	inv.PlatformFee = fee
	inv.NetAmount = net
	inv.UpdatedAt = now

	s.metrics.RecordSettlement("execute", "paid")
	s.emitter.Emit(ctx, events.Event{
		Type:     events.EventInvoicePaid,
		ActorID:  commissionerID.String(),
		TargetID: inv.InvoiceNumber,
		Context: map[string]any{
			"project_id": inv.ProjectID.String(),
			"amount":     inv.TotalAmount.String(),
			"net_amount": net.String(),
			"provider":   receipt.Provider,
		},
	})
	if projectCompleted {
		s.emitter.Emit(ctx, events.Event{
			Type:     events.EventProjectCompleted,
			ActorID:  commissionerID.String(),
			TargetID: inv.ProjectID.String(),
		})
	}

	return inv, nil
}

// settleProject folds the paid invoice into the project totals and decides
// whether the project is finished. Runs inside the settlement transaction.
func (s *Service) settleProject(ctx context.Context, tx *gorm.DB, inv *invoicedomain.Invoice) (bool, error) {
	project, err := s.projects.FindByID(ctx, tx, inv.ProjectID)
	if err != nil {
		return false, err
	}
	if project == nil {
		return false, invoicedomain.ErrProjectMismatch
	}

	newPaid := project.PaidToDate.Add(inv.TotalAmount)
	fields := map[string]any{"paid_to_date": newPaid}
	completed := false

	switch project.InvoicingMethod {
	case projectdomain.InvoicingCompletion:
		if inv.Type == invoicedomain.TypeCompletionUpfront {
			fields["upfront_paid"] = true
		}
		// The final payment, or reaching the budget through manual
		// invoices, closes the project. Total paid is clamped to the
		// budget so rounding on the per-task split cannot overshoot.
		if inv.IsFinal() || newPaid.GreaterThanOrEqual(project.TotalBudget) {
			fields["paid_to_date"] = project.TotalBudget
			fields["status"] = string(projectdomain.StatusCompleted)
			completed = true
		}
	case projectdomain.InvoicingMilestone:
		paid, err := s.repo.FindPaidByProject(ctx, tx, project.ID)
		if err != nil {
			return false, err
		}
		if project.TaskCount > 0 && len(paid) >= project.TaskCount {
			fields["status"] = string(projectdomain.StatusCompleted)
			completed = true
		}
	}

	if err := s.projects.UpdateFields(ctx, tx, project.ID, fields); err != nil {
		return false, err
	}
	return completed, nil
}

func (s *Service) auditRecord(inv *invoicedomain.Invoice, status invoicedomain.Status, now time.Time) *invoicedomain.TransactionRecord {
	return &invoicedomain.TransactionRecord{
		TransactionID:  invoicedomain.DeriveTransactionID(inv.InvoiceNumber),
		InvoiceNumber:  inv.InvoiceNumber,
		ProjectID:      inv.ProjectID,
		FreelancerID:   inv.FreelancerID,
		CommissionerID: inv.CommissionerID,
		Amount:         inv.TotalAmount,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Eligibility reports what can be invoiced on a project right now. Read-only,
// no lock.
func (s *Service) Eligibility(ctx context.Context, projectID snowflake.ID) (*invoicedomain.EligibilityReport, error) {
	project, err := s.projects.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrProjectNotFound
	}

	tasks, err := s.tasks.FindByProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.FindByProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}

	byTask := make(map[snowflake.ID]*invoicedomain.Invoice, len(invoices))
	for i := range invoices {
		if invoices[i].TaskID != nil {
			byTask[*invoices[i].TaskID] = &invoices[i]
		}
	}

	rates := s.rates()
	budget := invoicedomain.BudgetBreakdown{
		TotalBudget: project.TotalBudget,
		PaidToDate:  project.PaidToDate,
	}
	perTask := decimal.Zero
	if project.InvoicingMethod == projectdomain.InvoicingCompletion {
		budget.UpfrontAmount = pricing.UpfrontAmount(project.TotalBudget, rates.UpfrontShare)
		budget.RemainingBudget = pricing.RemainingBudget(project.TotalBudget, rates.UpfrontShare)
		perTask = pricing.PerTaskAmount(budget.RemainingBudget, project.TaskCount)
	}

	report := &invoicedomain.EligibilityReport{
		ProjectID:       project.ID,
		InvoicingMethod: string(project.InvoicingMethod),
		TotalTasks:      len(tasks),
		PerTaskAmount:   perTask,
		Budget:          budget,
		Tasks:           make([]invoicedomain.EligibilityTask, 0, len(tasks)),
	}

	for i := range tasks {
		t := tasks[i]
		approved := t.Status == taskdomain.StatusApproved
		if approved {
			report.ApprovedTasks++
		}
		entry := invoicedomain.EligibilityTask{
			TaskID:      t.ID,
			Title:       t.Title,
			Status:      string(t.Status),
			Approved:    approved,
			Invoiceable: approved && byTask[t.ID] == nil && project.Status != projectdomain.StatusCompleted,
		}
		if existing := byTask[t.ID]; existing != nil {
			entry.InvoiceNumber = existing.InvoiceNumber
		}
		report.Tasks = append(report.Tasks, entry)
	}

	return report, nil
}

func (s *Service) CreateUpfrontInvoice(ctx context.Context, projectID snowflake.ID) (*invoicedomain.Invoice, error) {
	project, err := s.loadProject(ctx, projectID, projectdomain.InvoicingCompletion)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByProjectAndType(ctx, s.db, projectID, invoicedomain.TypeCompletionUpfront)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, invoicedomain.ErrUpfrontAlreadyInvoiced
	}

	amount := pricing.UpfrontAmount(project.TotalBudget, s.rates().UpfrontShare)
	inv := s.newInvoice(project, nil, amount, invoicedomain.TypeCompletionUpfront, 1)
	if err := s.repo.Insert(ctx, s.db, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) CreateMilestoneInvoice(ctx context.Context, projectID, taskID snowflake.ID) (*invoicedomain.Invoice, error) {
	project, err := s.loadProject(ctx, projectID, projectdomain.InvoicingMilestone)
	if err != nil {
		return nil, err
	}

	task, err := s.invoiceableTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if task.AgreedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, invoicedomain.ErrNothingToInvoice
	}

	inv := s.newInvoice(project, &task.ID, task.AgreedAmount, invoicedomain.TypeMilestone, task.OrderIndex)
	if err := s.repo.Insert(ctx, s.db, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) CreateManualInvoice(ctx context.Context, projectID, taskID snowflake.ID) (*invoicedomain.Invoice, error) {
	project, err := s.loadProject(ctx, projectID, projectdomain.InvoicingCompletion)
	if err != nil {
		return nil, err
	}

	task, err := s.invoiceableTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	remaining := pricing.RemainingBudget(project.TotalBudget, s.rates().UpfrontShare)
	amount := pricing.PerTaskAmount(remaining, project.TaskCount)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, invoicedomain.ErrNothingToInvoice
	}

	// Milestone 1 belongs to the upfront invoice, so per-task bills on a
	// completion project number after it.
	inv := s.newInvoice(project, &task.ID, amount, invoicedomain.TypeCompletionManual, task.OrderIndex+1)
	if err := s.repo.Insert(ctx, s.db, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateFinalInvoice bills whatever part of a completion-method budget has
// not been settled yet. If nothing remains the project is closed out directly
// and ErrNothingToInvoice tells the caller why no invoice came back.
func (s *Service) CreateFinalInvoice(ctx context.Context, projectID snowflake.ID) (*invoicedomain.Invoice, error) {
	project, err := s.loadProject(ctx, projectID, projectdomain.InvoicingCompletion)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.FindByProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Status != taskdomain.StatusApproved {
			return nil, invoicedomain.ErrTasksIncomplete
		}
	}

	existing, err := s.repo.FindByProjectAndType(ctx, s.db, projectID, invoicedomain.TypeCompletionFinal)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// The final bill is the budget minus what actually settled. An invoice
	// still in flight would be billed twice, so it has to resolve first.
	outstanding, err := s.repo.CountUnpaidByProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if outstanding > 0 {
		return nil, invoicedomain.ErrInvoicesOutstanding
	}

	paid, err := s.repo.FindPaidByProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	amounts := make([]decimal.Decimal, 0, len(paid))
	for i := range paid {
		amounts = append(amounts, paid[i].TotalAmount)
	}

	final := pricing.FinalAmount(project.TotalBudget, amounts)
	if final.LessThanOrEqual(decimal.Zero) {
		err := s.projects.UpdateFields(ctx, s.db, project.ID, map[string]any{
			"status":       string(projectdomain.StatusCompleted),
			"paid_to_date": project.TotalBudget,
		})
		if err != nil {
			return nil, err
		}
		s.emitter.Emit(ctx, events.Event{
			Type:     events.EventProjectCompleted,
			ActorID:  project.CommissionerID.String(),
			TargetID: project.ID.String(),
		})
		return nil, invoicedomain.ErrNothingToInvoice
	}

	inv := s.newInvoice(project, nil, final, invoicedomain.TypeCompletionFinal, invoicedomain.FinalMilestoneNumber)
	if err := s.repo.Insert(ctx, s.db, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	var resp invoicedomain.ListInvoiceResponse

	limit := req.PageSize
	if limit <= 0 {
		limit = 20
	}

	var after *invoicedomain.ListCursor
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return resp, err
		}
		after, err = parseCursor(cursor)
		if err != nil {
			return resp, err
		}
	}

	items, err := s.repo.List(ctx, s.db, req, limit+1, after)
	if err != nil {
		return resp, err
	}

	data, info, err := pagination.BuildPageInfo(items, limit, func(inv *invoicedomain.Invoice) pagination.Cursor {
		return pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return resp, err
	}

	resp.Invoices = data
	resp.PageInfo = info
	return resp, nil
}

func (s *Service) GetByNumber(ctx context.Context, invoiceNumber string) (*invoicedomain.Invoice, error) {
	inv, err := s.repo.FindByNumber(ctx, s.db, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *Service) Transactions(ctx context.Context, invoiceNumber string) ([]invoicedomain.TransactionRecord, error) {
	if _, err := s.GetByNumber(ctx, invoiceNumber); err != nil {
		return nil, err
	}
	return s.txns.FindByInvoice(ctx, s.db, invoiceNumber)
}

func (s *Service) loadProject(ctx context.Context, projectID snowflake.ID, method projectdomain.InvoicingMethod) (*projectdomain.Project, error) {
	project, err := s.projects.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrProjectNotFound
	}
	if project.InvoicingMethod != method {
		return nil, invoicedomain.ErrMethodMismatch
	}
	return project, nil
}

func (s *Service) invoiceableTask(ctx context.Context, projectID, taskID snowflake.ID) (*taskdomain.Task, error) {
	task, err := s.tasks.FindByID(ctx, s.db, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, taskdomain.ErrTaskNotFound
	}
	if task.ProjectID != projectID {
		return nil, invoicedomain.ErrProjectMismatch
	}
	if task.Status != taskdomain.StatusApproved {
		return nil, invoicedomain.ErrTaskNotApproved
	}

	existing, err := s.repo.FindByTask(ctx, s.db, taskID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, invoicedomain.ErrTaskAlreadyInvoiced
	}
	return task, nil
}

func (s *Service) newInvoice(project *projectdomain.Project, taskID *snowflake.ID, amount decimal.Decimal, invoiceType invoicedomain.Type, milestoneNumber int) *invoicedomain.Invoice {
	id := s.genID.Generate()
	now := time.Now().UTC()
	return &invoicedomain.Invoice{
		ID:              id,
		InvoiceNumber:   "INV-" + id.String(),
		ProjectID:       project.ID,
		TaskID:          taskID,
		FreelancerID:    project.FreelancerID,
		CommissionerID:  project.CommissionerID,
		TotalAmount:     amount,
		Currency:        project.Currency,
		Status:          invoicedomain.StatusSent,
		Type:            invoiceType,
		MilestoneNumber: milestoneNumber,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func parseCursor(cursor *pagination.Cursor) (*invoicedomain.ListCursor, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return nil, err
	}
	return &invoicedomain.ListCursor{CreatedAt: createdAt, ID: snowflake.ID(id)}, nil
}
