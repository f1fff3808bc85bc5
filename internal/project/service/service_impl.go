package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/config"
	"github.com/craftbase/paylane/internal/events"
	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     projectdomain.Repository
	Tasks    taskdomain.Repository
	Invoices invoicedomain.Service
	Emitter  events.Emitter
	Policy   *config.SettlementPolicyHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     projectdomain.Repository
	tasks    taskdomain.Repository
	invoices invoicedomain.Service
	emitter  events.Emitter
	policy   *config.SettlementPolicyHolder
}

func NewService(p Params) projectdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("project.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		tasks:    p.Tasks,
		invoices: p.Invoices,
		emitter:  p.Emitter,
		policy:   p.Policy,
	}
}

// Create activates a project with its task board. A repeat submission with the
// same commissioner and title inside the duplicate window returns the project
// already created, so a double-clicked form never opens two contracts.
func (s *Service) Create(ctx context.Context, req projectdomain.CreateProjectRequest) (*projectdomain.Project, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	window := s.policy.Get().DuplicateWindow()
	if window > 0 {
		since := time.Now().UTC().Add(-window)
		existing, err := s.repo.FindRecentDuplicate(ctx, s.db, req.CommissionerID, req.Title, since)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.Info("duplicate project creation absorbed",
				zap.String("project_id", existing.ID.String()),
				zap.String("commissioner_id", req.CommissionerID.String()),
			)
			return existing, nil
		}
	}

	now := time.Now().UTC()
	project := &projectdomain.Project{
		ID:              s.genID.Generate(),
		CommissionerID:  req.CommissionerID,
		FreelancerID:    req.FreelancerID,
		Title:           req.Title,
		Status:          projectdomain.StatusOngoing,
		InvoicingMethod: req.InvoicingMethod,
		Currency:        strings.ToUpper(req.Currency),
		TotalBudget:     req.TotalBudget,
		PaidToDate:      decimal.Zero,
		TaskCount:       len(req.Milestones),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tasks := make([]*taskdomain.Task, 0, len(req.Milestones))
	for i, spec := range req.Milestones {
		amount := decimal.Zero
		if req.InvoicingMethod == projectdomain.InvoicingMilestone {
			amount = spec.Amount
		}
		tasks = append(tasks, &taskdomain.Task{
			ID:             s.genID.Generate(),
			ProjectID:      project.ID,
			FreelancerID:   req.FreelancerID,
			CommissionerID: req.CommissionerID,
			Title:          spec.Title,
			AgreedAmount:   amount,
			Status:         taskdomain.StatusOngoing,
			OrderIndex:     i + 1,
			DueAt:          spec.DueAt,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, project); err != nil {
			return err
		}
		return s.tasks.BatchInsert(ctx, tx, tasks)
	})
	if err != nil {
		return nil, err
	}

	// Completion-method projects start with the upfront invoice already on
	// the table. Failure here is logged, not returned: the project exists
	// and the invoice can be generated again through the API.
	if req.InvoicingMethod == projectdomain.InvoicingCompletion {
		if _, err := s.invoices.CreateUpfrontInvoice(ctx, project.ID); err != nil {
			s.log.Error("upfront invoice generation failed",
				zap.String("project_id", project.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.emitter.Emit(ctx, events.Event{
		Type:     "project.created",
		ActorID:  req.CommissionerID.String(),
		TargetID: project.ID.String(),
		Context: map[string]any{
			"invoicing_method": string(req.InvoicingMethod),
			"task_count":       len(tasks),
			"total_budget":     req.TotalBudget.String(),
		},
	})

	return project, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*projectdomain.Project, error) {
	project, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrProjectNotFound
	}
	return project, nil
}

func validate(req projectdomain.CreateProjectRequest) error {
	if !req.InvoicingMethod.Valid() {
		return projectdomain.ErrInvalidInvoicingMethod
	}
	if req.CommissionerID == 0 || req.FreelancerID == 0 || req.CommissionerID == req.FreelancerID {
		return projectdomain.ErrInvalidParties
	}
	if strings.TrimSpace(req.Title) == "" {
		return projectdomain.ErrInvalidTitle
	}
	if req.TotalBudget.LessThanOrEqual(decimal.Zero) {
		return projectdomain.ErrInvalidBudget
	}
	if strings.TrimSpace(req.Currency) == "" {
		return projectdomain.ErrInvalidCurrency
	}
	if len(req.Milestones) == 0 {
		return projectdomain.ErrMissingMilestones
	}
	if req.InvoicingMethod == projectdomain.InvoicingMilestone {
		for _, spec := range req.Milestones {
			if spec.Amount.LessThanOrEqual(decimal.Zero) {
				return projectdomain.ErrInvalidBudget
			}
		}
	}
	return nil
}
