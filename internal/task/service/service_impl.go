package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/events"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    taskdomain.Repository
	Emitter events.Emitter
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    taskdomain.Repository
	emitter events.Emitter
}

func NewService(p Params) taskdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("task.service"),
		repo:    p.Repo,
		emitter: p.Emitter,
	}
}

func (s *Service) Submit(ctx context.Context, taskID, actorID snowflake.ID) (*taskdomain.Task, error) {
	return s.transition(ctx, taskID, events.EventTaskSubmitted, func(t taskdomain.Task) (taskdomain.Patch, error) {
		return taskdomain.Submit(t, actorID)
	}, actorID)
}

func (s *Service) Approve(ctx context.Context, taskID, actorID snowflake.ID) (*taskdomain.Task, error) {
	return s.transition(ctx, taskID, events.EventTaskApproved, func(t taskdomain.Task) (taskdomain.Patch, error) {
		return taskdomain.Approve(t, actorID)
	}, actorID)
}

func (s *Service) Reject(ctx context.Context, taskID, actorID snowflake.ID, reason string) (*taskdomain.Task, error) {
	return s.transition(ctx, taskID, events.EventTaskRejected, func(t taskdomain.Task) (taskdomain.Patch, error) {
		return taskdomain.Reject(t, actorID, reason)
	}, actorID)
}

func (s *Service) GetByID(ctx context.Context, taskID snowflake.ID) (*taskdomain.Task, error) {
	return s.repo.FindByID(ctx, s.db, taskID)
}

func (s *Service) ListByProject(ctx context.Context, projectID snowflake.ID) ([]taskdomain.Task, error) {
	return s.repo.FindByProject(ctx, s.db, projectID)
}

func (s *Service) transition(
	ctx context.Context,
	taskID snowflake.ID,
	eventType string,
	apply func(taskdomain.Task) (taskdomain.Patch, error),
	actorID snowflake.ID,
) (*taskdomain.Task, error) {

	task, err := s.repo.FindByID(ctx, s.db, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, taskdomain.ErrTaskNotFound
	}

	patch, err := apply(*task)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ApplyPatch(ctx, s.db, task.ID, patch); err != nil {
		return nil, err
	}

	updated := patch.Apply(*task)

	s.emitter.Emit(ctx, events.Event{
		Type:     eventType,
		ActorID:  actorID.String(),
		TargetID: task.ID.String(),
		Context: map[string]any{
			"project_id": task.ProjectID.String(),
			"status":     string(updated.Status),
			"version":    updated.Version,
		},
	})

	return &updated, nil
}
