package task

import (
	"github.com/craftbase/paylane/internal/task/repository"
	"github.com/craftbase/paylane/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
