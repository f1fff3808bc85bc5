package project

import (
	"github.com/craftbase/paylane/internal/project/repository"
	"github.com/craftbase/paylane/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
