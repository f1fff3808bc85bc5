package invoice

import (
	"github.com/craftbase/paylane/internal/invoice/repository"
	"github.com/craftbase/paylane/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideTransactions),
	fx.Provide(service.NewService),
)
