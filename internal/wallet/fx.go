package wallet

import (
	"github.com/craftbase/paylane/internal/wallet/repository"
	"github.com/craftbase/paylane/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
