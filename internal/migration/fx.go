// Package migration applies the schema at startup. Deployments that manage
// schema externally can drop this module from the graph.
package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
)

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&projectdomain.Project{},
		&taskdomain.Task{},
		&invoicedomain.Invoice{},
		&invoicedomain.TransactionRecord{},
		&walletdomain.Wallet{},
		&walletdomain.Entry{},
	)
}

var Module = fx.Module("migration",
	fx.Invoke(autoMigrate),
)
