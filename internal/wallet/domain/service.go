package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the wallet surface consumed by the settlement engine and the
// withdrawal API.
type Service interface {
	// Credit settles freelancer earnings into the wallet, creating it on
	// first use. Reference ties the ledger line back to its invoice and
	// makes the credit idempotent per reference.
	Credit(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, currency, reference string) (*Wallet, error)

	RequestWithdrawal(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, reference string) (*Wallet, error)
	CompleteWithdrawal(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, reference string) (*Wallet, error)

	GetByUser(ctx context.Context, userID snowflake.ID) (*Wallet, error)
	Entries(ctx context.Context, userID snowflake.ID) ([]Entry, error)
}

// Repository persists wallets and their ledger entries.
type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Wallet, error)
	Insert(ctx context.Context, db *gorm.DB, wallet *Wallet) error
	// Save writes wallet balances guarded by the version the caller read.
	// Returns false when another writer got there first.
	Save(ctx context.Context, db *gorm.DB, wallet *Wallet, expectedVersion int) (bool, error)
	InsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	FindEntries(ctx context.Context, db *gorm.DB, walletID snowflake.ID) ([]Entry, error)
	FindEntryByReference(ctx context.Context, db *gorm.DB, walletID snowflake.ID, kind EntryKind, reference string) (*Entry, error)
}
