// Package domain contains the freelancer wallet ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Wallet is the running balance of one freelancer in one currency.
// Invariants: Balance >= 0 and PendingWithdrawal >= 0 at all times; money
// moves between the two fields only through the ledger functions in this
// package.
type Wallet struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID            snowflake.ID    `gorm:"not null;uniqueIndex:ux_wallets_user" json:"userId"`
	UserType          string          `gorm:"type:text;not null;default:freelancer" json:"userType"`
	Currency          string          `gorm:"type:text;not null" json:"currency"`
	Balance           decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	PendingWithdrawal decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"pendingWithdrawal"`
	TotalWithdrawn    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"totalWithdrawn"`
	LifetimeEarnings  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"lifetimeEarnings"`
	Version           int             `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updatedAt"`
}

// UserTypeFreelancer is the only holder type minted today. Commissioner
// wallets would reuse the same ledger with a different type.
const UserTypeFreelancer = "freelancer"

// TableName sets the database table name.
func (Wallet) TableName() string { return "wallets" }

// Entry is one append-only ledger line explaining a wallet mutation.
type Entry struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	WalletID  snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_wallet_entries_ref" json:"walletId"`
	Kind      EntryKind       `gorm:"type:text;not null;uniqueIndex:ux_wallet_entries_ref" json:"kind"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Reference string          `gorm:"type:text;not null;uniqueIndex:ux_wallet_entries_ref" json:"reference"`
	CreatedAt time.Time       `gorm:"not null" json:"createdAt"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "wallet_entries" }

// EntryKind classifies ledger lines.
type EntryKind string

const (
	EntryCredit             EntryKind = "credit"
	EntryWithdrawalHold     EntryKind = "withdrawal_hold"
	EntryWithdrawalComplete EntryKind = "withdrawal_complete"
)
