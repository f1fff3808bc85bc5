package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbase/paylane/internal/wallet/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Wallet, error) {
	var item domain.Wallet
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM wallets WHERE user_id = ? LIMIT 1`,
		userID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, wallet *domain.Wallet) error {
	return db.WithContext(ctx).Create(wallet).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, wallet *domain.Wallet, expectedVersion int) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET currency = ?, balance = ?, pending_withdrawal = ?, total_withdrawn = ?, lifetime_earnings = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		wallet.Currency,
		wallet.Balance,
		wallet.PendingWithdrawal,
		wallet.TotalWithdrawn,
		wallet.LifetimeEarnings,
		wallet.Version,
		wallet.UpdatedAt,
		wallet.ID,
		expectedVersion,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.Entry) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEntries(ctx context.Context, db *gorm.DB, walletID snowflake.ID) ([]domain.Entry, error) {
	var items []domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM wallet_entries WHERE wallet_id = ? ORDER BY created_at DESC, id DESC`,
		walletID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindEntryByReference(ctx context.Context, db *gorm.DB, walletID snowflake.ID, kind domain.EntryKind, reference string) (*domain.Entry, error) {
	var item domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM wallet_entries
		 WHERE wallet_id = ? AND kind = ? AND reference = ?
		 LIMIT 1`,
		walletID,
		string(kind),
		reference,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
