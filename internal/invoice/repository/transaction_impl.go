package repository

import (
	"context"
	"time"

	"github.com/craftbase/paylane/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txnRepo struct{}

func ProvideTransactions() domain.TransactionRepository {
	return &txnRepo{}
}

// Upsert inserts the record if its transaction id is unused and reports
// whether a row was written. The id is derived from the invoice number, so a
// second settlement attempt lands on the existing row and returns false.
func (r *txnRepo) Upsert(ctx context.Context, db *gorm.DB, record *domain.TransactionRecord) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *txnRepo) UpdateStatus(ctx context.Context, db *gorm.DB, transactionID string, status domain.Status, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transaction_records SET status = ?, updated_at = ? WHERE transaction_id = ?`,
		string(status),
		at,
		transactionID,
	).Error
}

func (r *txnRepo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceNumber string) ([]domain.TransactionRecord, error) {
	var items []domain.TransactionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transaction_records WHERE invoice_number = ? ORDER BY created_at ASC`,
		invoiceNumber,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
