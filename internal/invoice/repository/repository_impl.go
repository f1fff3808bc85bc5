package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbase/paylane/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE invoice_number = ? LIMIT 1`,
		invoiceNumber,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE project_id = ? ORDER BY created_at ASC, id ASC`,
		projectID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindPaidByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE project_id = ? AND status = ? ORDER BY created_at ASC, id ASC`,
		projectID,
		string(domain.StatusPaid),
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByProjectAndType(ctx context.Context, db *gorm.DB, projectID snowflake.ID, invoiceType domain.Type) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE project_id = ? AND type = ? LIMIT 1`,
		projectID,
		string(invoiceType),
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByTask(ctx context.Context, db *gorm.DB, taskID snowflake.ID) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE task_id = ? LIMIT 1`,
		taskID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) MarkProcessing(ctx context.Context, db *gorm.DB, invoiceNumber string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, updated_at = ?
		 WHERE invoice_number = ? AND status = ?`,
		string(domain.StatusProcessing),
		time.Now().UTC(),
		invoiceNumber,
		string(domain.StatusSent),
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, invoiceNumber string, details domain.PaymentDetails) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_at = ?, processor_transaction_id = ?, provider = ?,
		     platform_fee = ?, net_amount = ?, updated_at = ?
		 WHERE invoice_number = ?`,
		string(domain.StatusPaid),
		details.PaidAt,
		details.ProcessorTransactionID,
		details.Provider,
		details.PlatformFee,
		details.NetAmount,
		details.PaidAt,
		invoiceNumber,
	).Error
}

func (r *repo) CountUnpaidByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE project_id = ? AND status <> ?`,
		projectID,
		string(domain.StatusPaid),
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListInvoiceRequest, limit int, after *domain.ListCursor) ([]*domain.Invoice, error) {
	query := db.WithContext(ctx).Model(&domain.Invoice{})
	if req.ProjectID != nil {
		query = query.Where("project_id = ?", *req.ProjectID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", string(req.Status))
	}
	if after != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID,
		)
	}

	var items []*domain.Invoice
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
