package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

const insertBatchSize = 1000

// TransactionRepository stores cleaned transactions.
type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListTransactions returns every stored transaction ordered by product and time.
func (r *TransactionRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `
		SELECT invoice_date, product_key, quantity, unit_price
		FROM transactions
		ORDER BY product_key, invoice_date, id
	`
	var txs []domain.Transaction
	if err := r.db.SelectContext(ctx, &txs, query); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// ListDaily aggregates transactions per (day, product) in the database.
func (r *TransactionRepository) ListDaily(ctx context.Context) ([]domain.DailyEntry, error) {
	query := `
		SELECT date_trunc('day', invoice_date) AS date,
		       product_key,
		       SUM(quantity)::INTEGER AS quantity,
		       AVG(unit_price) AS unit_price
		FROM transactions
		WHERE quantity > 0 AND unit_price > 0 AND product_key <> ''
		GROUP BY 1, 2
		ORDER BY 2, 1
	`
	var daily []domain.DailyEntry
	if err := r.db.SelectContext(ctx, &daily, query); err != nil {
		return nil, fmt.Errorf("failed to aggregate daily sales: %w", err)
	}
	return daily, nil
}

// InsertTransactions appends txs in batches inside one transaction.
func (r *TransactionRepository) InsertTransactions(ctx context.Context, txs []domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(txs); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(txs) {
				end = len(txs)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO transactions (invoice_date, product_key, quantity, unit_price)
				VALUES (:invoice_date, :product_key, :quantity, :unit_price)
			`, txs[start:end]); err != nil {
				return fmt.Errorf("failed to insert transactions %d-%d: %w", start, end, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(txs), nil
}

// Truncate removes every stored transaction.
func (r *TransactionRepository) Truncate(ctx context.Context) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE transactions`); err != nil {
			return fmt.Errorf("failed to truncate transactions: %w", err)
		}
		return nil
	})
}
