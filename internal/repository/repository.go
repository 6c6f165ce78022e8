// internal/repository/repository.go
package repository

import (
	"context"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// TransactionSource supplies cleaned transaction rows.
type TransactionSource interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// TransactionWriter appends cleaned transaction rows.
type TransactionWriter interface {
	InsertTransactions(ctx context.Context, txs []domain.Transaction) (int, error)
}
