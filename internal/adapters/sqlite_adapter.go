// Package adapters bridges concrete storage implementations to the backend
// interface the HTTP layer consumes.
package adapters

import (
	"context"

	"finquery/internal/core"
	"finquery/internal/services"
	"finquery/internal/storage"
)

// SQLiteAdapter combines the repository with the transaction service so
// writes flow through the service (and its backup publisher) while reads go
// straight to the repository.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.TransactionService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.TransactionService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// Append implements ledger.TransactionWriter via the service so a backup
// sync message is published.
func (a *SQLiteAdapter) Append(ctx context.Context, tx core.Transaction) (int64, error) {
	return a.service.Create(ctx, tx)
}

func (a *SQLiteAdapter) TransactionsFor(ctx context.Context, owner string) ([]core.Transaction, error) {
	return a.storage.TransactionsFor(ctx, owner)
}

func (a *SQLiteAdapter) Delete(ctx context.Context, owner string, id int64) error {
	return a.service.Delete(ctx, owner, id)
}

func (a *SQLiteAdapter) PurgeOwner(ctx context.Context, owner string) error {
	return a.service.PurgeOwner(ctx, owner)
}

func (a *SQLiteAdapter) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	return a.storage.CreateUser(ctx, username, passwordHash)
}

func (a *SQLiteAdapter) UserByName(ctx context.Context, username string) (core.User, error) {
	return a.storage.UserByName(ctx, username)
}
