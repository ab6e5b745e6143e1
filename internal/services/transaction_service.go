// Package services orchestrates writes across the primary store and the
// backup queue.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"finquery/internal/core"
)

// TransactionStore is the slice of the repository the service writes
// through.
type TransactionStore interface {
	Append(ctx context.Context, tx core.Transaction) (int64, error)
	Delete(ctx context.Context, owner string, id int64) error
	PurgeOwner(ctx context.Context, owner string) error
}

// SyncPublisher enqueues backup notifications. The AMQP client implements
// it; a nil publisher disables the queue and leaves backups to the worker's
// periodic catch-up.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

// TransactionService saves transactions to the primary store and
// best-effort notifies the backup worker. The store write is authoritative;
// a failed publish never fails the request.
type TransactionService struct {
	store     TransactionStore
	publisher SyncPublisher
}

func NewTransactionService(store TransactionStore, publisher SyncPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (int64, error) {
	id, err := s.store.Append(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "Backup publisher not configured, skipping sync message", "id", id)
		return id, nil
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
	return id, nil
}

func (s *TransactionService) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "Backup publisher not configured, skipping delete message", "id", id)
		return nil
	}
	if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return nil
}

// PurgeOwner removes an account's transactions when the account itself is
// deleted.
func (s *TransactionService) PurgeOwner(ctx context.Context, owner string) error {
	return s.store.PurgeOwner(ctx, owner)
}
