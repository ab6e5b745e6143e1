// Package worker mirrors transactions from SQLite to the backup exporter.
// It consumes AMQP sync messages for low latency and periodically sweeps the
// pending queue to recover from lost messages or downtime.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finquery/internal/amqp"
	"finquery/internal/core"
	"finquery/internal/ledger"
	applog "finquery/internal/log"
	"finquery/internal/storage"
)

// BackupStore is the slice of the repository the worker needs.
type BackupStore interface {
	Transaction(ctx context.Context, id int64) (core.Transaction, error)
	GetPendingBackups(ctx context.Context, limit int) ([]storage.PendingBackup, error)
	MarkBackedUp(ctx context.Context, id int64) error
	MarkBackupError(ctx context.Context, id int64) error
}

type BackupWorker struct {
	store     BackupStore
	exporter  ledger.RowAppender
	batchSize int
}

func NewBackupWorker(store BackupStore, exporter ledger.RowAppender, batchSize int) *BackupWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &BackupWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleDeleteMessage removes the mirrored row for a deleted transaction.
// Exporters that cannot remove rows keep their full history; the message is
// acked either way.
func (w *BackupWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	remover, ok := w.exporter.(ledger.RowRemover)
	if !ok {
		slog.WarnContext(ctx, "Exporter cannot remove rows, keeping mirrored row", "id", msg.ID)
		return nil
	}

	if err := remover.RemoveRow(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove mirrored row %d: %w", msg.ID, err)
	}
	return nil
}

// HandleSyncMessage processes one queued sync message. A returned error
// makes the AMQP client nack and requeue the delivery.
func (w *BackupWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	if err := w.backupTransaction(ctx, msg.ID); err != nil {
		return fmt.Errorf("backup transaction %d: %w", msg.ID, err)
	}
	return nil
}

// ProcessPending sweeps transactions still marked pending. This is the
// recovery path for lost AMQP messages.
func (w *BackupWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingBackups(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending backups: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending backups", "count", len(pending))
	for _, p := range pending {
		if err := w.backupTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to back up transaction", "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupCheck drains the pending queue once at worker start, with a larger
// batch, to recover from downtime.
func (w *BackupWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingBackups(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending backups for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending backups found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending backups on startup", "count", len(pending))
	synced := 0
	failed := 0
	for _, p := range pending {
		if err := w.backupTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to back up transaction during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup backup check completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

// RunPeriodic sweeps the pending queue on a fixed interval until ctx is
// cancelled.
func (w *BackupWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending backup sweep failed", "error", err)
			}
		}
	}
}

func (w *BackupWorker) backupTransaction(ctx context.Context, id int64) error {
	tx, err := w.store.Transaction(ctx, id)
	if err != nil {
		if markErr := w.store.MarkBackupError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark backup error", "id", id, "error", markErr)
		}
		return fmt.Errorf("load transaction: %w", err)
	}

	ref, err := w.exporter.AppendRow(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkBackupError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark backup error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append row: %w", err)
	}

	// The export succeeded even if the status update fails, so the worst
	// case is a duplicate backup row on the next sweep.
	if err := w.store.MarkBackedUp(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as backed up", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction backed up",
		"id", id,
		applog.FieldOperation, applog.OpBackup,
		applog.FieldRowRef, ref,
		applog.FieldOwner, tx.Owner,
		applog.FieldAmountCents, tx.Amount.Cents)
	return nil
}
