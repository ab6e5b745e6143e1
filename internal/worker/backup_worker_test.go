package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"finquery/internal/amqp"
	"finquery/internal/core"
	"finquery/internal/storage"
)

type fakeBackupStore struct {
	rows     map[int64]core.Transaction
	pending  []storage.PendingBackup
	backedUp []int64
	errored  []int64
	listErr  error
}

func (f *fakeBackupStore) Transaction(_ context.Context, id int64) (core.Transaction, error) {
	tx, ok := f.rows[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("no transaction %d", id)
	}
	return tx, nil
}

func (f *fakeBackupStore) GetPendingBackups(_ context.Context, limit int) ([]storage.PendingBackup, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeBackupStore) MarkBackedUp(_ context.Context, id int64) error {
	f.backedUp = append(f.backedUp, id)
	return nil
}

func (f *fakeBackupStore) MarkBackupError(_ context.Context, id int64) error {
	f.errored = append(f.errored, id)
	return nil
}

type fakeExporter struct {
	rows []core.Transaction
	err  error
}

func (f *fakeExporter) AppendRow(_ context.Context, tx core.Transaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, tx)
	return fmt.Sprintf("Transactions!A%d:F%d", len(f.rows), len(f.rows)), nil
}

// fakeRemovableExporter also supports row removal, like the Sheets client.
type fakeRemovableExporter struct {
	fakeExporter
	removed   []int64
	removeErr error
}

func (f *fakeRemovableExporter) RemoveRow(_ context.Context, id int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

func sampleRow(id int64) core.Transaction {
	return core.Transaction{
		ID:        id,
		Owner:     "alice",
		Amount:    core.Money{Cents: 1000},
		Category:  "food",
		Timestamp: "2024-01-01",
	}
}

func TestHandleSyncMessage(t *testing.T) {
	store := &fakeBackupStore{rows: map[int64]core.Transaction{7: sampleRow(7)}}
	exporter := &fakeExporter{}
	w := NewBackupWorker(store, exporter, 10)

	msg := amqp.NewTransactionSyncMessage(7, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(exporter.rows) != 1 || exporter.rows[0].ID != 7 {
		t.Errorf("exported rows = %+v, want transaction 7", exporter.rows)
	}
	if len(store.backedUp) != 1 || store.backedUp[0] != 7 {
		t.Errorf("backedUp = %v, want [7]", store.backedUp)
	}
}

func TestHandleSyncMessageMissingTransaction(t *testing.T) {
	store := &fakeBackupStore{rows: map[int64]core.Transaction{}}
	w := NewBackupWorker(store, &fakeExporter{}, 10)

	msg := amqp.NewTransactionSyncMessage(99, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for missing transaction")
	}
	if len(store.errored) != 1 || store.errored[0] != 99 {
		t.Errorf("errored = %v, want [99]", store.errored)
	}
}

func TestHandleSyncMessageExportFailure(t *testing.T) {
	store := &fakeBackupStore{rows: map[int64]core.Transaction{7: sampleRow(7)}}
	exporter := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewBackupWorker(store, exporter, 10)

	msg := amqp.NewTransactionSyncMessage(7, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for failed export")
	}
	if len(store.errored) != 1 || len(store.backedUp) != 0 {
		t.Errorf("errored=%v backedUp=%v, want error mark only", store.errored, store.backedUp)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	store := &fakeBackupStore{rows: map[int64]core.Transaction{}}
	exporter := &fakeRemovableExporter{}
	w := NewBackupWorker(store, exporter, 10)

	msg := amqp.NewTransactionDeleteMessage(7)
	if err := w.HandleDeleteMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeleteMessage: %v", err)
	}
	if len(exporter.removed) != 1 || exporter.removed[0] != 7 {
		t.Errorf("removed = %v, want [7]", exporter.removed)
	}
}

func TestHandleDeleteMessageRemoveFailure(t *testing.T) {
	exporter := &fakeRemovableExporter{removeErr: errors.New("quota exceeded")}
	w := NewBackupWorker(&fakeBackupStore{}, exporter, 10)

	msg := amqp.NewTransactionDeleteMessage(7)
	if err := w.HandleDeleteMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error when removal fails")
	}
}

func TestHandleDeleteMessageAppendOnlyExporter(t *testing.T) {
	// An exporter without removal support keeps its history; the message
	// must still be acked.
	w := NewBackupWorker(&fakeBackupStore{}, &fakeExporter{}, 10)

	msg := amqp.NewTransactionDeleteMessage(7)
	if err := w.HandleDeleteMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeleteMessage: %v", err)
	}
}

func TestProcessPending(t *testing.T) {
	store := &fakeBackupStore{
		rows: map[int64]core.Transaction{
			1: sampleRow(1),
			2: sampleRow(2),
		},
		pending: []storage.PendingBackup{{ID: 1}, {ID: 2}},
	}
	exporter := &fakeExporter{}
	w := NewBackupWorker(store, exporter, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(exporter.rows) != 2 {
		t.Errorf("exported %d rows, want 2", len(exporter.rows))
	}
}

func TestProcessPendingContinuesAfterFailure(t *testing.T) {
	// Transaction 1 is missing from the store; 2 should still be backed up.
	store := &fakeBackupStore{
		rows:    map[int64]core.Transaction{2: sampleRow(2)},
		pending: []storage.PendingBackup{{ID: 1}, {ID: 2}},
	}
	exporter := &fakeExporter{}
	w := NewBackupWorker(store, exporter, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(exporter.rows) != 1 || exporter.rows[0].ID != 2 {
		t.Errorf("exported = %+v, want transaction 2 only", exporter.rows)
	}
	if len(store.errored) != 1 || store.errored[0] != 1 {
		t.Errorf("errored = %v, want [1]", store.errored)
	}
}

func TestStartupCheckUsesLargerBatch(t *testing.T) {
	store := &fakeBackupStore{rows: map[int64]core.Transaction{}}
	for i := int64(1); i <= 20; i++ {
		store.rows[i] = sampleRow(i)
		store.pending = append(store.pending, storage.PendingBackup{ID: i})
	}
	exporter := &fakeExporter{}
	w := NewBackupWorker(store, exporter, 3)

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	// batchSize*5 = 15 of the 20 pending rows.
	if len(exporter.rows) != 15 {
		t.Errorf("exported %d rows, want 15", len(exporter.rows))
	}
}

func TestProcessPendingListError(t *testing.T) {
	store := &fakeBackupStore{listErr: errors.New("db closed")}
	w := NewBackupWorker(store, &fakeExporter{}, 10)
	if err := w.ProcessPending(context.Background()); err == nil {
		t.Fatal("expected error when listing pending fails")
	}
}
