package services

import (
	"context"
	"errors"
	"testing"

	"finquery/internal/core"
)

type fakeStore struct {
	appended []core.Transaction
	nextID   int64
	err      error
}

func (f *fakeStore) Append(_ context.Context, tx core.Transaction) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.appended = append(f.appended, tx)
	return f.nextID, nil
}

func (f *fakeStore) Delete(context.Context, string, int64) error { return f.err }
func (f *fakeStore) PurgeOwner(context.Context, string) error    { return f.err }

type fakePublisher struct {
	published []int64
	deleted   []int64
	err       error
}

func (f *fakePublisher) PublishTransactionSync(_ context.Context, id, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakePublisher) PublishTransactionDelete(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func sample() core.Transaction {
	return core.Transaction{
		Owner:     "alice",
		Amount:    core.Money{Cents: 1000},
		Category:  "food",
		Timestamp: "2024-01-01",
	}
}

func TestCreatePublishesSyncMessage(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	id, err := svc.Create(context.Background(), sample())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if len(pub.published) != 1 || pub.published[0] != id {
		t.Errorf("published = %v, want [%d]", pub.published, id)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(store, pub)

	id, err := svc.Create(context.Background(), sample())
	if err != nil {
		t.Fatalf("Create should not fail on publish error: %v", err)
	}
	if id != 1 || len(store.appended) != 1 {
		t.Errorf("store write lost: id=%d appended=%d", id, len(store.appended))
	}
}

func TestCreateWithoutPublisher(t *testing.T) {
	svc := NewTransactionService(&fakeStore{}, nil)
	if _, err := svc.Create(context.Background(), sample()); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestDeletePublishesDeleteMessage(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	if err := svc.Delete(context.Background(), "alice", 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(pub.deleted) != 1 || pub.deleted[0] != 7 {
		t.Errorf("deleted = %v, want [7]", pub.deleted)
	}
}

func TestDeleteStoreFailurePublishesNothing(t *testing.T) {
	store := &fakeStore{err: errors.New("not found")}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	if err := svc.Delete(context.Background(), "alice", 7); err == nil {
		t.Fatal("expected store error")
	}
	if len(pub.deleted) != 0 {
		t.Error("nothing should publish when the store delete fails")
	}
}

func TestCreateStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	if _, err := svc.Create(context.Background(), sample()); err == nil {
		t.Fatal("expected store error")
	}
	if len(pub.published) != 0 {
		t.Error("nothing should publish when the store write fails")
	}
}
