package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finquery/internal/core"
	"finquery/internal/ledger"
)

func tx(owner string, cents int64, category, ts string) core.Transaction {
	return core.Transaction{
		Owner:     owner,
		Amount:    core.Money{Cents: cents},
		Category:  category,
		Timestamp: ts,
	}
}

func TestAppendAssignsSequentialIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.Append(ctx, tx("alice", 1000, "food", "2024-01-01"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	id2, err := s.Append(ctx, tx("alice", 2000, "rent", "2024-01-02"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", id1, id2)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), tx("", 100, "food", "2024-01-01")); err == nil {
		t.Error("expected validation error for empty owner")
	}
}

func TestTransactionsForFiltersByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Append(ctx, tx("alice", 1000, "food", "2024-01-01"))
	s.Append(ctx, tx("bob", 500, "food", "2024-01-01"))
	s.Append(ctx, tx("alice", 2000, "rent", "2024-01-02"))

	got, err := s.TransactionsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("TransactionsFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Category != "food" || got[1].Category != "rent" {
		t.Errorf("insertion order lost: %+v", got)
	}

	empty, err := s.TransactionsFor(ctx, "nobody")
	if err != nil {
		t.Fatalf("TransactionsFor: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("want non-nil empty slice, got %#v", empty)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Append(ctx, tx("alice", 1000, "food", "2024-01-01"))

	if err := s.Delete(ctx, "bob", id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("cross-owner delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "alice", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "alice", id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestPurgeOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Append(ctx, tx("alice", 1000, "food", "2024-01-01"))
	s.Append(ctx, tx("bob", 500, "food", "2024-01-01"))
	s.Append(ctx, tx("alice", 2000, "rent", "2024-01-02"))

	if err := s.PurgeOwner(ctx, "alice"); err != nil {
		t.Fatalf("PurgeOwner: %v", err)
	}
	gone, _ := s.TransactionsFor(ctx, "alice")
	if len(gone) != 0 {
		t.Errorf("alice still has %d transactions", len(gone))
	}
	left, _ := s.TransactionsFor(ctx, "bob")
	if len(left) != 1 {
		t.Errorf("bob has %d transactions, want 1", len(left))
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.csv")
	data := "alice,10.00,food,2024-01-01\nalice,bad,food,2024-01-01\n,5.00,food,2024-01-01\nbob,-3.50,refund,2024-01-02\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFromFile(path)
	alice, _ := s.TransactionsFor(context.Background(), "alice")
	if len(alice) != 1 || alice[0].Amount.Cents != 1000 {
		t.Errorf("alice rows = %+v, want one at 1000 cents", alice)
	}
	bob, _ := s.TransactionsFor(context.Background(), "bob")
	if len(bob) != 1 || bob[0].Amount.Cents != -350 {
		t.Errorf("bob rows = %+v, want one at -350 cents", bob)
	}
}

func TestUserAccounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 1 || u.Username != "alice" {
		t.Errorf("unexpected user: %+v", u)
	}
	if _, err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, core.ErrUserExists) {
		t.Errorf("duplicate err = %v, want ErrUserExists", err)
	}

	got, err := s.UserByName(ctx, "alice")
	if err != nil || got.PasswordHash != "hash" {
		t.Errorf("UserByName = %+v, %v", got, err)
	}
	if _, err := s.UserByName(ctx, "bob"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("missing user err = %v, want ErrUserNotFound", err)
	}

	if err := s.PurgeOwner(ctx, "alice"); err != nil {
		t.Fatalf("PurgeOwner: %v", err)
	}
	if _, err := s.UserByName(ctx, "alice"); !errors.Is(err, core.ErrUserNotFound) {
		t.Error("user should be gone after purge")
	}
}

func TestNewFromFileMissing(t *testing.T) {
	s := NewFromFile(filepath.Join(t.TempDir(), "absent.csv"))
	got, err := s.TransactionsFor(context.Background(), "anyone")
	if err != nil || len(got) != 0 {
		t.Errorf("want empty store, got %v, %v", got, err)
	}
}
