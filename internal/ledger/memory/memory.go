// Package memory provides an in-process ledger store. It backs tests and the
// memory data backend, and can be pre-seeded from a CSV file.
package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"finquery/internal/core"
	"finquery/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	nextID     int64
	nextUserID int64
	items      []core.Transaction
	users      map[string]core.User
}

func New() *Store {
	return &Store{nextID: 1, nextUserID: 1, users: make(map[string]core.User)}
}

// NewFromFile seeds a store from a CSV file with rows of the form
// owner,amount,category,timestamp. A missing or unreadable file yields an
// empty store.
func NewFromFile(path string) *Store {
	s := New()
	f, err := os.Open(path)
	if err != nil {
		return s
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = 4
	for {
		rec, err := r.Read()
		if err == io.EOF || err != nil {
			return s
		}
		amount, err := core.ParseDecimalToCents(strings.TrimSpace(rec[1]))
		if err != nil {
			continue
		}
		tx := core.Transaction{
			Owner:     strings.TrimSpace(rec[0]),
			Amount:    core.Money{Cents: amount},
			Category:  strings.TrimSpace(rec[2]),
			Timestamp: strings.TrimSpace(rec[3]),
		}
		if tx.Validate() != nil {
			continue
		}
		s.Append(context.Background(), tx)
	}
}

func (s *Store) Append(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextID
	s.nextID++
	s.items = append(s.items, tx)
	return tx.ID, nil
}

// TransactionsFor returns the owner's transactions in insertion order.
func (s *Store) TransactionsFor(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range s.items {
		if tx.Owner == owner {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id && tx.Owner == owner {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %d for %q: %w", id, owner, ledger.ErrNotFound)
}

func (s *Store) PurgeOwner(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, tx := range s.items {
		if tx.Owner != owner {
			kept = append(kept, tx)
		}
	}
	s.items = kept
	delete(s.users, owner)
	return nil
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return core.User{}, core.ErrUserExists
	}
	u := core.User{ID: s.nextUserID, Username: username, PasswordHash: passwordHash}
	s.nextUserID++
	s.users[username] = u
	return u, nil
}

func (s *Store) UserByName(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}
