package core

import (
	"errors"
	"strings"
)

type (
	Money struct {
		Cents int64
	}

	// Transaction is a single recorded ledger entry. Immutable once stored;
	// the query engine only ever reads it.
	Transaction struct {
		ID        int64
		Owner     string
		Amount    Money
		Category  string
		Timestamp string // free-form, ideally ISO-8601; never parsed for ordering
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyOwner    = errors.New("empty owner")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyTime     = errors.New("empty timestamp")
)

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Category) > 100 {
		return errors.New("category too long (max 100 characters)")
	}
	if strings.TrimSpace(t.Timestamp) == "" {
		return ErrEmptyTime
	}
	return nil
}
