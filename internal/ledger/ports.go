package ledger

import (
	"context"
	"errors"

	"finquery/internal/core"
)

// ErrNotFound is returned by stores when a transaction id does not exist or
// belongs to a different owner.
var ErrNotFound = errors.New("transaction not found")

// Ports for ledger stores and outbound adapters.
type (
	// TransactionReader is the engine-facing read-only view over a ledger.
	// TransactionsFor returns the owner's transactions in insertion order and
	// an empty slice (never an error) when the owner has none.
	TransactionReader interface {
		TransactionsFor(ctx context.Context, owner string) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (id int64, err error)
	}

	// TransactionDeleter removes a single transaction after an ownership check.
	TransactionDeleter interface {
		Delete(ctx context.Context, owner string, id int64) error
	}

	// OwnerPurger removes an owner and every transaction they recorded.
	OwnerPurger interface {
		PurgeOwner(ctx context.Context, owner string) error
	}

	// RowAppender is implemented by backup exporters (e.g. the Google Sheets
	// client) that mirror transactions outside the primary store.
	RowAppender interface {
		AppendRow(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// RowRemover removes a mirrored row by transaction id. Removing a row
	// that was never mirrored is not an error.
	RowRemover interface {
		RemoveRow(ctx context.Context, id int64) error
	}
)
