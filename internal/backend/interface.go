// Package backend selects and wires the data store the server runs on.
package backend

import (
	"context"

	"finquery/internal/core"
	"finquery/internal/ledger"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	UserByName(ctx context.Context, username string) (core.User, error)
}

// Backend is everything the HTTP layer needs from a data store.
type Backend interface {
	UserStore
	ledger.TransactionReader
	ledger.TransactionWriter
	ledger.TransactionDeleter
	ledger.OwnerPurger
}

type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific
	SeedPath string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
