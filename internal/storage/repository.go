// Package storage is the SQLite persistence layer for users, transactions,
// and the backup queue consumed by the worker.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finquery/internal/core"
	"finquery/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser stores a new account. A username collision maps to
// core.ErrUserExists.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, core.ErrUserExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "username", username)
	return core.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (r *SQLiteRepository) UserByName(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

// Append implements ledger.TransactionWriter. The row starts in sync_status
// 'pending' so the backup worker will pick it up.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (owner, amount_cents, category, timestamp) VALUES (?, ?, ?, ?)`,
		tx.Owner, tx.Amount.Cents, tx.Category, tx.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"owner", tx.Owner,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)
	return id, nil
}

// TransactionsFor implements ledger.TransactionReader; rows come back in
// insertion order.
func (r *SQLiteRepository) TransactionsFor(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, amount_cents, category, timestamp FROM transactions WHERE owner = ? ORDER BY id`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %q: %w", owner, err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.ID, &tx.Owner, &tx.Amount.Cents, &tx.Category, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	var tx core.Transaction
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner, amount_cents, category, timestamp FROM transactions WHERE id = ?`,
		id).Scan(&tx.ID, &tx.Owner, &tx.Amount.Cents, &tx.Category, &tx.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// Delete implements ledger.TransactionDeleter. The owner check is part of
// the statement so a cross-owner id behaves like a missing one.
func (r *SQLiteRepository) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %d for %q: %w", id, owner, ledger.ErrNotFound)
	}
	return nil
}

// PurgeOwner removes the account and all its transactions.
func (r *SQLiteRepository) PurgeOwner(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("purge transactions for %q: %w", owner, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, owner); err != nil {
		return fmt.Errorf("purge user %q: %w", owner, err)
	}
	slog.InfoContext(ctx, "Owner purged", "owner", owner)
	return nil
}

// PendingBackup is the minimal row shape queued for the backup worker.
type PendingBackup struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingBackups returns transactions not yet mirrored to the backup
// exporter, oldest first.
func (r *SQLiteRepository) GetPendingBackups(ctx context.Context, limit int) ([]PendingBackup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM transactions WHERE sync_status = 'pending' ORDER BY id LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("get pending backups: %w", err)
	}
	defer rows.Close()

	out := []PendingBackup{}
	for rows.Next() {
		var p PendingBackup
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending backup: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending backups: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkBackedUp(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction backed up: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as backed up", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkBackupError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error', version = version + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction backup error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with backup error", "id", id)
	return nil
}
