package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// SQLiteStore implements Journal using SQLite. Decimal columns are stored
// as TEXT to keep exact values.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Latest state of every order
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		stop_price TEXT NOT NULL,
		status TEXT NOT NULL,
		filled_quantity TEXT NOT NULL,
		avg_fill_price TEXT NOT NULL,
		fee TEXT NOT NULL,
		reserved TEXT NOT NULL,
		reject_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Executed fills, append only
	CREATE TABLE IF NOT EXISTS fills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		fee TEXT NOT NULL,
		executed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_fills_account ON fills(account_id, executed_at);
	CREATE INDEX IF NOT EXISTS idx_fills_order ON fills(order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveOrder inserts or replaces the stored state of an order.
func (s *SQLiteStore) SaveOrder(ctx context.Context, o *models.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders (id, account_id, symbol, type, side, quantity, price, stop_price, status, filled_quantity, avg_fill_price, fee, reserved, reject_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.AccountID, o.Symbol, string(o.Type), string(o.Side), o.Quantity, o.Price, o.StopPrice, string(o.Status),
		o.FilledQuantity, o.AvgFillPrice, o.Fee, o.Reserved, o.RejectReason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "save order %s: %v", o.ID, err)
	}
	return nil
}

// SaveFill appends a fill.
func (s *SQLiteStore) SaveFill(ctx context.Context, f *models.Fill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (order_id, account_id, symbol, side, quantity, price, fee, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, f.OrderID, f.AccountID, f.Symbol, string(f.Side), f.Quantity, f.Price, f.Fee, f.ExecutedAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "save fill for %s: %v", f.OrderID, err)
	}
	return nil
}

// GetOrders returns stored orders oldest first.
func (s *SQLiteStore) GetOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := "SELECT id, account_id, symbol, type, side, quantity, price, stop_price, status, filled_quantity, avg_fill_price, fee, reserved, reject_reason, created_at, updated_at FROM orders WHERE 1=1"
	args := []interface{}{}

	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	query += " ORDER BY created_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var reason sql.NullString
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Symbol, &o.Type, &o.Side, &o.Quantity, &o.Price, &o.StopPrice, &o.Status,
			&o.FilledQuantity, &o.AvgFillPrice, &o.Fee, &o.Reserved, &reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.RejectReason = reason.String
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// GetFills returns stored fills in execution order.
func (s *SQLiteStore) GetFills(ctx context.Context, filter FillFilter) ([]models.Fill, error) {
	query := "SELECT order_id, account_id, symbol, side, quantity, price, fee, executed_at FROM fills WHERE 1=1"
	args := []interface{}{}

	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.OrderID != "" {
		query += " AND order_id = ?"
		args = append(args, filter.OrderID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}

	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []models.Fill
	for rows.Next() {
		var f models.Fill
		if err := rows.Scan(&f.OrderID, &f.AccountID, &f.Symbol, &f.Side, &f.Quantity, &f.Price, &f.Fee, &f.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		fills = append(fills, f)
	}

	return fills, rows.Err()
}
