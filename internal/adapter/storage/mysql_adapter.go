package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// Schema (reference):
//
//	CREATE TABLE inventory (
//	  item_id    BIGINT PRIMARY KEY,
//	  stock      BIGINT NOT NULL,
//	  version    BIGINT NOT NULL DEFAULT 0,
//	  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);

// errNoSuchTable is MySQL error 1146 (ER_NO_SUCH_TABLE).
const errNoSuchTable = 1146

var ErrSchemaMissing = errors.New("inventory table missing")

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) (*MySQLAdapter, error) {
	if db == nil {
		return nil, ErrNilClient
	}
	return &MySQLAdapter{db: db}, nil
}

// GetStock returns 0 for items without an inventory row.
func (m *MySQLAdapter) GetStock(ctx context.Context, itemID domain.ItemID) (int64, error) {
	var stock int64
	err := m.db.QueryRowContext(ctx, `SELECT stock FROM inventory WHERE item_id = ?`, itemID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query inventory %d: %w", itemID, classify(err))
	}
	return stock, nil
}

func (m *MySQLAdapter) UpdateStock(ctx context.Context, itemID domain.ItemID, quantity int64) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (item_id, stock, version, created_at, updated_at)
		VALUES (?, ?, 1, NOW(), NOW())
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), version = version + 1, updated_at = NOW()`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory %d: %w", itemID, classify(err))
	}
	return nil
}

func classify(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errNoSuchTable {
		return fmt.Errorf("%w: %w", ErrSchemaMissing, err)
	}
	return err
}
