package receipt

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // Register the postgres driver
)

const createReceiptsTable = `
CREATE TABLE IF NOT EXISTS receipts (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresDB implements the DB interface using PostgreSQL, storing each
// receipt as a JSONB document
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB connects to PostgreSQL and creates the receipts table
func NewPostgresDB(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.Exec(createReceiptsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating receipts table: %w", err)
	}
	return &PostgresDB{db: db}, nil
}

// SaveReceipt inserts or replaces a receipt
func (p *PostgresDB) SaveReceipt(receipt *Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	_, err = p.db.Exec(
		`INSERT INTO receipts (id, data, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		receipt.ID, data, receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID
func (p *PostgresDB) GetReceipt(id string) (*Receipt, error) {
	var data []byte
	err := p.db.QueryRow(`SELECT data FROM receipts WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying receipt: %w", err)
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}
	return &receipt, nil
}

// ListReceipts returns all receipts, oldest first
func (p *PostgresDB) ListReceipts() ([]*Receipt, error) {
	rows, err := p.db.Query(`SELECT data FROM receipts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*Receipt, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning receipt row: %w", err)
		}
		var receipt Receipt
		if err := json.Unmarshal(data, &receipt); err != nil {
			return nil, fmt.Errorf("unmarshaling receipt: %w", err)
		}
		receipts = append(receipts, &receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt
func (p *PostgresDB) DeleteReceipt(id string) error {
	if _, err := p.db.Exec(`DELETE FROM receipts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}
