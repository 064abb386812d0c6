package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/models"
)

// PostgresRecordStore persists transaction records in a single table keyed by
// transaction_id.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{
		db: db,
	}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*PostgresRecordStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresRecordStore(db), nil
}

// EnsureSchema creates the transactions table if it is missing.
func (p *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS transactions (
		transaction_id      TEXT PRIMARY KEY,
		source_account      TEXT NOT NULL,
		destination_account TEXT NOT NULL,
		amount              NUMERIC NOT NULL,
		currency            TEXT NOT NULL,
		status              TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		processed_at        TIMESTAMPTZ
	)`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *PostgresRecordStore) Get(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	const query = `SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at
	FROM transactions WHERE transaction_id = $1`

	var record models.TransactionRecord
	var processedAt sql.NullTime
	err := p.db.QueryRowContext(ctx, query, transactionID).Scan(
		&record.TransactionID,
		&record.SourceAccount,
		&record.DestinationAccount,
		&record.Amount,
		&record.Currency,
		&record.Status,
		&record.CreatedAt,
		&processedAt,
	)
	if err == sql.ErrNoRows {
		return models.TransactionRecord{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.TransactionRecord{}, err
	}
	if processedAt.Valid {
		record.ProcessedAt = &processedAt.Time
	}
	return record, nil
}

func (p *PostgresRecordStore) Insert(ctx context.Context, record models.TransactionRecord) error {
	const query = `INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := p.db.ExecContext(ctx, query,
		record.TransactionID,
		record.SourceAccount,
		record.DestinationAccount,
		record.Amount,
		record.Currency,
		record.Status,
		record.CreatedAt,
		record.ProcessedAt,
	)
	return err
}

func (p *PostgresRecordStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	// The status guard keeps the transition monotonic: a PROCESSED record is
	// never moved back and processed_at is written once.
	const query = `UPDATE transactions SET status = $1, processed_at = $2
	WHERE transaction_id = $3 AND status = $4`

	res, err := p.db.ExecContext(ctx, query, models.StatusProcessed, processedAt, transactionID, models.StatusProcessing)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the record is missing or it was already PROCESSED.
		const exists = `SELECT 1 FROM transactions WHERE transaction_id = $1 LIMIT 1`
		var one int
		if err := p.db.QueryRowContext(ctx, exists, transactionID).Scan(&one); err == sql.ErrNoRows {
			return interfaces.ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *PostgresRecordStore) Close() error {
	return p.db.Close()
}

// Compile-time check: ensure PostgresRecordStore implements RecordStore.
var _ interfaces.RecordStore = (*PostgresRecordStore)(nil)
