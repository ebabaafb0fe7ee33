package postgres

import (
	"context"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type journalRepository struct {
	db *pgxpool.Pool
}

func NewJournalRepository(db *pgxpool.Pool) repository.JournalRepository {
	return &journalRepository{db: db}
}

// EnsureSchema создает таблицу журнала, если её ещё нет.
// Локальная таблица терминала, бэкенда не касается.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS terminal_journal (
			id UUID PRIMARY KEY,
			capture_session_id UUID NOT NULL,
			gate TEXT NOT NULL,
			event_type TEXT NOT NULL,
			plate TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_terminal_journal_timestamp ON terminal_journal (timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_terminal_journal_plate ON terminal_journal (plate);
	`
	_, err := db.Exec(ctx, query)
	return err
}

func (r *journalRepository) Append(ctx context.Context, entry *domain.JournalEntry) error {
	query := `
		INSERT INTO terminal_journal (id, capture_session_id, gate, event_type, plate, detail, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.Gate,
		entry.EventType,
		entry.Plate,
		entry.Detail,
		entry.Timestamp,
	)

	return err
}

func (r *journalRepository) ListRecent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	query := `
		SELECT id, capture_session_id, gate, event_type, plate, detail, timestamp
		FROM terminal_journal
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *journalRepository) ListByPlate(ctx context.Context, plate string, from, to time.Time) ([]*domain.JournalEntry, error) {
	query := `
		SELECT id, capture_session_id, gate, event_type, plate, detail, timestamp
		FROM terminal_journal
		WHERE plate = $1 AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp DESC
	`

	rows, err := r.db.Query(ctx, query, plate, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.JournalEntry, error) {
	var entries []*domain.JournalEntry
	for rows.Next() {
		entry := &domain.JournalEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.Gate,
			&entry.EventType,
			&entry.Plate,
			&entry.Detail,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
