package repository

import (
	"context"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
)

// JournalRepository определяет методы локального журнала терминала.
// Журнал - сменная отчётность оператора; запись best-effort и никогда
// не блокирует рабочий процесс.
type JournalRepository interface {
	// Append добавляет запись журнала
	Append(ctx context.Context, entry *domain.JournalEntry) error

	// ListRecent возвращает последние записи журнала
	ListRecent(ctx context.Context, limit int) ([]*domain.JournalEntry, error)

	// ListByPlate возвращает записи по номеру автомобиля за период
	ListByPlate(ctx context.Context, plate string, from, to time.Time) ([]*domain.JournalEntry, error)
}
