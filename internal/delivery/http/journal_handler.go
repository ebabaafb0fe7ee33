package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/frontandrew/parklane/internal/pkg/logger"
	"github.com/frontandrew/parklane/internal/repository"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// JournalHandler отдаёт записи локального журнала для сменной отчётности
type JournalHandler struct {
	repo   repository.JournalRepository
	logger logger.Logger
}

// NewJournalHandler создает обработчик журнала; repo может быть nil,
// если журнал отключён конфигурацией
func NewJournalHandler(repo repository.JournalRepository, log logger.Logger) *JournalHandler {
	return &JournalHandler{repo: repo, logger: log}
}

// List возвращает последние записи журнала; с параметром plate -
// записи по номеру за последние сутки.
// GET /api/v1/journal?plate=CAV-8537&limit=100
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusNotImplemented, "journal is disabled")
		return
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > maxJournalLimit {
			parsed = maxJournalLimit
		}
		limit = parsed
	}

	if plate := r.URL.Query().Get("plate"); plate != "" {
		now := time.Now()
		entries, err := h.repo.ListByPlate(r.Context(), plate, now.Add(-24*time.Hour), now)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
