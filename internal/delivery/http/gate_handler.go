package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// GateHandler даёт оператору ручное управление шлагбаумами.
// Команды идемпотентны и проксируются бэкенду как есть.
type GateHandler struct {
	client parking.Client
	logger logger.Logger
}

// NewGateHandler создает обработчик управления шлагбаумами
func NewGateHandler(client parking.Client, log logger.Logger) *GateHandler {
	return &GateHandler{client: client, logger: log}
}

// Open открывает шлагбаум.
// POST /api/v1/gates/{gate}/open
func (h *GateHandler) Open(w http.ResponseWriter, r *http.Request) {
	gate := domain.GateID(chi.URLParam(r, "gate"))
	if !gate.Valid() {
		respondError(w, http.StatusBadRequest, "unknown gate")
		return
	}

	if err := h.client.OpenGate(r.Context(), gate); err != nil {
		respondDomainError(w, err)
		return
	}
	h.logger.Info("gate opened manually", map[string]interface{}{"gate": string(gate)})
	respondJSON(w, http.StatusOK, map[string]string{"gate": string(gate), "action": "open"})
}

// Close закрывает шлагбаум.
// POST /api/v1/gates/{gate}/close
func (h *GateHandler) Close(w http.ResponseWriter, r *http.Request) {
	gate := domain.GateID(chi.URLParam(r, "gate"))
	if !gate.Valid() {
		respondError(w, http.StatusBadRequest, "unknown gate")
		return
	}

	if err := h.client.CloseGate(r.Context(), gate); err != nil {
		respondDomainError(w, err)
		return
	}
	h.logger.Info("gate closed manually", map[string]interface{}{"gate": string(gate)})
	respondJSON(w, http.StatusOK, map[string]string{"gate": string(gate), "action": "close"})
}

// Status возвращает положение обоих шлагбаумов.
// GET /api/v1/gates/status
func (h *GateHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.GateStatus(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
