package http

import (
	"net/http"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/pkg/logger"
	"github.com/frontandrew/parklane/internal/usecase/booking"
	"github.com/frontandrew/parklane/internal/usecase/settlement"
	"github.com/frontandrew/parklane/internal/usecase/workflow"
)

// TerminalHandler обрабатывает команды интерфейса оператора
type TerminalHandler struct {
	terminal   *workflow.Terminal
	bookings   *booking.Service
	settlement *settlement.Service
	logger     logger.Logger
}

// NewTerminalHandler создает обработчик команд терминала
func NewTerminalHandler(
	terminal *workflow.Terminal,
	bookings *booking.Service,
	settle *settlement.Service,
	log logger.Logger,
) *TerminalHandler {
	return &TerminalHandler{
		terminal:   terminal,
		bookings:   bookings,
		settlement: settle,
		logger:     log,
	}
}

// Status возвращает снимок состояния рабочего процесса.
// GET /api/v1/terminal/status
func (h *TerminalHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.terminal.Status())
}

// StartDetection запускает сессию захвата.
// POST /api/v1/terminal/detection/start
func (h *TerminalHandler) StartDetection(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.StartDetection(); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.terminal.Status())
}

// StopDetection останавливает сессию захвата.
// POST /api/v1/terminal/detection/stop
func (h *TerminalHandler) StopDetection(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.StopDetection(); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.terminal.Status())
}

// Capture выполняет немедленный захват кадра по кнопке оператора.
// POST /api/v1/terminal/capture
func (h *TerminalHandler) Capture(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.CaptureNow(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.terminal.Status())
}

type draftRequest struct {
	Plate     string `json:"plate"`
	TypeCode  string `json:"type_code"`
	SpotLabel string `json:"spot_label"`
}

// UpdateDraft применяет правки оператора к черновику формы.
// PUT /api/v1/terminal/draft
func (h *TerminalHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeBody(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.terminal.EditDraft(req.Plate, req.TypeCode, req.SpotLabel); err != nil {
		respondDomainError(w, err)
		return
	}
	// Правка полей обесценивает проведённую проверку RFID метки
	h.settlement.InvalidateRFID()
	respondJSON(w, http.StatusOK, h.terminal.Status())
}

// Submit отправляет черновик на создание сессии въезда.
// POST /api/v1/terminal/submit
func (h *TerminalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.Submit(); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.terminal.Status())
}

// Clear очищает форму и возобновляет сканирование.
// POST /api/v1/terminal/clear
func (h *TerminalHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.Clear(); err != nil {
		respondDomainError(w, err)
		return
	}
	h.settlement.InvalidateRFID()
	respondJSON(w, http.StatusOK, h.terminal.Status())
}

type bookingModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetBookingMode переключает режим мобильных бронирований.
// POST /api/v1/terminal/booking-mode
func (h *TerminalHandler) SetBookingMode(w http.ResponseWriter, r *http.Request) {
	var req bookingModeRequest
	if err := decodeBody(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.terminal.SetBookingMode(req.Enabled); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.terminal.Status())
}

type validateQRRequest struct {
	QRData string `json:"qr_data"`
}

// ValidateBookingQR проверяет QR код брони, предъявленный водителем,
// и подставляет подтверждённую бронь в форму.
// POST /api/v1/terminal/booking/validate
func (h *TerminalHandler) ValidateBookingQR(w http.ResponseWriter, r *http.Request) {
	var req validateQRRequest
	if err := decodeBody(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}
	if req.QRData == "" {
		respondError(w, http.StatusBadRequest, "qr_data is required")
		return
	}

	bk, err := h.bookings.ValidateQR(r.Context(), req.QRData)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.terminal.ApplyBooking(bk); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"booking": bk,
		"status":  h.terminal.Status(),
	})
}

type exitSearchRequest struct {
	Plate   string `json:"plate"`
	QRToken string `json:"qr_token"`
}

// SearchExitSession находит активную сессию по номеру или QR токену
// квитанции и подставляет расчёт платы в форму.
// POST /api/v1/terminal/exit/search
func (h *TerminalHandler) SearchExitSession(w http.ResponseWriter, r *http.Request) {
	var req exitSearchRequest
	if err := decodeBody(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	var (
		quote *domain.FeeQuote
		err   error
	)
	switch {
	case req.QRToken != "":
		quote, err = h.settlement.QuoteByQR(r.Context(), req.QRToken)
	case req.Plate != "":
		quote, err = h.settlement.QuoteByPlate(r.Context(), req.Plate)
	default:
		respondError(w, http.StatusBadRequest, "plate or qr_token is required")
		return
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.terminal.SetQuote(quote); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

type rfidValidateRequest struct {
	RFIDNumber  string `json:"rfid_number"`
	PlateNumber string `json:"plate_number"`
}

// ValidateRFID проверяет метку против номера перед оплатой.
// POST /api/v1/terminal/rfid/validate
func (h *TerminalHandler) ValidateRFID(w http.ResponseWriter, r *http.Request) {
	var req rfidValidateRequest
	if err := decodeBody(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}
	if req.RFIDNumber == "" || req.PlateNumber == "" {
		respondError(w, http.StatusBadRequest, "rfid_number and plate_number are required")
		return
	}

	validation, err := h.settlement.ValidateRFID(r.Context(), req.RFIDNumber, req.PlateNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, validation)
}

type payRequest struct {
	Method  domain.PaymentMethod `json:"method"`
	RFIDTag string               `json:"rfid_tag"`
}

// Pay проводит оплату выезда по действующему расчёту.
// POST /api/v1/terminal/exit/pay
func (h *TerminalHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeBody(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	quote := h.terminal.CurrentQuote()
	if quote == nil {
		respondDomainError(w, domain.ErrNoFeeQuote)
		return
	}

	stl, err := h.settlement.Settle(r.Context(), quote, req.Method, req.RFIDTag)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.terminal.Settle(quote, stl); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"settlement": stl,
		"status":     h.terminal.Status(),
	})
}
