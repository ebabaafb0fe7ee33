package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/frontandrew/parklane/internal/delivery/http/middleware"
	"github.com/frontandrew/parklane/internal/pkg/config"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// Router содержит все зависимости локального HTTP сервера терминала
type Router struct {
	terminalHandler *TerminalHandler
	gateHandler     *GateHandler
	journalHandler  *JournalHandler
	config          *config.Config
	logger          logger.Logger
}

// NewRouter создает новый HTTP router
func NewRouter(
	terminalHandler *TerminalHandler,
	gateHandler *GateHandler,
	journalHandler *JournalHandler,
	config *config.Config,
	logger logger.Logger,
) *Router {
	return &Router{
		terminalHandler: terminalHandler,
		gateHandler:     gateHandler,
		journalHandler:  journalHandler,
		config:          config,
		logger:          logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.config.Server.AllowedOrigin))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"direction": rt.config.Terminal.Direction,
		})
	})

	// Сервер слушает loopback рабочего места, аутентификация не нужна:
	// до него дотягивается только интерфейс оператора
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/terminal", func(r chi.Router) {
			r.Get("/status", rt.terminalHandler.Status)
			r.Post("/detection/start", rt.terminalHandler.StartDetection)
			r.Post("/detection/stop", rt.terminalHandler.StopDetection)
			r.Post("/capture", rt.terminalHandler.Capture)
			r.Put("/draft", rt.terminalHandler.UpdateDraft)
			r.Post("/submit", rt.terminalHandler.Submit)
			r.Post("/clear", rt.terminalHandler.Clear)
			r.Post("/booking-mode", rt.terminalHandler.SetBookingMode)
			r.Post("/booking/validate", rt.terminalHandler.ValidateBookingQR)

			r.Route("/exit", func(r chi.Router) {
				r.Post("/search", rt.terminalHandler.SearchExitSession)
				r.Post("/pay", rt.terminalHandler.Pay)
			})

			r.Post("/rfid/validate", rt.terminalHandler.ValidateRFID)
		})

		r.Route("/gates", func(r chi.Router) {
			r.Get("/status", rt.gateHandler.Status)
			r.Post("/{gate}/open", rt.gateHandler.Open)
			r.Post("/{gate}/close", rt.gateHandler.Close)
		})

		r.Get("/journal", rt.journalHandler.List)
	})

	return r
}
