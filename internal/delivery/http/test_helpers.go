package http

import (
	"context"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/camera"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
	"github.com/frontandrew/parklane/internal/usecase/booking"
	"github.com/frontandrew/parklane/internal/usecase/settlement"
	"github.com/frontandrew/parklane/internal/usecase/workflow"
)

// stubParkingClient подменяет бэкенд в тестах обработчиков.
// Переопределяются только нужные методы, остальные падают на nil
type stubParkingClient struct {
	parking.Client

	capture      func(ctx context.Context, camera string, jpegFrame []byte) (*domain.Detection, error)
	calculateFee func(ctx context.Context, plate string) (*domain.FeeQuote, error)
	pay          func(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error)
	openGate     func(ctx context.Context, gate domain.GateID) error
	closeGate    func(ctx context.Context, gate domain.GateID) error
	gateStatus   func(ctx context.Context) (*domain.GateStatus, error)
	validateRFID func(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error)
	validateQR   func(ctx context.Context, qrData string) (*domain.Booking, error)
	searchByPlate func(ctx context.Context, plate string) (*domain.Booking, error)
}

func (c *stubParkingClient) Capture(ctx context.Context, cam string, frame []byte) (*domain.Detection, error) {
	return c.capture(ctx, cam, frame)
}

func (c *stubParkingClient) CalculateFee(ctx context.Context, plate string) (*domain.FeeQuote, error) {
	return c.calculateFee(ctx, plate)
}

func (c *stubParkingClient) Pay(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error) {
	return c.pay(ctx, method, sessionID, operator, rfidTag)
}

func (c *stubParkingClient) OpenGate(ctx context.Context, gate domain.GateID) error {
	return c.openGate(ctx, gate)
}

func (c *stubParkingClient) CloseGate(ctx context.Context, gate domain.GateID) error {
	return c.closeGate(ctx, gate)
}

func (c *stubParkingClient) GateStatus(ctx context.Context) (*domain.GateStatus, error) {
	return c.gateStatus(ctx)
}

func (c *stubParkingClient) ValidateRFID(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
	return c.validateRFID(ctx, rfidNumber, plate)
}

func (c *stubParkingClient) ValidateBookingQR(ctx context.Context, qrData string) (*domain.Booking, error) {
	return c.validateQR(ctx, qrData)
}

func (c *stubParkingClient) SearchBookingByPlate(ctx context.Context, plate string) (*domain.Booking, error) {
	return c.searchByPlate(ctx, plate)
}

// stubSource мгновенно готов и отдаёт крошечный кадр
type stubSource struct{}

func (stubSource) Open(ctx context.Context) error { return nil }

func (stubSource) Grab(ctx context.Context) (*camera.Frame, error) {
	return &camera.Frame{Data: []byte{0xff, 0xd8, 0xff, 0xd9}, Width: 320, Height: 240, At: time.Now()}, nil
}

func (stubSource) Size() (int, int) { return 320, 240 }
func (stubSource) Close() error     { return nil }

type stubOpener struct{}

func (stubOpener) OpenSource(ctx context.Context) (camera.Source, <-chan struct{}, error) {
	ready := make(chan struct{})
	close(ready)
	return stubSource{}, ready, nil
}

type noopReceipts struct{}

func (noopReceipts) EmitEntry(ctx context.Context, session *domain.EntrySession) error { return nil }

func (noopReceipts) EmitExit(ctx context.Context, quote *domain.FeeQuote, settlement *domain.Settlement) error {
	return nil
}

func newTestTerminal(direction domain.GateID, client parking.Client, settle *settlement.Service) *workflow.Terminal {
	log := logger.NewNoop()
	cfg := workflow.TerminalConfig{
		Direction:   direction,
		Operator:    "operator-1",
		BookingMode: false,
		Sampler: workflow.SamplerConfig{
			CameraName:     "camera1",
			Interval:       time.Hour,
			CaptureTimeout: time.Second,
			MaxWidth:       640,
			MaxHeight:      480,
			JPEGQuality:    85,
		},
		ReadyFallback:  100 * time.Millisecond,
		AutoCloseDelay: time.Hour,
		ResetDelay:     time.Hour,
		RequestTimeout: time.Second,
	}
	bookings := booking.NewService(client, log)
	return workflow.NewTerminal(cfg, client, bookings, settle, noopReceipts{}, nil, stubOpener{}, nil, log)
}
