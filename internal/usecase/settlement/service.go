package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// Service проводит расчёт и оплату выезда. Суммы всегда считает бэкенд,
// терминал их только показывает и передаёт дальше.
//
// Результат проверки RFID кешируется для точной пары (метка, номер):
// после проверки оплату можно провести без повторного похода в бэкенд,
// но правка любого из двух полей кеш сбрасывает.
type Service struct {
	client   parking.Client
	operator string
	log      logger.Logger

	mu   sync.Mutex
	rfid *domain.RFIDValidation
}

// NewService создает сервис оплаты; operator - кассир для cash/card платежей
func NewService(client parking.Client, operator string, log logger.Logger) *Service {
	return &Service{client: client, operator: operator, log: log}
}

// QuoteByPlate находит активную сессию по номеру и возвращает расчёт платы
func (s *Service) QuoteByPlate(ctx context.Context, plate string) (*domain.FeeQuote, error) {
	quote, err := s.client.CalculateFee(ctx, plate)
	if err != nil {
		return nil, err
	}
	s.log.Info("fee quoted", map[string]interface{}{
		"plate":      quote.Plate,
		"session_id": quote.SessionID,
		"fee_lkr":    quote.FeeLKR,
	})
	return quote, nil
}

// QuoteByQR разрешает QR токен квитанции въезда в номер и считает плату
func (s *Service) QuoteByQR(ctx context.Context, qrToken string) (*domain.FeeQuote, error) {
	plate, err := s.client.SessionPlateByQR(ctx, qrToken)
	if err != nil {
		return nil, err
	}
	if plate == "" {
		return nil, fmt.Errorf("%w: qr token resolved to empty plate", domain.ErrNotFound)
	}
	return s.QuoteByPlate(ctx, plate)
}

// ValidateRFID проверяет метку против номера и кеширует успешный результат
func (s *Service) ValidateRFID(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
	s.mu.Lock()
	if s.rfid.Matches(rfidNumber, plate) {
		cached := s.rfid
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	validation, err := s.client.ValidateRFID(ctx, rfidNumber, plate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rfid = validation
	s.mu.Unlock()

	s.log.Info("rfid validated", map[string]interface{}{
		"rfid":  validation.RFIDNumber,
		"plate": validation.PlateNumber,
		"owner": validation.FullName,
	})
	return validation, nil
}

// InvalidateRFID сбрасывает кешированную проверку; вызывается при любой
// правке метки или номера в форме
func (s *Service) InvalidateRFID() {
	s.mu.Lock()
	s.rfid = nil
	s.mu.Unlock()
}

// Settle проводит оплату по действующему расчёту. Для rfid требуется
// предварительная проверка метки для того же номера.
func (s *Service) Settle(ctx context.Context, quote *domain.FeeQuote, method domain.PaymentMethod, rfidTag string) (*domain.Settlement, error) {
	if quote == nil {
		return nil, domain.ErrNoFeeQuote
	}
	if !method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	if method == domain.PaymentRFID {
		s.mu.Lock()
		validated := s.rfid.Matches(rfidTag, quote.Plate)
		s.mu.Unlock()
		if !validated {
			return nil, domain.ErrRFIDNotValidated
		}
	}

	settlement, err := s.client.Pay(ctx, method, quote.SessionID, s.operator, rfidTag)
	if err != nil {
		s.log.Error("payment failed", map[string]interface{}{
			"session_id": quote.SessionID,
			"method":     string(method),
			"error":      err.Error(),
		})
		return nil, err
	}
	if settlement.FeeLKR == 0 {
		settlement.FeeLKR = quote.FeeLKR
	}

	// Проведённая оплата закрывает сессию, кешированная проверка
	// метки больше не нужна
	s.InvalidateRFID()

	s.log.Info("payment settled", map[string]interface{}{
		"session_id": settlement.SessionID,
		"method":     string(settlement.PaymentMethod),
		"fee_lkr":    settlement.FeeLKR,
	})
	return settlement, nil
}
