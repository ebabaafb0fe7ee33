package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// Service сверяет распознанные номера с мобильными бронированиями.
// Бронирование считается подтверждённым только после двух шагов:
// поиска по номеру и проверки его QR кода бэкендом.
type Service struct {
	client parking.Client
	log    logger.Logger
}

// NewService создает сервис сверки бронирований
func NewService(client parking.Client, log logger.Logger) *Service {
	return &Service{client: client, log: log}
}

// ResolveByPlate ищет бронирование по распознанному номеру и проверяет его.
// Номер из брони нормализуется к виду формы: "CAV 8537-A" -> "CAV-8537".
// Отсутствие брони возвращается как ErrBookingNotFound и не является аварией.
func (s *Service) ResolveByPlate(ctx context.Context, plate string) (*domain.Booking, error) {
	found, err := s.client.SearchBookingByPlate(ctx, plate)
	if err != nil {
		if !errors.Is(err, domain.ErrBookingNotFound) {
			s.log.Warn("booking search failed", map[string]interface{}{
				"plate": plate,
				"error": err.Error(),
			})
		}
		return nil, err
	}

	// Найденная бронь без QR кода бесполезна: подтвердить её нечем
	if found.QRData == "" {
		return nil, fmt.Errorf("%w: booking %s has no qr code", domain.ErrBookingInvalid, found.BookingID)
	}

	validated, err := s.client.ValidateBookingQR(ctx, found.QRData)
	if err != nil {
		s.log.Warn("booking qr validation failed", map[string]interface{}{
			"plate":      plate,
			"booking_id": found.BookingID,
			"error":      err.Error(),
		})
		return nil, err
	}

	booking := merge(found, validated)
	booking.PlateNumber = domain.NormalizePlate(booking.PlateNumber)

	s.log.Info("booking matched", map[string]interface{}{
		"plate":      booking.PlateNumber,
		"booking_id": booking.BookingID,
		"spot":       booking.SpotLabel,
	})
	return booking, nil
}

// ValidateQR проверяет QR код, предъявленный водителем оператору.
// Используется как ручной путь, когда распознавание номера не сработало.
func (s *Service) ValidateQR(ctx context.Context, qrData string) (*domain.Booking, error) {
	validated, err := s.client.ValidateBookingQR(ctx, qrData)
	if err != nil {
		return nil, err
	}
	validated.PlateNumber = domain.NormalizePlate(validated.PlateNumber)
	return validated, nil
}

// merge дополняет проверенную бронь полями из результата поиска:
// проверка QR не возвращает времена действия брони
func merge(found, validated *domain.Booking) *domain.Booking {
	out := *validated
	if out.BookingID == "" {
		out.BookingID = found.BookingID
	}
	if out.SpotLabel == "" {
		out.SpotLabel = found.SpotLabel
	}
	if out.VehicleType == "" {
		out.VehicleType = found.VehicleType
	}
	out.QRData = found.QRData
	out.StartTime = found.StartTime
	out.ExpiresAt = found.ExpiresAt
	return &out
}
