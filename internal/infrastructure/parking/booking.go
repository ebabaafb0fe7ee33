package parking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
)

type bookingSearchResponse struct {
	BookingID   string `json:"booking_id"`
	PlateNumber string `json:"plate_number"`
	SpotLabel   string `json:"spot_label"`
	QRCodeData  string `json:"qr_code_data"`
	StartTime   string `json:"start_time"`
	ExpiresAt   string `json:"expires_at"`
	VehicleType struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"vehicle_type"`
}

// SearchBookingByPlate ищет активное мобильное бронирование по номеру.
// Отсутствие брони - ожидаемый исход, не авария: ErrBookingNotFound.
func (c *httpClient) SearchBookingByPlate(ctx context.Context, plate string) (*domain.Booking, error) {
	path := "/mobile/bookings/search-by-plate?plate_number=" + url.QueryEscape(strings.ToUpper(plate))

	var resp bookingSearchResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBookingNotFound, plate)
		}
		return nil, fmt.Errorf("search booking by plate: %w", err)
	}

	return &domain.Booking{
		BookingID:   resp.BookingID,
		PlateNumber: resp.PlateNumber,
		VehicleType: resp.VehicleType.Code,
		SpotLabel:   resp.SpotLabel,
		QRData:      resp.QRCodeData,
		StartTime:   parseBackendTime(resp.StartTime),
		ExpiresAt:   parseBackendTime(resp.ExpiresAt),
	}, nil
}

type qrValidateResponse struct {
	Valid       bool   `json:"valid"`
	Message     string `json:"message"`
	BookingID   string `json:"booking_id"`
	PlateNumber string `json:"plate_number"`
	SpotLabel   string `json:"spot_label"`
	VehicleType struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"vehicle_type"`
}

// ValidateBookingQR проверяет QR код бронирования.
// Повторная отправка того же кода даёт тот же результат.
func (c *httpClient) ValidateBookingQR(ctx context.Context, qrData string) (*domain.Booking, error) {
	payload := map[string]string{"qr_data": qrData}

	var resp qrValidateResponse
	if err := c.postJSON(ctx, "/mobile/validate-qr", payload, &resp); err != nil {
		return nil, fmt.Errorf("validate booking qr: %w", err)
	}
	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookingInvalid, resp.Message)
	}

	return &domain.Booking{
		BookingID:   resp.BookingID,
		PlateNumber: resp.PlateNumber,
		VehicleType: resp.VehicleType.Code,
		SpotLabel:   resp.SpotLabel,
		QRData:      qrData,
	}, nil
}

type rfidValidateResponse struct {
	RFIDNumber  string `json:"rfid_number"`
	PlateNumber string `json:"plate_number"`
	FullName    string `json:"full_name"`
	ValidTo     string `json:"valid_to"`
}

// ValidateRFID проверяет RFID метку против номера автомобиля.
// Любой отказ бэкенда сводится к ErrRFIDValidationFailed с пояснением.
func (c *httpClient) ValidateRFID(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
	payload := map[string]string{
		"rfid_number":  rfidNumber,
		"plate_number": plate,
	}

	var resp rfidValidateResponse
	if err := c.postJSON(ctx, "/admin/rfid/validate", payload, &resp); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) || errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrBackendTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRFIDValidationFailed, err)
	}

	return &domain.RFIDValidation{
		RFIDNumber:  resp.RFIDNumber,
		PlateNumber: resp.PlateNumber,
		FullName:    resp.FullName,
		ValidTo:     parseBackendTime(resp.ValidTo),
		ValidatedAt: time.Now(),
	}, nil
}
