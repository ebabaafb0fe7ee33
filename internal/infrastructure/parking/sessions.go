package parking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
)

// createSessionRequest - тело /entry/create-session
type createSessionRequest struct {
	Plate     string `json:"plate"`
	TypeCode  string `json:"type_code"`
	SpotLabel string `json:"spot_label"`
}

type createSessionResponse struct {
	SessionID int64  `json:"session_id"`
	Plate     string `json:"plate"`
	TypeCode  string `json:"type_code"`
	SpotLabel string `json:"spot_label"`
	EntryTime string `json:"entry_time"`
	QRToken   string `json:"qr_token"`
}

// CreateEntrySession создает сессию парковки; номер уходит в верхнем регистре
func (c *httpClient) CreateEntrySession(ctx context.Context, plate, typeCode, spotLabel string) (*domain.EntrySession, error) {
	req := createSessionRequest{
		Plate:     strings.ToUpper(plate),
		TypeCode:  typeCode,
		SpotLabel: spotLabel,
	}

	var resp createSessionResponse
	if err := c.postJSON(ctx, "/entry/create-session", req, &resp); err != nil {
		return nil, fmt.Errorf("create entry session: %w", err)
	}

	return &domain.EntrySession{
		SessionID: resp.SessionID,
		Plate:     resp.Plate,
		TypeCode:  resp.TypeCode,
		SpotLabel: resp.SpotLabel,
		EntryTime: parseBackendTime(resp.EntryTime),
		QRToken:   resp.QRToken,
	}, nil
}

// SessionPlateByQR разрешает токен выезда в номер активной сессии
func (c *httpClient) SessionPlateByQR(ctx context.Context, qrToken string) (string, error) {
	var resp struct {
		Plate string `json:"plate"`
	}
	payload := map[string]string{"qr_token": qrToken}
	if err := c.postJSON(ctx, "/exit/by-qr", payload, &resp); err != nil {
		return "", fmt.Errorf("resolve session by qr: %w", err)
	}
	return resp.Plate, nil
}

type feeResponse struct {
	SessionID int64   `json:"session_id"`
	Plate     string  `json:"plate"`
	EntryTime string  `json:"entry_time"`
	ExitTime  string  `json:"exit_time"`
	Duration  string  `json:"duration"`
	FeeLKR    float64 `json:"fee_lkr"`
}

// CalculateFee запрашивает расчёт платы по номеру активной сессии
func (c *httpClient) CalculateFee(ctx context.Context, plate string) (*domain.FeeQuote, error) {
	payload := map[string]string{"plate": strings.ToUpper(plate)}

	var resp feeResponse
	if err := c.postJSON(ctx, "/controller/exit/calculate-fee", payload, &resp); err != nil {
		return nil, fmt.Errorf("calculate fee: %w", err)
	}

	return &domain.FeeQuote{
		SessionID: resp.SessionID,
		Plate:     resp.Plate,
		EntryTime: parseBackendTime(resp.EntryTime),
		ExitTime:  parseBackendTime(resp.ExitTime),
		Duration:  resp.Duration,
		FeeLKR:    resp.FeeLKR,
	}, nil
}

type paymentResponse struct {
	SessionID     int64   `json:"session_id"`
	PaymentMethod string  `json:"payment_method"`
	FeeLKR        float64 `json:"fee_lkr"`
	Status        string  `json:"status"`
}

// Pay проводит оплату одним из трёх способов
func (c *httpClient) Pay(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error) {
	if !method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	var payload interface{}
	if method == domain.PaymentRFID {
		payload = map[string]interface{}{
			"session_id": sessionID,
			"rfid_tag":   rfidTag,
		}
	} else {
		payload = map[string]interface{}{
			"session_id": sessionID,
			"cashier":    operator,
		}
	}

	var resp paymentResponse
	if err := c.postJSON(ctx, "/payments/"+string(method), payload, &resp); err != nil {
		return nil, fmt.Errorf("pay %s: %w", method, err)
	}

	return &domain.Settlement{
		SessionID:     resp.SessionID,
		PaymentMethod: domain.PaymentMethod(resp.PaymentMethod),
		FeeLKR:        resp.FeeLKR,
		PaidAt:        time.Now(),
	}, nil
}

// parseBackendTime разбирает временные метки бэкенда (ISO 8601, UTC)
func parseBackendTime(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
