package parking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/pkg/credential"
)

// Client - интерфейс парковочного бэкенда.
// Все вызовы несут bearer credential; 401/403 превращаются в
// domain.ErrUnauthorized/ErrTokenExpired и означают "на логин, без повторов".
type Client interface {
	// Capture отправляет кадр на распознавание (camera1 - въезд, camera2 - выезд)
	Capture(ctx context.Context, camera string, jpegFrame []byte) (*domain.Detection, error)

	// CreateEntrySession создает сессию парковки при въезде
	CreateEntrySession(ctx context.Context, plate, typeCode, spotLabel string) (*domain.EntrySession, error)

	// SessionPlateByQR разрешает токен выезда в номер автомобиля
	SessionPlateByQR(ctx context.Context, qrToken string) (string, error)

	// CalculateFee запрашивает расчёт платы по номеру; клиент сам суммы не считает
	CalculateFee(ctx context.Context, plate string) (*domain.FeeQuote, error)

	// Pay проводит оплату сессии; operator - кассир для cash/card, rfidTag - для rfid
	Pay(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error)

	// OpenGate / CloseGate - идемпотентные команды актуатору шлагбаума
	OpenGate(ctx context.Context, gate domain.GateID) error
	CloseGate(ctx context.Context, gate domain.GateID) error

	// GateStatus возвращает фактическое состояние шлагбаумов
	GateStatus(ctx context.Context) (*domain.GateStatus, error)

	// CameraSettings возвращает адреса камер, заданные администратором
	CameraSettings(ctx context.Context) (*CameraSettings, error)

	// SearchBookingByPlate ищет активное мобильное бронирование по номеру
	SearchBookingByPlate(ctx context.Context, plate string) (*domain.Booking, error)

	// ValidateBookingQR проверяет QR код бронирования; идемпотентна
	ValidateBookingQR(ctx context.Context, qrData string) (*domain.Booking, error)

	// ValidateRFID проверяет RFID метку против номера автомобиля
	ValidateRFID(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error)
}

// CameraSettings - адреса камер из настроек бэкенда
type CameraSettings struct {
	EntryDevice string `json:"camera1_device"`
	ExitDevice  string `json:"camera2_device"`
}

// httpClient - HTTP реализация клиента бэкенда
type httpClient struct {
	baseURL    string
	cred       *credential.Credential
	httpClient *http.Client
}

// NewHTTPClient создает новый HTTP клиент парковочного бэкенда.
// Таймаут на запрос задаётся контекстом вызывающей стороны, поэтому
// собственный Timeout у http.Client не выставляется.
func NewHTTPClient(baseURL string, cred *credential.Credential) Client {
	return &httpClient{
		baseURL: baseURL,
		cred:    cred,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// do выполняет запрос с bearer токеном и декодирует успешный ответ в out
func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	if err := c.cred.Check(time.Now()); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cred.Token())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s %s", domain.ErrBackendTimeout, method, path)
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// postJSON сериализует payload и выполняет POST
func (c *httpClient) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, http.MethodPost, path, body, "application/json", out)
}

// errorBody - формат тела ошибки бэкенда
type errorBody struct {
	Detail string `json:"detail"`
}

// statusError переводит HTTP статус в доменную ошибку, сохраняя detail
func statusError(status int, data []byte) error {
	detail := string(data)
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Detail != "" {
		detail = eb.Detail
	}

	var base error
	switch status {
	case http.StatusUnauthorized:
		base = domain.ErrTokenExpired
	case http.StatusForbidden:
		base = domain.ErrUnauthorized
	case http.StatusNotFound:
		base = domain.ErrNotFound
	case http.StatusConflict:
		base = domain.ErrConflict
	case http.StatusBadRequest:
		base = domain.ErrBadRequest
	default:
		base = domain.ErrInternal
	}
	return fmt.Errorf("%w: %s", base, detail)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
