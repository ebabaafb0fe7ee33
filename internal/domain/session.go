package domain

import "time"

// EntrySession - сессия парковки, созданная бэкендом при въезде.
// Клиент никогда не изменяет её напрямую, только через определённые
// переходы (create-entry, calculate-fee, settle-payment).
type EntrySession struct {
	SessionID int64     `json:"session_id"`
	Plate     string    `json:"plate"`
	TypeCode  string    `json:"type_code"`
	SpotLabel string    `json:"spot_label"`
	EntryTime time.Time `json:"entry_time"`

	// QRToken - сканируемый токен выезда, печатается на квитанции
	QRToken string `json:"qr_token"`
}

// FeeQuote - расчёт платы, выполненный бэкендом по номеру.
// Клиент никогда не вычисляет денежные суммы сам.
type FeeQuote struct {
	SessionID int64     `json:"session_id"`
	Plate     string    `json:"plate"`
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
	Duration  string    `json:"duration"`
	FeeLKR    float64   `json:"fee_lkr"`
}

// PaymentMethod - способ оплаты при выезде
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentRFID PaymentMethod = "rfid"
)

// Valid сообщает, известен ли способ оплаты
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentRFID:
		return true
	}
	return false
}

// Settlement - результат проведения оплаты
type Settlement struct {
	SessionID     int64         `json:"session_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	FeeLKR        float64       `json:"fee_lkr"`
	PaidAt        time.Time     `json:"paid_at"`
}
