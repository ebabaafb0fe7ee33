package domain

import (
	"regexp"
	"strings"
	"time"
)

// Booking - ссылка на мобильное бронирование, полученная по номеру или QR коду.
// Только для чтения; не кешируется дольше текущей транзакции.
type Booking struct {
	BookingID   string    `json:"booking_id"`
	PlateNumber string    `json:"plate_number"`
	VehicleType string    `json:"vehicle_type"`
	SpotLabel   string    `json:"spot_label"`
	QRData      string    `json:"qr_data"`
	StartTime   time.Time `json:"start_time"`
	ExpiresAt   time.Time `json:"expires_at"`
}

var trailingSuffixRe = regexp.MustCompile(`-[A-Z]+$`)

// NormalizePlate приводит номер из брони к каноническому виду формы:
// пробелы заменяются дефисом, хвостовой буквенный суффикс отбрасывается.
// "CAV 8537-A" -> "CAV-8537"
func NormalizePlate(plate string) string {
	p := strings.ToUpper(strings.TrimSpace(plate))
	p = strings.Join(strings.Fields(p), "-")
	return trailingSuffixRe.ReplaceAllString(p, "")
}
