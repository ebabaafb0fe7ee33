package domain

import "time"

// RFIDValidation - результат проверки RFID метки против номера автомобиля.
// Действителен только для точной пары (метка, номер) и только в рамках
// текущей транзакции: изменение любого из полей требует повторной проверки.
type RFIDValidation struct {
	RFIDNumber  string    `json:"rfid_number"`
	PlateNumber string    `json:"plate_number"`
	FullName    string    `json:"full_name,omitempty"`
	ValidTo     time.Time `json:"valid_to"`
	ValidatedAt time.Time `json:"validated_at"`
}

// Matches сообщает, покрывает ли проверка текущие введённые значения
func (v *RFIDValidation) Matches(rfidNumber, plate string) bool {
	if v == nil {
		return false
	}
	return v.RFIDNumber == rfidNumber && v.PlateNumber == plate
}
