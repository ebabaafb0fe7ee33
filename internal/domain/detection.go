package domain

import "time"

// DetectionKind - тип результата распознавания кадра
type DetectionKind int

const (
	// DetectionNone - номер не распознан (на проводе "UNKNOWN")
	DetectionNone DetectionKind = iota

	// DetectionDuplicate - тот же автомобиль был обработан недавно (на проводе "DUPLICATE").
	// Не ошибка: управляющий сигнал "игнорировать и продолжать сканирование".
	DetectionDuplicate

	// DetectionPlate - успешное распознавание номера
	DetectionPlate
)

func (k DetectionKind) String() string {
	switch k {
	case DetectionDuplicate:
		return "duplicate"
	case DetectionPlate:
		return "plate"
	default:
		return "none"
	}
}

// Detection - результат обработки одного кадра бэкендом.
// Строковые сентинелы "DUPLICATE"/"UNKNOWN" живут только в слое API клиента
// и сюда не попадают.
type Detection struct {
	Kind DetectionKind

	// Поля ниже заполнены только при Kind == DetectionPlate
	Plate     string
	TypeCode  string
	SpotLabel string

	// ImagePreview - закодированный кадр (data URL) для визуального подтверждения оператором.
	// Присутствует и при DetectionNone в ручном режиме.
	ImagePreview string

	// Message - человекочитаемое пояснение бэкенда (например, причина дубликата)
	Message string

	Timestamp time.Time
}

// HasPlate сообщает, содержит ли результат пригодный для формы номер
func (d *Detection) HasPlate() bool {
	return d.Kind == DetectionPlate && d.Plate != ""
}
