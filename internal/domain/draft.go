package domain

// DraftProvenance - происхождение данных в черновике формы.
// От него зависит, возобновляется ли сканирование после submit/clear.
type DraftProvenance string

const (
	ProvenanceAutoDetected   DraftProvenance = "auto-detected"
	ProvenanceBookingMatched DraftProvenance = "booking-matched"
	ProvenanceManualOverride DraftProvenance = "manual-override"
)

// EntryDraft - изменяемый черновик транзакции въезда/выезда.
// Существует ровно один на активную рабочую сессию терминала.
type EntryDraft struct {
	Plate       string          `json:"plate"`
	TypeCode    string          `json:"type_code"`
	SpotLabel   string          `json:"spot_label"`
	SourceImage string          `json:"source_image,omitempty"`
	Provenance  DraftProvenance `json:"provenance"`
}

// IsEmpty сообщает, что черновик ещё не заполнялся.
// Приёмник по значению: метод зовут и на копиях из аксессоров.
func (d EntryDraft) IsEmpty() bool {
	return d.Plate == "" && d.TypeCode == "" && d.SpotLabel == ""
}

// Validate проверяет, что обязательные поля заполнены перед отправкой
func (d EntryDraft) Validate() error {
	if d.Plate == "" {
		return ErrEmptyPlate
	}
	if d.TypeCode == "" {
		return ErrEmptyVehicleType
	}
	if d.SpotLabel == "" {
		return ErrEmptySpotLabel
	}
	return nil
}

// Reset очищает черновик
func (d *EntryDraft) Reset() {
	*d = EntryDraft{}
}
