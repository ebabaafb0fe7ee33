package domain

// GateID - идентификатор физического шлагбаума
type GateID string

const (
	GateEntry GateID = "entry"
	GateExit  GateID = "exit"
)

// Valid сообщает, известен ли шлагбаум
func (g GateID) Valid() bool {
	return g == GateEntry || g == GateExit
}

// GateStatus - состояние шлагбаумов по данным бэкенда.
// Шлагбаум - удалённый актуатор с независимой истиной: состояние
// запрашивается заново, а не предполагается.
type GateStatus struct {
	EntryOpen bool `json:"entry_open"`
	ExitOpen  bool `json:"exit_open"`
}

// OpenFor возвращает состояние конкретного шлагбаума
func (s GateStatus) OpenFor(gate GateID) bool {
	if gate == GateEntry {
		return s.EntryOpen
	}
	return s.ExitOpen
}
